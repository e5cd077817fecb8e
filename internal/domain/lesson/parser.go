// Reply parsing and validation. Model output is treated strictly as
// data: it is unwrapped, checked against the plan's schema, and every
// exercise that fails a check is dropped with a logged reason rather
// than repaired in place. The one sanctioned repair is provenance:
// a missing citation is filled from the plan's top-ranked snippet.
package lesson

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/paideia-app/paideia/internal/infra/llm"
)

// replyEnvelope is the JSON shape the prompt instructs providers to
// return.
type replyEnvelope struct {
	Exercises []Exercise `json:"exercises"`
}

// Parser validates raw model replies against a prompt plan.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a Parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log}
}

// ParseExercises unwraps the reply, validates each exercise against the
// plan, and returns the survivors in reply order. Returns
// ErrEmptyLesson when nothing valid remains, and ErrUpstreamUnavailable
// (malformed envelope) when the reply cannot even be unwrapped.
func (p *Parser) ParseExercises(reply *llm.ChatResponse, plan *PromptPlan) ([]Exercise, error) {
	raw := stripFences(reply.Content)

	var envelope replyEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, fmt.Errorf("%w: %w: reply from %s is not valid JSON: %v",
			ErrUpstreamUnavailable, llm.ErrMalformedEnvelope, reply.ProviderID, err)
	}

	allowed := make(map[string]bool, len(plan.Schema.Types))
	for _, t := range plan.Schema.Types {
		allowed[t] = true
	}

	var out []Exercise
	for i, ex := range envelope.Exercises {
		if reason := p.validate(ex, allowed, plan); reason != "" {
			p.log.Warn("dropping invalid exercise",
				zap.Int("index", i),
				zap.String("type", ex.Type),
				zap.String("reason", reason),
				zap.String("provider", reply.ProviderID))
			continue
		}
		out = append(out, p.repairProvenance(ex, plan))
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %d exercises received, none valid",
			ErrEmptyLesson, len(envelope.Exercises))
	}
	if len(out) > plan.Schema.Count {
		out = out[:plan.Schema.Count]
	}
	return out, nil
}

// validate returns a non-empty drop reason when the exercise fails a
// structural or semantic check.
func (p *Parser) validate(ex Exercise, allowed map[string]bool, plan *PromptPlan) string {
	if !allowed[ex.Type] {
		return fmt.Sprintf("type %q not in requested set", ex.Type)
	}
	if strings.TrimSpace(ex.Prompt) == "" {
		return "empty prompt"
	}
	if strings.TrimSpace(ex.Answer) == "" {
		return "empty answer"
	}

	switch ex.Type {
	case TypeMatch:
		if n := countDistinctDistractors(ex); n < 2 {
			return fmt.Sprintf("match exercise has %d distinct distractors, need 2", n)
		}
	case TypeCloze:
		if n := strings.Count(ex.Prompt, llm.ClozeBlank); n != 1 {
			return fmt.Sprintf("cloze prompt has %d blanks, need exactly 1", n)
		}
		if reason := p.checkClozeAnswer(ex, plan); reason != "" {
			return reason
		}
	}
	return ""
}

// checkClozeAnswer requires the answer to be a token of a cited snippet
// when provenance is present; without provenance the check is skipped
// (the repair step fills the citation afterwards).
func (p *Parser) checkClozeAnswer(ex Exercise, plan *PromptPlan) string {
	if len(ex.SourceIDs) == 0 {
		return ""
	}
	answer := strings.TrimSpace(ex.Answer)
	for _, id := range ex.SourceIDs {
		text, ok := plan.SnippetText(id)
		if !ok {
			continue
		}
		for _, tok := range strings.Fields(text) {
			if tok == answer {
				return ""
			}
		}
	}
	return fmt.Sprintf("cloze answer %q is not a token of any cited snippet", answer)
}

// repairProvenance fills a missing citation from the plan's top-ranked
// snippet. Only applies when the plan carries context at all.
func (p *Parser) repairProvenance(ex Exercise, plan *PromptPlan) Exercise {
	if len(ex.SourceIDs) > 0 {
		return ex
	}
	top, ok := plan.TopSourceID()
	if !ok {
		return ex
	}
	p.log.Info("repairing missing exercise provenance",
		zap.String("type", ex.Type),
		zap.String("source_id", top))
	ex.SourceIDs = []string{top}
	return ex
}

func countDistinctDistractors(ex Exercise) int {
	seen := map[string]bool{ex.Answer: true}
	n := 0
	for _, d := range ex.Distractors {
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		n++
	}
	return n
}

// stripFences removes a surrounding markdown code fence, with or
// without a language tag, from a model reply.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// drop the language tag line ("json", "JSON", or empty)
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
