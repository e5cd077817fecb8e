// Prompt assembly: a lesson request plus retrieval results become a
// PromptPlan, rendered into the chat request the gateway dispatches.
// Assembly is deterministic: identical inputs produce identical plans.
package lesson

import (
	"fmt"
	"strings"

	"github.com/paideia-app/paideia/internal/domain/retrieval"
	"github.com/paideia-app/paideia/internal/infra/llm"
)

// DefaultTokenBudget caps the rendered prompt size when no budget is
// configured. Tokens are approximated by whitespace words.
const DefaultTokenBudget = 2000

// schemaVersion is bumped whenever the reply schema changes shape.
const schemaVersion = 1

// replyFields are the exercise field names the reply must use. The
// parser validates against the same list.
var replyFields = []string{"type", "prompt", "answer", "distractors", "source_ids"}

// PromptPlan is the fully assembled prompt for one request. Transient;
// owned by the assembler for the duration of the call.
type PromptPlan struct {
	Persona       string
	ContextBlocks []llm.ContextBlock
	Schema        llm.PromptSchema
	TokenBudget   int
}

// SnippetText returns the context text for a snippet id, if the plan
// carries it.
func (p *PromptPlan) SnippetText(id string) (string, bool) {
	for _, blk := range p.ContextBlocks {
		if blk.ID == id {
			return blk.Text, true
		}
	}
	return "", false
}

// TopSourceID returns the highest-ranked snippet id in the plan.
func (p *PromptPlan) TopSourceID() (string, bool) {
	if len(p.ContextBlocks) == 0 {
		return "", false
	}
	return p.ContextBlocks[0].ID, true
}

// Assembler builds prompt plans.
type Assembler struct {
	tokenBudget int
}

// NewAssembler creates an Assembler. A non-positive budget selects the
// default.
func NewAssembler(tokenBudget int) *Assembler {
	if tokenBudget <= 0 {
		tokenBudget = DefaultTokenBudget
	}
	return &Assembler{tokenBudget: tokenBudget}
}

// personaFor maps register to an instruction template. A pure mapping.
func personaFor(register, language, profile string) string {
	switch register {
	case "literary":
		return fmt.Sprintf(
			"You are a classical philologist teaching %s to a %s student. "+
				"Favour canonical literary forms, cite constructions precisely, "+
				"and keep explanations in a formal register.",
			languageName(language), profile)
	default: // colloquial
		return fmt.Sprintf(
			"You are a friendly tutor teaching everyday %s to a %s student. "+
				"Prefer common vocabulary and natural phrasing over literary forms.",
			languageName(language), profile)
	}
}

// languageName expands the codes the corpus carries; unknown codes pass
// through so prompts stay usable for newly ingested languages.
func languageName(code string) string {
	switch code {
	case "la":
		return "Latin"
	case "grc":
		return "Ancient Greek"
	case "sa":
		return "Sanskrit"
	case "ang":
		return "Old English"
	}
	return code
}

// BuildPlan assembles the plan: persona by register, context blocks in
// retrieval rank order, and the output schema descriptor. The token
// budget is enforced by dropping the lowest-scored snippets whole; a
// snippet is never split.
func (a *Assembler) BuildPlan(req Request, ret *retrieval.Result) (*PromptPlan, error) {
	plan := &PromptPlan{
		Persona: personaFor(req.Register, req.Language, req.Profile),
		Schema: llm.PromptSchema{
			Version: schemaVersion,
			Types:   req.effectiveTypes(),
			Count:   req.effectiveCount(),
			Fields:  replyFields,
		},
		TokenBudget: a.tokenBudget,
	}

	if ret != nil {
		for _, sc := range ret.Items {
			plan.ContextBlocks = append(plan.ContextBlocks, llm.ContextBlock{
				ID:       sc.Snippet.ID,
				Category: string(sc.Snippet.Category),
				Score:    sc.Score,
				Citation: sc.Snippet.Citation,
				Text:     sc.Snippet.Text,
			})
		}
	}

	a.fitBudget(plan)
	return plan, nil
}

// fitBudget drops lowest-scored blocks whole until the rendered prompt
// fits the budget. Blocks arrive rank-ordered, so dropping from the
// tail removes the lowest scores first.
func (a *Assembler) fitBudget(plan *PromptPlan) {
	base := approxTokens(plan.Persona) + approxTokens(instructionText(plan.Schema))
	used := base
	fit := len(plan.ContextBlocks)
	for i, blk := range plan.ContextBlocks {
		cost := approxTokens(blk.Text) + blockOverheadTokens
		if used+cost > plan.TokenBudget {
			fit = i
			break
		}
		used += cost
	}
	plan.ContextBlocks = plan.ContextBlocks[:fit]
}

// blockOverheadTokens approximates the delimiter and header cost of one
// rendered context block.
const blockOverheadTokens = 12

func approxTokens(text string) int {
	return len(strings.Fields(text))
}

// instructionText renders the human-readable half of the schema. The
// machine-readable descriptor is rendered separately so the echo
// provider and the parser share an exact contract.
func instructionText(schema llm.PromptSchema) string {
	return fmt.Sprintf(
		"Produce exactly %d exercises restricted to these types: %s. "+
			"Reply with a single JSON object {\"exercises\": [...]} where each "+
			"exercise has the fields %s. Every exercise must cite the ids of the "+
			"context snippets it draws on in source_ids. A cloze prompt contains "+
			"exactly one blank written as %s and its answer is the blanked word. "+
			"A match exercise lists at least two distractors distinct from the "+
			"answer. Do not include any prose outside the JSON object.",
		schema.Count,
		strings.Join(schema.Types, ", "),
		strings.Join(schema.Fields, ", "),
		llm.ClozeBlank,
	)
}

// Render produces the chat request for the gateway. The system message
// carries the persona; the user message carries instructions, the
// machine-readable schema block, and the context blocks in rank order.
func (p *PromptPlan) Render(model string) llm.ChatRequest {
	var b strings.Builder
	b.WriteString(instructionText(p.Schema))
	b.WriteString("\n\n")
	b.WriteString(llm.EncodeSchema(p.Schema))
	if len(p.ContextBlocks) > 0 {
		b.WriteString("\nContext snippets, best match first:\n")
		for _, blk := range p.ContextBlocks {
			b.WriteString(llm.EncodeContextBlock(blk))
		}
	} else {
		b.WriteString("\nNo context snippets matched; draw on core vocabulary for the language.\n")
	}

	return llm.ChatRequest{
		Model: model,
		Messages: []llm.Message{
			{Role: "system", Content: p.Persona},
			{Role: "user", Content: b.String()},
		},
	}
}
