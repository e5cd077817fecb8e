package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// EchoProvider is the deterministic, zero-dependency fallback backend.
// It synthesises a reply purely from the prompt's own schema descriptor and
// context blocks: no credential, no network, and identical output for
// identical prompts. It is also the reference backend for tests, since real
// providers are non-deterministic by nature.
type EchoProvider struct{}

// NewEchoProvider returns the echo backend.
func NewEchoProvider() *EchoProvider {
	return &EchoProvider{}
}

// ID implements Provider.
func (p *EchoProvider) ID() string { return ProviderEcho }

// Authenticate implements Provider. Echo never requires a credential.
func (p *EchoProvider) Authenticate(_ *Credential) error { return nil }

// echoExercise mirrors the reply schema the prompt instructs providers to
// produce, so echo output flows through the same parser as real replies.
type echoExercise struct {
	Type        string   `json:"type"`
	Prompt      string   `json:"prompt"`
	Answer      string   `json:"answer"`
	Distractors []string `json:"distractors,omitempty"`
	SourceIDs   []string `json:"source_ids,omitempty"`
}

type echoReply struct {
	Exercises []echoExercise `json:"exercises"`
}

// fallbackTokens seed synthesis when a prompt carries no retrieved context
// (the degraded-but-valid empty-retrieval path).
var fallbackTokens = []string{"verbum", "exemplum", "lectio", "forma", "sententia"}

// Complete implements Provider by reflecting the prompt's schema block back
// as a batch of placeholder exercises.
func (p *EchoProvider) Complete(_ context.Context, _ *Credential, req ChatRequest) (*ChatResponse, error) {
	prompt := UserText(req)

	schema, ok := ParseSchema(prompt)
	if !ok || schema.Count <= 0 || len(schema.Types) == 0 {
		schema = PromptSchema{Version: 1, Types: []string{"translate"}, Count: 3}
	}
	blocks := ParseContextBlocks(prompt)

	exercises := make([]echoExercise, 0, schema.Count)
	for i := 0; i < schema.Count; i++ {
		typ := schema.Types[i%len(schema.Types)]
		var blk *ContextBlock
		if len(blocks) > 0 {
			blk = &blocks[i%len(blocks)]
		}
		exercises = append(exercises, synthesiseExercise(typ, i, blk))
	}

	// echoReply marshals without error: plain strings and slices only.
	raw, _ := json.Marshal(echoReply{Exercises: exercises})

	model := req.Model
	if model == "" {
		model = "echo-1"
	}
	return &ChatResponse{
		ProviderID: ProviderEcho,
		Model:      model,
		Content:    string(raw),
		StopReason: "stop",
	}, nil
}

// synthesiseExercise builds one placeholder exercise of the given type from
// a context block, deterministically.
func synthesiseExercise(typ string, ordinal int, blk *ContextBlock) echoExercise {
	tokens := fallbackTokens
	var sourceIDs []string
	if blk != nil {
		if f := strings.Fields(blk.Text); len(f) > 0 {
			tokens = f
		}
		sourceIDs = []string{blk.ID}
	}

	ex := echoExercise{Type: typ, SourceIDs: sourceIDs}
	switch typ {
	case "match":
		ex.Answer = tokens[0]
		ex.Prompt = fmt.Sprintf("Match the term %q with its meaning.", ex.Answer)
		ex.Distractors = distinctDistractors(tokens, ex.Answer, 2)
	case "cloze":
		idx := len(tokens) / 2
		ex.Answer = tokens[idx]
		blanked := make([]string, len(tokens))
		copy(blanked, tokens)
		blanked[idx] = ClozeBlank
		ex.Prompt = strings.Join(blanked, " ")
	case "identify":
		tok := tokens[ordinal%len(tokens)]
		ex.Prompt = fmt.Sprintf("Identify the grammatical form of %q in its context.", tok)
		ex.Answer = fmt.Sprintf("form of %s", tok)
	default: // translate and any future type degrade to a translation stub
		span := tokens
		if len(span) > 8 {
			span = span[:8]
		}
		phrase := strings.Join(span, " ")
		ex.Prompt = fmt.Sprintf("Translate: %s", phrase)
		ex.Answer = fmt.Sprintf("gloss of: %s", phrase)
	}
	return ex
}

// distinctDistractors picks n distractors from tokens, all distinct and
// different from answer, topping up from fallbackTokens when the snippet is
// too short.
func distinctDistractors(tokens []string, answer string, n int) []string {
	seen := map[string]bool{answer: true}
	out := make([]string, 0, n)
	for _, pool := range [][]string{tokens, fallbackTokens} {
		for _, t := range pool {
			if len(out) == n {
				return out
			}
			if seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
