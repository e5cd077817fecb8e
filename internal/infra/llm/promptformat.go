package llm

import (
	"encoding/json"
	"strings"
)

// Prompt wire format shared by the assembler, the echo provider, and the
// response parser. The assembler encodes the expected output schema and the
// retrieved context into delimited blocks inside the user prompt; real
// providers see them as instruction text, while the echo provider parses
// them back to synthesise a deterministic reply against the same schema the
// parser validates with.

const (
	schemaOpen   = "@@schema"
	contextOpen  = "@@context "
	blockClose   = "@@end"
	// ClozeBlank is the blank marker a cloze exercise prompt must contain.
	ClozeBlank = "____"
)

// PromptSchema describes the exercise batch a reply must contain.
type PromptSchema struct {
	Version int      `json:"version"`
	Types   []string `json:"exercise_types"`
	Count   int      `json:"count"`
	Fields  []string `json:"fields"`
}

// ContextBlock is one retrieved snippet rendered into the prompt.
type ContextBlock struct {
	ID       string  `json:"id"`
	Category string  `json:"category"`
	Score    float64 `json:"score"`
	Citation string  `json:"citation,omitempty"`
	Text     string  `json:"-"`
}

// EncodeSchema renders the schema descriptor as a delimited prompt block.
func EncodeSchema(s PromptSchema) string {
	// PromptSchema marshals without error: plain strings and ints only.
	raw, _ := json.Marshal(s)
	return schemaOpen + "\n" + string(raw) + "\n" + blockClose + "\n"
}

// ParseSchema extracts the schema descriptor from a prompt.
// Returns false when no well-formed schema block is present.
func ParseSchema(prompt string) (PromptSchema, bool) {
	var s PromptSchema
	body, ok := blockBody(prompt, schemaOpen)
	if !ok {
		return s, false
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &s); err != nil {
		return PromptSchema{}, false
	}
	return s, true
}

// EncodeContextBlock renders one retrieved snippet as a delimited block:
// a JSON header line with provenance metadata, then the snippet text.
func EncodeContextBlock(b ContextBlock) string {
	header, _ := json.Marshal(b)
	return contextOpen + string(header) + "\n" + b.Text + "\n" + blockClose + "\n"
}

// ParseContextBlocks extracts all context blocks from a prompt, in order.
// Malformed blocks are skipped.
func ParseContextBlocks(prompt string) []ContextBlock {
	var blocks []ContextBlock
	rest := prompt
	for {
		start := strings.Index(rest, contextOpen)
		if start < 0 {
			return blocks
		}
		rest = rest[start+len(contextOpen):]
		end := strings.Index(rest, "\n"+blockClose)
		if end < 0 {
			return blocks
		}
		section := rest[:end]
		rest = rest[end+len(blockClose)+1:]

		headerLine, text, found := strings.Cut(section, "\n")
		if !found {
			continue
		}
		var b ContextBlock
		if err := json.Unmarshal([]byte(headerLine), &b); err != nil {
			continue
		}
		b.Text = strings.TrimSpace(text)
		blocks = append(blocks, b)
	}
}

// blockBody returns the text between an opening marker line and the next
// close marker.
func blockBody(prompt, open string) (string, bool) {
	start := strings.Index(prompt, open)
	if start < 0 {
		return "", false
	}
	rest := prompt[start+len(open):]
	end := strings.Index(rest, blockClose)
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

// PromptText concatenates all message content of a request, used by
// adapters that need the full prompt as a single string.
func PromptText(req ChatRequest) string {
	var b strings.Builder
	for i, m := range req.Messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.Content)
	}
	return b.String()
}

// SystemText returns the first system message of a request, if any.
func SystemText(req ChatRequest) string {
	for _, m := range req.Messages {
		if m.Role == "system" {
			return m.Content
		}
	}
	return ""
}

// UserText concatenates the non-system messages of a request.
func UserText(req ChatRequest) string {
	var parts []string
	for _, m := range req.Messages {
		if m.Role != "system" {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n")
}
