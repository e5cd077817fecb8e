// Package lesson implements the generation core: request validation,
// prompt assembly, provider dispatch, reply parsing, and the assembled
// lesson returned to the caller.
package lesson

import "time"

// Exercise types the core can request and validate.
const (
	TypeMatch     = "match"
	TypeTranslate = "translate"
	TypeCloze     = "cloze"
	TypeIdentify  = "identify"
)

// Exercise count bounds.
const (
	DefaultExerciseCount = 5
	MaxExerciseCount     = 12
)

// Request is the immutable input for one lesson generation call.
// Credential carries user-held secret material; it is stripped before
// the request is echoed back and never serialised outbound.
type Request struct {
	Language      string   `json:"language" validate:"required,min=2,max=8"`
	Profile       string   `json:"profile" validate:"required,oneof=beginner intermediate advanced"`
	Register      string   `json:"register" validate:"required,oneof=literary colloquial"`
	Sources       []string `json:"sources,omitempty" validate:"omitempty,dive,min=1"`
	ExerciseTypes []string `json:"exercise_types,omitempty" validate:"omitempty,dive,oneof=match translate cloze identify"`
	Provider      string   `json:"provider,omitempty"`
	Model         string   `json:"model,omitempty"`
	Credential    string   `json:"credential,omitempty"`
	TextRange     string   `json:"text_range,omitempty"`
	AllowFallback bool     `json:"allow_fallback"`
	ExerciseCount int      `json:"exercise_count,omitempty" validate:"omitempty,min=1,max=12"`
}

// Sanitized returns a copy safe to echo back: secret material removed.
func (r Request) Sanitized() Request {
	r.Credential = ""
	return r
}

// effectiveTypes returns the requested exercise types, defaulting to
// translation exercises when the request names none.
func (r Request) effectiveTypes() []string {
	if len(r.ExerciseTypes) == 0 {
		return []string{TypeTranslate}
	}
	return r.ExerciseTypes
}

// effectiveCount returns the exercise count with default and cap applied.
func (r Request) effectiveCount() int {
	switch {
	case r.ExerciseCount <= 0:
		return DefaultExerciseCount
	case r.ExerciseCount > MaxExerciseCount:
		return MaxExerciseCount
	}
	return r.ExerciseCount
}

// Exercise is one generated task. Immutable once produced. The JSON
// field names are a compatibility contract with the presentation layer.
type Exercise struct {
	Type        string   `json:"type"`
	Prompt      string   `json:"prompt"`
	Answer      string   `json:"answer"`
	Distractors []string `json:"distractors,omitempty"`
	SourceIDs   []string `json:"source_ids,omitempty"`
}

// Meta records how a lesson was produced.
type Meta struct {
	// Provider is the backend that actually generated the content,
	// which differs from the requested one after a fallback.
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`
	GeneratedAt time.Time `json:"generated_at"`
	Fallback    bool      `json:"fallback"`
}

// Lesson is the finished output returned to the caller. The core never
// persists it.
type Lesson struct {
	Request   Request    `json:"request"`
	Exercises []Exercise `json:"exercises"`
	Meta      Meta       `json:"meta"`
}
