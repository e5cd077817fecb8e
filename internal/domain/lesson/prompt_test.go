package lesson

import (
	"strings"
	"testing"

	"github.com/paideia-app/paideia/internal/domain/corpus"
	"github.com/paideia-app/paideia/internal/domain/retrieval"
	"github.com/paideia-app/paideia/internal/infra/llm"
)

func retrievalResult(items ...corpus.Scored) *retrieval.Result {
	return &retrieval.Result{Items: items}
}

func snippetScored(id, text string, score float64) corpus.Scored {
	return corpus.Scored{
		Snippet: corpus.Snippet{
			ID: id, Language: "la", Category: corpus.CategoryPassage,
			Text: text, Citation: "cit-" + id,
		},
		Score: score,
	}
}

func baseRequest() Request {
	return Request{
		Language:      "la",
		Profile:       "beginner",
		Register:      "literary",
		ExerciseTypes: []string{TypeTranslate, TypeCloze},
		ExerciseCount: 4,
	}
}

func TestBuildPlan_Deterministic(t *testing.T) {
	t.Parallel()

	a := NewAssembler(0)
	ret := retrievalResult(
		snippetScored("s-1", "gallia est omnis divisa", 0.9),
		snippetScored("s-2", "in partes tres", 0.5),
	)

	p1, err := a.BuildPlan(baseRequest(), ret)
	if err != nil {
		t.Fatalf("BuildPlan error = %v", err)
	}
	p2, err := a.BuildPlan(baseRequest(), ret)
	if err != nil {
		t.Fatalf("BuildPlan error = %v", err)
	}

	r1 := p1.Render("")
	r2 := p2.Render("")
	if llm.PromptText(r1) != llm.PromptText(r2) {
		t.Error("identical inputs rendered different prompts")
	}
}

func TestBuildPlan_RegisterSelectsPersona(t *testing.T) {
	t.Parallel()

	a := NewAssembler(0)

	lit := baseRequest()
	lit.Register = "literary"
	litPlan, _ := a.BuildPlan(lit, nil)

	col := baseRequest()
	col.Register = "colloquial"
	colPlan, _ := a.BuildPlan(col, nil)

	if litPlan.Persona == colPlan.Persona {
		t.Error("literary and colloquial registers share a persona")
	}
	if !strings.Contains(litPlan.Persona, "Latin") {
		t.Errorf("persona does not name the language: %q", litPlan.Persona)
	}
	if !strings.Contains(colPlan.Persona, "beginner") {
		t.Errorf("persona does not name the profile: %q", colPlan.Persona)
	}
}

func TestBuildPlan_ContextOrderedByRank(t *testing.T) {
	t.Parallel()

	a := NewAssembler(0)
	ret := retrievalResult(
		snippetScored("first", "alpha", 0.9),
		snippetScored("second", "beta", 0.6),
		snippetScored("third", "gamma", 0.3),
	)
	plan, err := a.BuildPlan(baseRequest(), ret)
	if err != nil {
		t.Fatalf("BuildPlan error = %v", err)
	}

	want := []string{"first", "second", "third"}
	if len(plan.ContextBlocks) != 3 {
		t.Fatalf("got %d blocks, want 3", len(plan.ContextBlocks))
	}
	for i, blk := range plan.ContextBlocks {
		if blk.ID != want[i] {
			t.Errorf("block %d = %s, want %s", i, blk.ID, want[i])
		}
	}
}

func TestBuildPlan_BudgetDropsLowestScoredWholeSnippets(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("verba ", 100) // 100 tokens each
	ret := retrievalResult(
		snippetScored("keep-1", long, 0.9),
		snippetScored("keep-2", long, 0.7),
		snippetScored("drop-1", long, 0.2),
	)

	// Budget fits the instructions plus one or two blocks, never all three.
	a := NewAssembler(340)
	plan, err := a.BuildPlan(baseRequest(), ret)
	if err != nil {
		t.Fatalf("BuildPlan error = %v", err)
	}

	if len(plan.ContextBlocks) == 0 || len(plan.ContextBlocks) == 3 {
		t.Fatalf("budget kept %d of 3 blocks, want a partial prefix", len(plan.ContextBlocks))
	}
	// Survivors must be the highest-ranked prefix, never a mid-list cut.
	for i, blk := range plan.ContextBlocks {
		want := []string{"keep-1", "keep-2"}[i]
		if blk.ID != want {
			t.Errorf("surviving block %d = %s, want %s", i, blk.ID, want)
		}
	}
	// No snippet is split: every kept block carries its full text.
	for _, blk := range plan.ContextBlocks {
		if blk.Text != long {
			t.Errorf("block %s was truncated", blk.ID)
		}
	}
}

func TestRender_SchemaRoundTripsThroughPromptFormat(t *testing.T) {
	t.Parallel()

	a := NewAssembler(0)
	plan, err := a.BuildPlan(baseRequest(), retrievalResult(snippetScored("s-1", "lupus est", 0.8)))
	if err != nil {
		t.Fatalf("BuildPlan error = %v", err)
	}
	req := plan.Render("gpt-4o")
	if req.Model != "gpt-4o" {
		t.Errorf("model = %q", req.Model)
	}

	prompt := llm.UserText(req)
	schema, ok := llm.ParseSchema(prompt)
	if !ok {
		t.Fatal("rendered prompt has no parsable schema block")
	}
	if schema.Count != 4 || len(schema.Types) != 2 {
		t.Errorf("schema = %+v", schema)
	}

	blocks := llm.ParseContextBlocks(prompt)
	if len(blocks) != 1 || blocks[0].ID != "s-1" || blocks[0].Text != "lupus est" {
		t.Errorf("context blocks = %+v", blocks)
	}
	if llm.SystemText(req) != plan.Persona {
		t.Error("system message does not carry the persona")
	}
}

func TestRequest_Defaults(t *testing.T) {
	t.Parallel()

	var r Request
	if got := r.effectiveCount(); got != DefaultExerciseCount {
		t.Errorf("default count = %d, want %d", got, DefaultExerciseCount)
	}
	r.ExerciseCount = 50
	if got := r.effectiveCount(); got != MaxExerciseCount {
		t.Errorf("capped count = %d, want %d", got, MaxExerciseCount)
	}
	if got := r.effectiveTypes(); len(got) != 1 || got[0] != TypeTranslate {
		t.Errorf("default types = %v", got)
	}
}
