package corpus

import "testing"

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "Gallia Est OMNIS", "gallia est omnis"},
		{"folds punctuation", "arma, virumque; cano.", "arma virumque cano"},
		{"collapses whitespace", "  rosa   rosae  ", "rosa rosae"},
		{"drops combining marks", "ménis", "menis"},
		{"empty", "   ", ""},
		{"keeps digits", "liber 2 caput 3", "liber 2 caput 3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.in); got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestCategory_Valid(t *testing.T) {
	t.Parallel()

	for _, c := range Categories() {
		if !c.Valid() {
			t.Errorf("category %q reports invalid", c)
		}
	}
	if Category("poetry").Valid() {
		t.Error("unknown category reports valid")
	}
}

func TestKeywordOverlap(t *testing.T) {
	t.Parallel()

	norm := "lupus est homo homini"
	if got := keywordOverlap([]string{"lupus", "homo"}, norm); got != 1 {
		t.Errorf("full overlap = %v, want 1", got)
	}
	if got := keywordOverlap([]string{"lupus", "canis"}, norm); got != 0.5 {
		t.Errorf("half overlap = %v, want 0.5", got)
	}
	if got := keywordOverlap(nil, norm); got != 0 {
		t.Errorf("no terms = %v, want 0", got)
	}
}

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()

	a := []float32{1, 0, 0}
	if got := cosineSimilarity(a, a); got < 0.999 {
		t.Errorf("self similarity = %v, want ~1", got)
	}
	if got := cosineSimilarity(a, []float32{0, 1, 0}); got != 0 {
		t.Errorf("orthogonal similarity = %v, want 0", got)
	}
	if got := cosineSimilarity(a, []float32{1, 0}); got != 0 {
		t.Errorf("dimension mismatch = %v, want 0", got)
	}
	if got := cosineSimilarity(a, []float32{0, 0, 0}); got != 0 {
		t.Errorf("zero vector = %v, want 0", got)
	}
}
