package artifact

import "testing"

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"kw-metrics", KindKeywordMetrics, false},
		{"paa", KindPAA, false},
		{"serp", KindSERP, false},
		{"llm-research", KindResearch, false},
		{"intent", KindIntent, false},
		{"outline", KindOutline, false},
		{"draft", KindDraft, false},
		{"scored-draft", KindScoredDraft, false},
		{"image-set", KindImageSet, false},
		{"bundle", KindBundle, false},
		{"", "", true},
		{"metrics", "", true},
		{"KW-METRICS", "", true},
	}

	for _, tt := range tests {
		name := tt.in
		if name == "" {
			name = "empty"
		}
		t.Run(name, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseKind(%q) expected error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseKind(%q) failed: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseKind(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestKind_Position(t *testing.T) {
	// Pipeline order must match the stage machine exactly.
	for i, k := range Kinds() {
		if k.Position() != i {
			t.Errorf("kind %q at position %d, want %d", k, k.Position(), i)
		}
	}
	if Kind("bogus").Position() != -1 {
		t.Error("unknown kind should have position -1")
	}
	if KindKeywordMetrics.Position() != 0 {
		t.Error("kw-metrics must be the first stage")
	}
	if KindBundle.Position() != len(Kinds())-1 {
		t.Error("bundle must be the last stage")
	}
}

func TestKind_IsResearch(t *testing.T) {
	research := []Kind{KindKeywordMetrics, KindPAA, KindSERP, KindResearch}
	for _, k := range research {
		if !k.IsResearch() {
			t.Errorf("%q should be a research kind", k)
		}
	}
	for _, k := range []Kind{KindIntent, KindOutline, KindDraft, KindScoredDraft, KindImageSet, KindBundle} {
		if k.IsResearch() {
			t.Errorf("%q should not be a research kind", k)
		}
	}
}
