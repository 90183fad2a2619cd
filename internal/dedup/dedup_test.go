package dedup

import (
	"fmt"
	"testing"

	"github.com/rcliao/episode-forge/internal/model"
)

func st(title, plot string) model.Story {
	return model.Story{Title: title, PlotSummary: plot}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  The Portal ", "the portal"},
		{"STRASSE", "strasse"},
		{"Straße", "strasse"},
		{"\tMixed Case\n", "mixed case"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsDuplicate(t *testing.T) {
	existing := []model.Story{
		st("The Magic Portal", "Leo finds a portal in the garden."),
		st("Crystal Cave", "Mia builds a crystal scanner."),
		st("", "   "),
	}

	tests := []struct {
		name      string
		candidate model.Story
		want      bool
	}{
		{"title only", st("the magic portal ", "Something new."), true},
		{"plot only", st("Fresh Title", "  MIA BUILDS A CRYSTAL SCANNER."), true},
		{"both", st("Crystal Cave", "Mia builds a crystal scanner."), true},
		{"neither", st("Floating Islands", "Islands float away."), false},
		{"title substring", st("Magic", "Other."), false},
		{"padded title", st("\t The Magic Portal \n", "Something new."), true},
		{"padded plot", st("Fresh Title", "Leo finds a portal in the garden.  \n"), true},
		{"empty title with matching plot", st("", "Mia builds a crystal scanner."), true},
		{"matching title with empty plot", st("Crystal Cave", ""), true},
		{"empty fields", st("", ""), false},
		{"whitespace fields", st("  ", "\t"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDuplicate(&tt.candidate, existing); got != tt.want {
				t.Errorf("IsDuplicate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsDuplicateEmptyCorpus(t *testing.T) {
	c := st("Anything", "At all.")
	if IsDuplicate(&c, nil) {
		t.Error("expected no duplicate against empty corpus")
	}
}

func TestIsDuplicateSymmetric(t *testing.T) {
	pairs := [][2]model.Story{
		{st("A Title", "plot one"), st("a title", "plot two")},
		{st("Title One", "Same Plot"), st("Title Two", "same plot")},
		{st("X", "Y"), st("Z", "W")},
	}
	for i, p := range pairs {
		a, b := p[0], p[1]
		ab := IsDuplicate(&a, []model.Story{b})
		ba := IsDuplicate(&b, []model.Story{a})
		if ab != ba {
			t.Errorf("pair %d: asymmetric result %v vs %v", i, ab, ba)
		}
	}
}

func TestIndexMatchesScan(t *testing.T) {
	var corpus []model.Story
	for i := 0; i < 50; i++ {
		corpus = append(corpus, st(fmt.Sprintf("Episode Title %d", i), fmt.Sprintf("Plot number %d.", i)))
	}
	idx := NewIndex(corpus)
	for i := range corpus {
		if !idx.Contains(&corpus[i]) {
			t.Fatalf("expected indexed story %d to be found", i)
		}
	}

	candidates := []model.Story{
		st("episode title 7", "new"),
		st("new", " PLOT NUMBER 49."),
		st("Episode Title 50", "Plot number 50."),
		st("", ""),
	}
	for _, c := range candidates {
		if got, want := idx.Contains(&c), IsDuplicate(&c, corpus); got != want {
			t.Errorf("%q/%q: index says %v, scan says %v", c.Title, c.PlotSummary, got, want)
		}
	}

	added := st("Episode Title 50", "Plot number 50.")
	idx.Add(&added)
	if !idx.Contains(&added) {
		t.Error("expected added story to be found")
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"", PolicyIgnore, false},
		{"ignore", PolicyIgnore, false},
		{" Warn ", PolicyWarn, false},
		{"REJECT", PolicyReject, false},
		{"drop", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePolicy(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePolicy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCountDuplicates(t *testing.T) {
	corpus := []model.Story{
		st("A", "one"),
		st("B", "two"),
		st("a", "three"),
		st("C", "TWO"),
		st("D", "four"),
	}
	if got := CountDuplicates(corpus); got != 2 {
		t.Errorf("expected 2 duplicates, got %d", got)
	}
	if got := CountDuplicates(nil); got != 0 {
		t.Errorf("expected 0 for empty corpus, got %d", got)
	}
}
