package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/nevesb/romc-catalog/internal/domain"
)

func TestVersionDifferSkipsIdenticalRevisions(t *testing.T) {
	// The middle revision is a byte-identical re-export; the diff must reach
	// past it to the oldest revision.
	repo := &stubFormulaRepo{formulas: map[string]domain.FormulaDefinition{
		"CommonFun.CalcDamage": taggedFormula("CommonFun.CalcDamage", "2024-05-10", "return atk * 2\n",
			domain.FormulaVersion{DatasetTag: "2024-05-05", Code: "return atk * 2\n"},
			domain.FormulaVersion{DatasetTag: "2024-05-02", Code: "return atk\n"},
		),
	}}
	differ := NewVersionDiffer(repo)

	diff, err := differ.Diff(context.Background(), "CommonFun.CalcDamage", "")
	if err != nil {
		t.Fatalf("diff returned error: %v", err)
	}
	if diff == nil {
		t.Fatalf("expected a diff result")
	}

	if diff.AnchorTag != "2024-05-10" {
		t.Fatalf("expected anchor 2024-05-10, got %s", diff.AnchorTag)
	}
	if diff.PreviousTag != "2024-05-02" {
		t.Fatalf("expected the identical revision to be skipped down to 2024-05-02, got %s", diff.PreviousTag)
	}
	if diff.PreviousCode != "return atk\n" || diff.CurrentCode != "return atk * 2\n" {
		t.Fatalf("unexpected code pair: %q vs %q", diff.PreviousCode, diff.CurrentCode)
	}
	if !strings.Contains(diff.Diff, "-return atk") || !strings.Contains(diff.Diff, "+return atk * 2") {
		t.Fatalf("unexpected rendered diff:\n%s", diff.Diff)
	}
}

func TestVersionDifferTwoRevisionHistory(t *testing.T) {
	repo := &stubFormulaRepo{formulas: map[string]domain.FormulaDefinition{
		"CommonFun.CalcHeal": taggedFormula("CommonFun.CalcHeal", "2024-05-10", "return matk\n",
			domain.FormulaVersion{DatasetTag: "2024-05-05", Code: "return matk * 0.5\n"},
		),
	}}
	differ := NewVersionDiffer(repo)

	diff, err := differ.Diff(context.Background(), "CommonFun.CalcHeal", "")
	if err != nil {
		t.Fatalf("diff returned error: %v", err)
	}
	if diff == nil || diff.PreviousTag != "2024-05-05" {
		t.Fatalf("expected previous tag 2024-05-05, got %+v", diff)
	}
}

func TestVersionDifferAnchorsAtTag(t *testing.T) {
	repo := &stubFormulaRepo{formulas: map[string]domain.FormulaDefinition{
		"CommonFun.CalcDef": taggedFormula("CommonFun.CalcDef", "2024-05-10", "return def * 3\n",
			domain.FormulaVersion{DatasetTag: "2024-05-05", Code: "return def * 2\n"},
			domain.FormulaVersion{DatasetTag: "2024-05-02", Code: "return def\n"},
		),
	}}
	differ := NewVersionDiffer(repo)

	diff, err := differ.Diff(context.Background(), "CommonFun.CalcDef", "2024-05-05")
	if err != nil {
		t.Fatalf("diff returned error: %v", err)
	}
	if diff == nil {
		t.Fatalf("expected a diff result")
	}
	if diff.AnchorTag != "2024-05-05" || diff.PreviousTag != "2024-05-02" {
		t.Fatalf("expected anchor 2024-05-05 vs previous 2024-05-02, got %+v", diff)
	}
}

func TestVersionDifferUnknownAnchorFallsBackToNewest(t *testing.T) {
	repo := &stubFormulaRepo{formulas: map[string]domain.FormulaDefinition{
		"CommonFun.CalcDef": taggedFormula("CommonFun.CalcDef", "2024-05-10", "return def * 3\n",
			domain.FormulaVersion{DatasetTag: "2024-05-05", Code: "return def\n"},
		),
	}}
	differ := NewVersionDiffer(repo)

	diff, err := differ.Diff(context.Background(), "CommonFun.CalcDef", "2023-01-01")
	if err != nil {
		t.Fatalf("diff returned error: %v", err)
	}
	if diff == nil || diff.AnchorTag != "2024-05-10" {
		t.Fatalf("expected fallback to the newest revision, got %+v", diff)
	}
}

func TestVersionDifferNothingToDiff(t *testing.T) {
	repo := &stubFormulaRepo{formulas: map[string]domain.FormulaDefinition{
		"CommonFun.Single": taggedFormula("CommonFun.Single", "2024-05-10", "return 1\n"),
		"CommonFun.Frozen": taggedFormula("CommonFun.Frozen", "2024-05-10", "return 1\n",
			domain.FormulaVersion{DatasetTag: "2024-05-05", Code: "return 1\n"},
			domain.FormulaVersion{DatasetTag: "2024-05-02", Code: "return 1\n"},
		),
	}}
	differ := NewVersionDiffer(repo)

	for _, name := range []string{"CommonFun.Single", "CommonFun.Frozen", "CommonFun.Missing"} {
		diff, err := differ.Diff(context.Background(), name, "")
		if err != nil {
			t.Fatalf("diff of %s returned error: %v", name, err)
		}
		if diff != nil {
			t.Fatalf("expected nil diff for %s, got %+v", name, diff)
		}
	}
}

func TestVersionDifferPropagatesStoreErrors(t *testing.T) {
	differ := NewVersionDiffer(&stubFormulaRepo{err: errStore})
	if _, err := differ.Diff(context.Background(), "CommonFun.CalcDamage", ""); err == nil {
		t.Fatalf("expected store error to propagate")
	}
}
