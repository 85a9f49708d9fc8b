package rules

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/zelonewolf/wikidata-qa/internal/model"
)

func flagStrings(flags []model.Flag) []string {
	if len(flags) == 0 {
		return nil
	}
	out := make([]string, len(flags))
	for i, f := range flags {
		out[i] = f.String()
	}
	return out
}

func TestValidate_AdministrativeMissingTags(t *testing.T) {
	v := NewValidator()

	rec := &model.BoundaryRecord{ID: "1", Kind: model.ElementRelation, Boundary: "administrative", Name: "Springfield"}
	got := flagStrings(v.Validate(rec))
	want := []string{
		"boundary=administrative: Missing expected tag: admin_level",
		"boundary=administrative: Missing expected tag: border_type",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Validate = %v, want %v", got, want)
	}

	// Fully tagged record passes.
	rec.AdminLevel = "8"
	rec.BorderType = "city"
	if got := v.Validate(rec); got != nil {
		t.Errorf("expected no flags, got %v", flagStrings(got))
	}
}

func TestValidate_CensusBorderTypeLiteral(t *testing.T) {
	v := NewValidator()

	rec := &model.BoundaryRecord{ID: "2", Boundary: "census", Name: "Vineyard Haven", BorderType: "town"}
	got := flagStrings(v.Validate(rec))
	want := []string{"boundary=census: Expected border_type=census_designated_place"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Validate = %v, want %v", got, want)
	}
}

func TestValidate_PlaceDisallowsAdminLevel(t *testing.T) {
	v := NewValidator()

	rec := &model.BoundaryRecord{ID: "3", Boundary: "place", Name: "Somewhere", AdminLevel: "8"}
	got := flagStrings(v.Validate(rec))
	want := []string{"boundary=place is set but admin_level=* is unexpected"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Validate = %v, want %v", got, want)
	}
}

func TestValidate_UnknownCategory(t *testing.T) {
	v := NewValidator()
	rec := &model.BoundaryRecord{ID: "4", Boundary: "maritime", Name: "Somewhere"}
	if got := v.Validate(rec); got != nil {
		t.Errorf("unknown category must not flag, got %v", flagStrings(got))
	}
}

func TestLoadValidator_OverridesOneCategory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	data := `- category: administrative
  required:
    admin_level: "8"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	v, err := LoadValidator(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := &model.BoundaryRecord{ID: "5", Boundary: "administrative", AdminLevel: "7", BorderType: "county"}
	got := flagStrings(v.Validate(rec))
	want := []string{"boundary=administrative: Expected admin_level=8"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Validate = %v, want %v", got, want)
	}

	// Untouched categories keep their defaults.
	cdp := &model.BoundaryRecord{ID: "6", Boundary: "census"}
	if got := flagStrings(v.Validate(cdp)); !reflect.DeepEqual(got, []string{"boundary=census: Missing expected tag: border_type"}) {
		t.Errorf("census default lost: %v", got)
	}
}

func TestLoadValidator_Errors(t *testing.T) {
	if _, err := LoadValidator(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("- required: {admin_level: \"*\"}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadValidator(path); err == nil {
		t.Errorf("expected error for rule without category")
	}
}

func TestCheckProperties(t *testing.T) {
	claims := map[string][]string{}
	lookup := func(p string) []string { return claims[p] }

	// Tag present, property absent.
	rec := &model.BoundaryRecord{Name: "Amherst", OfficialName: "Town of Amherst"}
	got := flagStrings(CheckProperties(rec, lookup))
	want := []string{`official_name is set but wikidata has no official name (P1448)`}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CheckProperties = %v, want %v", got, want)
	}

	// Property present, tag absent, distinct from primary name.
	claims["P1448"] = []string{"Town of Amherst"}
	rec = &model.BoundaryRecord{Name: "Amherst"}
	got = flagStrings(CheckProperties(rec, lookup))
	want = []string{`Wikidata official name (P1448) is "Town of Amherst"; consider adding official_name`}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CheckProperties = %v, want %v", got, want)
	}

	// Property just repeats the primary name: redundant, no flag.
	claims["P1448"] = []string{"Amherst"}
	if got := CheckProperties(rec, lookup); got != nil {
		t.Errorf("redundant official name must not flag, got %v", flagStrings(got))
	}

	// Both present and matching (semicolon list).
	claims["P1448"] = []string{"Town of Amherst"}
	rec = &model.BoundaryRecord{Name: "Amherst", OfficialName: "Amherst;Town of Amherst"}
	if got := CheckProperties(rec, lookup); got != nil {
		t.Errorf("matching values must not flag, got %v", flagStrings(got))
	}

	// Both present, disjoint.
	rec = &model.BoundaryRecord{Name: "Amherst", OfficialName: "City of Amherst"}
	got = flagStrings(CheckProperties(rec, lookup))
	want = []string{"official_name does not match wikidata official name (P1448)"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CheckProperties = %v, want %v", got, want)
	}
}
