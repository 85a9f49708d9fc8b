package pipeline

import (
	"context"
	"reflect"
	"testing"

	"github.com/zelonewolf/wikidata-qa/internal/census"
	"github.com/zelonewolf/wikidata-qa/internal/matcher"
	"github.com/zelonewolf/wikidata-qa/internal/model"
	"github.com/zelonewolf/wikidata-qa/internal/rules"
)

const (
	cdpListURL      = "https://www2.census.gov/geo/docs/maps-data/data/gazetteer/2024_Gazetteer/2024_gaz_place_25.txt"
	cityTownListURL = "state-MA-cities-towns.csv"
)

func newTestEvaluator(t *testing.T, fk fakeKnowledge, places *census.PlaceLists, cityTowns []matcher.Entity) (*Evaluator, *model.Findings) {
	t.Helper()
	cache := newTestCache(t, fk)
	findings := model.NewFindings("Massachusetts", "MA")
	ev := NewEvaluator(cache, rules.NewValidator(), places, cityTowns, findings, cdpListURL, cityTownListURL)
	return ev, findings
}

func TestEvaluate_SpringfieldScenario(t *testing.T) {
	fk := fakeKnowledge{entities: map[string]string{
		"Q28455":   entityJSON("Q28455", "Springfield", []string{"Q1093829"}, "", ""),
		"Q1093829": entityJSON("Q1093829", "city of the United States", nil, "", ""),
	}}
	places := placesWith(t, nil)
	cityTowns := []matcher.Entity{{ID: "Q28455", Name: "Springfield"}}
	ev, findings := newTestEvaluator(t, fk, places, cityTowns)

	rec := model.BoundaryRecord{
		ID: "123", Kind: model.ElementRelation, Boundary: "administrative",
		AdminLevel: "8", Name: "Springfield", Wikidata: "Q28455",
	}
	out := ev.Evaluate(context.Background(), rec)

	want := []string{
		"Missing OSM Relation ID (P402) in wikidata",
		"Wikidata instance of city (Q1093829) but border_type is not city",
		"boundary=administrative: Missing expected tag: border_type",
	}
	if got := flagTexts(out); !reflect.DeepEqual(got, want) {
		t.Errorf("flags = %v, want %v", got, want)
	}

	if out.P31 != "Q1093829" || out.P31Name != "city of the United States" {
		t.Errorf("P31 derivation wrong: %q / %q", out.P31, out.P31Name)
	}
	if out.P402 != "" {
		t.Errorf("P402 = %q, want empty", out.P402)
	}

	wantAdd := []model.PatchStatement{{QID: "Q28455", Property: "P402", Value: "r123"}}
	if !reflect.DeepEqual(findings.P402Adds, wantAdd) {
		t.Errorf("P402Adds = %v, want %v", findings.P402Adds, wantAdd)
	}
	if got := findings.RecommendedTags["r123"]["border_type"]; got != "city" {
		t.Errorf("recommended border_type = %q, want city", got)
	}

	// Claimed from the city/town universe: no synthetic row for it.
	if missing := ev.MissingRecords(context.Background()); len(missing) != 0 {
		t.Errorf("expected no missing rows, got %d", len(missing))
	}
}

func TestEvaluate_MissingWikidataWithReverseLink(t *testing.T) {
	fk := fakeKnowledge{reverse: map[string][]string{"77": {"Q9"}}}
	ev, findings := newTestEvaluator(t, fk, placesWith(t, nil), nil)
	ev.cache.WarmReverseLinks(context.Background(), []string{"77"})

	rec := model.BoundaryRecord{
		ID: "77", Kind: model.ElementRelation, Boundary: "administrative",
		AdminLevel: "8", BorderType: "town", Name: "Foo", Wikidata: "",
	}
	out := ev.Evaluate(context.Background(), rec)

	want := []string{"Missing wikidata", "P402 link found"}
	if got := flagTexts(out); !reflect.DeepEqual(got, want) {
		t.Errorf("flags = %v, want %v", got, want)
	}
	if out.P402Reverse != "Q9" {
		t.Errorf("P402Reverse = %q, want Q9", out.P402Reverse)
	}
	if got := findings.RecommendedTags["r77"]["wikidata"]; got != "Q9" {
		t.Errorf("recommended wikidata = %q, want Q9", got)
	}
}

func TestEvaluate_CDPNotOnCensusList(t *testing.T) {
	fk := fakeKnowledge{entities: map[string]string{
		"Q77":     entityJSON("Q77", "Example", []string{"Q498162"}, "555", ""),
		"Q498162": entityJSON("Q498162", "census-designated place in the United States", nil, "", ""),
	}}
	ev, _ := newTestEvaluator(t, fk, placesWith(t, nil), nil)

	rec := model.BoundaryRecord{
		ID: "555", Kind: model.ElementRelation, Boundary: "census",
		BorderType: "census_designated_place", Name: "Example", Wikidata: "Q77",
	}
	out := ev.Evaluate(context.Background(), rec)

	want := []string{"Not found in Census Bureau CDP list (" + cdpListURL + ")"}
	if got := flagTexts(out); !reflect.DeepEqual(got, want) {
		t.Errorf("flags = %v, want %v", got, want)
	}
}

func TestEvaluate_CDPClassOnAdminBoundary(t *testing.T) {
	fk := fakeKnowledge{entities: map[string]string{
		"Q77":     entityJSON("Q77", "Example", []string{"Q498162"}, "555", ""),
		"Q498162": entityJSON("Q498162", "census-designated place in the United States", nil, "", ""),
	}}
	places := placesWith(t, map[census.Category][]string{census.CategoryCDP: {"Example"}})
	cityTowns := []matcher.Entity{{ID: "Q77", Name: "Example"}}
	ev, findings := newTestEvaluator(t, fk, places, cityTowns)

	rec := model.BoundaryRecord{
		ID: "555", Kind: model.ElementRelation, Boundary: "administrative",
		AdminLevel: "8", BorderType: "hamlet", Name: "Example", Wikidata: "Q77",
	}
	out := ev.Evaluate(context.Background(), rec)

	want := []string{"Wikidata CDP / OSM admin boundary"}
	if got := flagTexts(out); !reflect.DeepEqual(got, want) {
		t.Errorf("flags = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(findings.PossibleCDPIDs, []string{"r555"}) {
		t.Errorf("PossibleCDPIDs = %v", findings.PossibleCDPIDs)
	}
}

func TestEvaluate_OSMCDPWithoutWikidataCDPClass(t *testing.T) {
	fk := fakeKnowledge{entities: map[string]string{
		"Q88": entityJSON("Q88", "Example", nil, "556", ""),
	}}
	places := placesWith(t, map[census.Category][]string{census.CategoryCDP: {"Example"}})
	ev, _ := newTestEvaluator(t, fk, places, nil)

	rec := model.BoundaryRecord{
		ID: "556", Kind: model.ElementRelation, Boundary: "census",
		BorderType: "census_designated_place", Name: "Example", Wikidata: "Q88",
	}
	out := ev.Evaluate(context.Background(), rec)

	want := []string{"OSM CDP / missing wikidata CDP"}
	if got := flagTexts(out); !reflect.DeepEqual(got, want) {
		t.Errorf("flags = %v, want %v", got, want)
	}
}

func TestEvaluate_CDPAdminLevel(t *testing.T) {
	fk := fakeKnowledge{entities: map[string]string{
		"Q77":     entityJSON("Q77", "Example", []string{"Q498162"}, "555", ""),
		"Q498162": entityJSON("Q498162", "census-designated place in the United States", nil, "", ""),
	}}
	places := placesWith(t, map[census.Category][]string{census.CategoryCDP: {"Example"}})
	ev, _ := newTestEvaluator(t, fk, places, nil)

	rec := model.BoundaryRecord{
		ID: "555", Kind: model.ElementRelation, Boundary: "census",
		AdminLevel: "8", BorderType: "census_designated_place", Name: "Example", Wikidata: "Q77",
	}
	out := ev.Evaluate(context.Background(), rec)

	want := []string{"CDP should not have admin_level"}
	if got := flagTexts(out); !reflect.DeepEqual(got, want) {
		t.Errorf("flags = %v, want %v", got, want)
	}
}

func TestEvaluate_WayAndFixme(t *testing.T) {
	ev, _ := newTestEvaluator(t, fakeKnowledge{}, placesWith(t, nil), nil)

	rec := model.BoundaryRecord{
		ID: "42", Kind: model.ElementWay, Boundary: "administrative",
		AdminLevel: "8", BorderType: "town", Name: "Foo", Fixme: "verify boundary",
	}
	out := ev.Evaluate(context.Background(), rec)

	got := flagTexts(out)
	if len(got) < 2 {
		t.Fatalf("flags = %v, want at least way and fixme", got)
	}
	if got[0] != "Boundary tagging on closed way instead of relation" {
		t.Errorf("first flag = %q", got[0])
	}
	if got[1] != "verify boundary" {
		t.Errorf("second flag = %q", got[1])
	}
}

func TestEvaluate_NameMismatch(t *testing.T) {
	fk := fakeKnowledge{entities: map[string]string{
		"Q50": entityJSON("Q50", "Somewhereville", nil, "200", ""),
	}}
	cityTowns := []matcher.Entity{{ID: "Q50", Name: "Springfield"}}
	ev, _ := newTestEvaluator(t, fk, placesWith(t, nil), cityTowns)

	rec := model.BoundaryRecord{
		ID: "200", Kind: model.ElementRelation, Boundary: "administrative",
		AdminLevel: "8", BorderType: "city", Name: "Springfield", Wikidata: "Q50",
	}
	out := ev.Evaluate(context.Background(), rec)

	want := []string{"Wikidata name mismatch"}
	if got := flagTexts(out); !reflect.DeepEqual(got, want) {
		t.Errorf("flags = %v, want %v", got, want)
	}
	if out.WikidataName != "Somewhereville" {
		t.Errorf("WikidataName = %q", out.WikidataName)
	}
}

func TestEvaluate_MismatchedIDAndForeignClaimCooccur(t *testing.T) {
	fk := fakeKnowledge{
		entities: map[string]string{
			"Q60": entityJSON("Q60", "Foo", nil, "999", ""),
		},
		reverse: map[string][]string{"123": {"Q61"}},
	}
	cityTowns := []matcher.Entity{{ID: "Q60", Name: "Foo"}}
	ev, findings := newTestEvaluator(t, fk, placesWith(t, nil), cityTowns)
	ev.cache.WarmReverseLinks(context.Background(), []string{"123"})

	rec := model.BoundaryRecord{
		ID: "123", Kind: model.ElementRelation, Boundary: "administrative",
		AdminLevel: "8", BorderType: "town", Name: "Foo", Wikidata: "Q60",
	}
	out := ev.Evaluate(context.Background(), rec)

	want := []string{"Mismatched OSM ID", "Mismatched P402 link"}
	if got := flagTexts(out); !reflect.DeepEqual(got, want) {
		t.Errorf("flags = %v, want %v", got, want)
	}

	wantRemovals := []model.PatchStatement{
		{QID: "Q60", Property: "P402", Value: "r999"},
		{QID: "Q61", Property: "P402", Value: "r123"},
	}
	if !reflect.DeepEqual(findings.P402Removals, wantRemovals) {
		t.Errorf("P402Removals = %v, want %v", findings.P402Removals, wantRemovals)
	}
}

func TestMissingRecords(t *testing.T) {
	fk := fakeKnowledge{entities: map[string]string{
		"Q1": entityJSON("Q1", "Springfield", nil, "", ""),
		"Q2": entityJSON("Q2", "Springfield", nil, "", ""),
	}}
	places := placesWith(t, map[census.Category][]string{census.CategoryTown: {"Agawam"}})
	cityTowns := []matcher.Entity{
		{ID: "Q1", Name: "Springfield"},
		{ID: "Q2", Name: "Springfield"},
	}
	ev, _ := newTestEvaluator(t, fk, places, cityTowns)

	missing := ev.MissingRecords(context.Background())
	if len(missing) != 3 {
		t.Fatalf("expected 3 missing rows, got %d", len(missing))
	}

	agawam := missing[0]
	if agawam.Name != "Agawam" {
		t.Errorf("first missing row = %q, want Agawam", agawam.Name)
	}
	wantAgawam := []string{"Missing from OSM: Census Bureau town list (" + cdpListURL + ")"}
	if got := flagTexts(agawam); !reflect.DeepEqual(got, wantAgawam) {
		t.Errorf("flags = %v, want %v", got, wantAgawam)
	}

	for i, row := range missing[1:] {
		if row.Name != "Springfield" {
			t.Errorf("row %d name = %q", i+1, row.Name)
		}
		got := flagTexts(row)
		want := []string{
			"Missing from OSM: Wikidata city/town list (" + cityTownListURL + ")",
			"Multiple Wikidata entities share this name: Q1, Q2",
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("row %d flags = %v, want %v", i+1, got, want)
		}
	}
	if missing[1].Wikidata != "Q1" || missing[2].Wikidata != "Q2" {
		t.Errorf("missing rows keep load order: %q, %q", missing[1].Wikidata, missing[2].Wikidata)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	fk := fakeKnowledge{entities: map[string]string{
		"Q28455":   entityJSON("Q28455", "Springfield", []string{"Q1093829"}, "", ""),
		"Q1093829": entityJSON("Q1093829", "city of the United States", nil, "", ""),
	}}
	cache := newTestCache(t, fk)
	places := placesWith(t, map[census.Category][]string{census.CategoryCity: {"Springfield"}})

	rec := model.BoundaryRecord{
		ID: "123", Kind: model.ElementRelation, Boundary: "administrative",
		AdminLevel: "8", Name: "Springfield", Wikidata: "Q28455",
	}

	run := func() string {
		findings := model.NewFindings("Massachusetts", "MA")
		ev := NewEvaluator(cache, rules.NewValidator(), places,
			[]matcher.Entity{{ID: "Q28455", Name: "Springfield"}}, findings, cdpListURL, cityTownListURL)
		out := ev.Evaluate(context.Background(), rec)
		return out.FlagString()
	}

	first := run()
	second := run()
	if first != second {
		t.Errorf("evaluator not deterministic:\n%s\n%s", first, second)
	}
	if first == "" {
		t.Errorf("expected flags in determinism scenario")
	}
}
