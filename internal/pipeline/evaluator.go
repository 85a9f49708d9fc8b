// Package pipeline orchestrates a state run: input loading, cache warm-up,
// per-record flag evaluation, the missing-entity post-pass, and artifact
// rendering.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/zelonewolf/wikidata-qa/internal/census"
	"github.com/zelonewolf/wikidata-qa/internal/matcher"
	"github.com/zelonewolf/wikidata-qa/internal/model"
	"github.com/zelonewolf/wikidata-qa/internal/rules"
	"github.com/zelonewolf/wikidata-qa/internal/strutil"
	"github.com/zelonewolf/wikidata-qa/internal/wikidata"
)

// Evaluator is the per-record decision procedure. It reads the warmed
// knowledge cache, claims names from the reference universes, and emits
// typed flags plus patch suggestions into the findings accumulator.
//
// The only mutable state across records is the set of unfound tracking
// lists and the findings accumulator; the cache is read-only after warm-up.
type Evaluator struct {
	cache     *wikidata.Cache
	validator *rules.Validator
	places    *census.PlaceLists
	cityTowns *matcher.Universe
	censusUni []censusUniverse
	findings  *model.Findings

	cdpListURL      string
	cityTownListURL string
}

type censusUniverse struct {
	cat census.Category
	u   *matcher.Universe
}

// NewEvaluator wires an evaluator for one state run. cityTownEntities is
// the Wikidata cities/towns list with aliases already resolved from the
// cache.
func NewEvaluator(cache *wikidata.Cache, validator *rules.Validator, places *census.PlaceLists,
	cityTownEntities []matcher.Entity, findings *model.Findings, cdpListURL, cityTownListURL string) *Evaluator {

	nameEntities := func(names []string) []matcher.Entity {
		out := make([]matcher.Entity, len(names))
		for i, n := range names {
			out[i] = matcher.Entity{Name: n}
		}
		return out
	}

	return &Evaluator{
		cache:     cache,
		validator: validator,
		places:    places,
		cityTowns: matcher.NewUniverse("wikidata cities/towns", cityTownEntities),
		censusUni: []censusUniverse{
			{census.CategoryCity, matcher.NewUniverse("census cities", nameEntities(places.Cities))},
			{census.CategoryTown, matcher.NewUniverse("census towns", nameEntities(places.Towns))},
			{census.CategoryVillage, matcher.NewUniverse("census villages", nameEntities(places.Villages))},
		},
		findings:        findings,
		cdpListURL:      cdpListURL,
		cityTownListURL: cityTownListURL,
	}
}

// Evaluate runs one boundary record through the full flag taxonomy. Flags
// land in the order they are checked; the order matters only for report
// readability.
func (e *Evaluator) Evaluate(ctx context.Context, rec model.BoundaryRecord) model.ProcessedRecord {
	out := model.ProcessedRecord{BoundaryRecord: rec}

	if rec.Kind == model.ElementWay {
		out.Flags = append(out.Flags, model.Flag{Kind: model.FlagWayTagging})
	}
	if rec.Fixme != "" {
		out.Flags = append(out.Flags, model.Flag{Kind: model.FlagFixme, Text: rec.Fixme})
	}

	var entityLabel string
	var entityOfficial []string
	if rec.Wikidata != "" {
		entityLabel = e.cache.Label(ctx, rec.Wikidata)
		entityOfficial = e.cache.OfficialNames(ctx, rec.Wikidata)
	}
	candidates := matcher.CandidateNames(&rec, entityLabel, entityOfficial)

	// Every record claims from the reference universes regardless of its
	// other findings; the residue becomes the missing-entity post-pass.
	cityTownMember := e.cityTowns.Claim(candidates)
	for _, cu := range e.censusUni {
		cu.u.Claim(candidates)
	}

	if rec.Wikidata == "" {
		out.Flags = append(out.Flags, model.Flag{Kind: model.FlagMissingWikidata})
		if reverse := e.cache.ReverseFor(rec.ID); len(reverse) > 0 {
			out.P402Reverse = strings.Join(reverse, ",")
			out.Flags = append(out.Flags, model.Flag{Kind: model.FlagReverseLinkFound})
			e.findings.RecommendTag(rec.PrefixedID(), "wikidata", reverse[0])
		}
	} else {
		e.evaluateEntity(ctx, &out, candidates, cityTownMember)
		claims := func(property string) []string {
			ent, ok := e.cache.Entity(ctx, rec.Wikidata)
			if !ok {
				return nil
			}
			return ent.ClaimTexts(property)
		}
		for _, f := range rules.CheckProperties(&rec, claims) {
			out.Flags = append(out.Flags, f)
			if f.Kind == model.FlagPropertyWithoutTag {
				e.findings.RecommendTag(rec.PrefixedID(), f.Tag, f.Value)
			}
		}
	}

	out.Flags = append(out.Flags, e.validator.Validate(&rec)...)
	return out
}

func (e *Evaluator) evaluateEntity(ctx context.Context, out *model.ProcessedRecord, candidates []string, cityTownMember bool) {
	rec := &out.BoundaryRecord
	qid := rec.Wikidata
	prefixed := rec.PrefixedID()
	flag := func(f model.Flag) { out.Flags = append(out.Flags, f) }

	if target := e.cache.Redirect(qid); target != "" && target != qid {
		flag(model.Flag{Kind: model.FlagRedirect, Entity: qid, Target: target})
	}

	names := e.cache.Names(ctx, qid)
	derived := e.cache.Derived(ctx, qid)
	reverse := e.cache.ReverseFor(rec.ID)

	out.P31 = strings.Join(derived.InstanceOf, ";")
	out.P31Name = strings.Join(derived.InstanceOfNames, ";")
	out.P131 = derived.ContainedIn
	out.P131Name = derived.ContainedInName
	out.P402 = derived.OSMRelation
	out.P402Reverse = strings.Join(reverse, ",")
	out.WikidataName = strings.Join(names, ";")

	if !strutil.NamesMatch(candidates, strutil.ExpandAbbreviationsList(names)) {
		flag(model.Flag{Kind: model.FlagNameMismatch})
	}

	// P402 completeness. "Mismatched OSM ID" and "Mismatched P402 link"
	// are independent checks and may co-occur, in that order.
	switch {
	case derived.OSMRelation == "":
		flag(model.Flag{Kind: model.FlagMissingP402})
		e.findings.P402Adds = append(e.findings.P402Adds, model.PatchStatement{
			QID: qid, Property: wikidata.PropOSMRelation, Value: prefixed,
		})
	case derived.OSMRelation != prefixed:
		flag(model.Flag{Kind: model.FlagMismatchedOSMID})
		e.findings.P402Removals = append(e.findings.P402Removals, model.PatchStatement{
			QID: qid, Property: wikidata.PropOSMRelation, Value: derived.OSMRelation,
		})
	case len(derived.OSMRelationAll) > 1:
		flag(model.Flag{Kind: model.FlagMismatchedReverseLink})
	}

	// Foreign entities claiming this OSM id.
	if len(reverse) > 0 && !containsString(reverse, qid) {
		flag(model.Flag{Kind: model.FlagMismatchedP402Link})
		for _, other := range reverse {
			e.findings.P402Removals = append(e.findings.P402Removals, model.PatchStatement{
				QID: other, Property: wikidata.PropOSMRelation, Value: prefixed,
			})
		}
	}

	if cls := firstIntersection(derived.InstanceOf, wikidata.CityClassQIDs()); cls != "" && rec.BorderType != "city" {
		flag(model.Flag{Kind: model.FlagInstanceOfCity, Entity: cls})
		e.findings.RecommendTag(prefixed, "border_type", "city")
	}

	if cats := e.places.IncorporatedCategories(candidates); len(cats) > 0 {
		agrees := false
		for _, cat := range cats {
			if cat.BorderType() == rec.BorderType {
				agrees = true
				break
			}
		}
		if !agrees {
			flag(model.Flag{Kind: model.FlagCensusCategory, Category: string(cats[0]), Value: rec.BorderType})
			// Ambiguous when the name sits on more than one list.
			if len(cats) == 1 {
				e.findings.RecommendTag(prefixed, "border_type", cats[0].BorderType())
			}
		}
	}

	if rec.AdminCentreCount > 0 {
		flag(model.Flag{Kind: model.FlagAdminCentreRole})
		e.findings.AdminCentreIDs = append(e.findings.AdminCentreIDs, prefixed)
	}

	isCDPClass := firstIntersection(derived.InstanceOf, wikidata.CDPClassQIDs()) != ""
	if isCDPClass && rec.Boundary == "administrative" {
		flag(model.Flag{Kind: model.FlagCDPAdminBoundary})
		e.findings.PossibleCDPIDs = append(e.findings.PossibleCDPIDs, prefixed)
	}
	if rec.Boundary == "census" && !isCDPClass {
		flag(model.Flag{Kind: model.FlagOSMCDPNotWikidata})
	}

	if rec.Boundary == "administrative" && !cityTownMember {
		flag(model.Flag{Kind: model.FlagNotInCityTownList, URL: e.cityTownListURL})
	}
	if rec.Boundary == "census" && !e.places.HasCDP(candidates) {
		flag(model.Flag{Kind: model.FlagNotInCDPList, URL: e.cdpListURL})
	}

	if rec.Boundary == "census" && rec.AdminLevel != "" {
		flag(model.Flag{Kind: model.FlagCDPAdminLevel})
	}

	if rec.Wikipedia != "" {
		if f, ok := CheckWikipediaMatch(ctx, e.cache, qid, rec.Wikipedia); ok {
			flag(f)
		}
	}
}

// MissingRecords synthesizes one flagged placeholder row per reference
// entity never claimed by any processed record, census lists first. Known
// Wikidata identity fields are filled best-effort from the cache.
func (e *Evaluator) MissingRecords(ctx context.Context) []model.ProcessedRecord {
	var out []model.ProcessedRecord

	for _, cu := range e.censusUni {
		label := fmt.Sprintf("Census Bureau %s list", cu.cat)
		for _, ent := range cu.u.Remaining() {
			rec := model.ProcessedRecord{BoundaryRecord: model.BoundaryRecord{Name: ent.Name}}
			rec.Flags = append(rec.Flags, model.Flag{Kind: model.FlagMissingFromOSM, Label: label, URL: e.cdpListURL})
			out = append(out, rec)
		}
	}

	for _, ent := range e.cityTowns.Remaining() {
		rec := model.ProcessedRecord{BoundaryRecord: model.BoundaryRecord{Name: ent.Name, Wikidata: ent.ID}}
		derived := e.cache.Derived(ctx, ent.ID)
		rec.P31 = strings.Join(derived.InstanceOf, ";")
		rec.P31Name = strings.Join(derived.InstanceOfNames, ";")
		rec.P131 = derived.ContainedIn
		rec.P131Name = derived.ContainedInName
		rec.P402 = derived.OSMRelation
		rec.WikidataName = strings.Join(e.cache.Names(ctx, ent.ID), ";")

		rec.Flags = append(rec.Flags, model.Flag{Kind: model.FlagMissingFromOSM, Label: "Wikidata city/town list", URL: e.cityTownListURL})
		if ids := e.cityTowns.DuplicateIDs(ent.Name); len(ids) > 1 {
			rec.Flags = append(rec.Flags, model.Flag{Kind: model.FlagDuplicateEntities, IDs: ids})
		}
		out = append(out, rec)
	}
	return out
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// firstIntersection returns the first element of a that also appears in b.
func firstIntersection(a, b []string) string {
	for _, x := range a {
		if containsString(b, x) {
			return x
		}
	}
	return ""
}
