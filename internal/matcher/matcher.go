// Package matcher reconciles OSM candidate names against reference
// universes (Wikidata cities/towns, Census place lists) and tracks which
// reference entities no OSM record ever claimed.
package matcher

import (
	"github.com/zelonewolf/wikidata-qa/internal/model"
	"github.com/zelonewolf/wikidata-qa/internal/strutil"
)

// Entity is one reference-universe member. Census entities carry no ID and
// no aliases.
type Entity struct {
	ID      string
	Name    string
	Aliases []string
}

// CandidateNames assembles a record's full normalized, alias-expanded name
// candidate set. name:en overrides the primary name outright. When the
// record's official_name matches one of the linked entity's official-name
// claims, the entity label joins the candidates; that covers jurisdictional
// prefixes like "Town of X" where OSM and Wikidata agree on the official
// form but not the display name.
func CandidateNames(rec *model.BoundaryRecord, entityLabel string, entityOfficialNames []string) []string {
	primary := rec.Name
	if rec.NameEn != "" {
		primary = rec.NameEn
	}

	var candidates []string
	seen := make(map[string]struct{})
	add := func(names []string) {
		for _, n := range strutil.ExpandAbbreviationsList(names) {
			if n == "" {
				continue
			}
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			candidates = append(candidates, n)
		}
	}

	add(strutil.CleanList(primary))
	add(strutil.CleanList(rec.AltName))
	add(strutil.CleanList(rec.ShortName))
	add(strutil.CleanList(rec.OfficialName))
	add(strutil.CleanList(rec.OldName))

	if rec.OfficialName != "" && entityLabel != "" {
		for _, official := range entityOfficialNames {
			if official == rec.OfficialName {
				add([]string{strutil.Clean(entityLabel)})
				break
			}
		}
	}

	return candidates
}

// Universe is one reference list with its monotonically-shrinking unfound
// tracking list.
type Universe struct {
	name    string
	unfound []Entity
	dupIDs  map[string][]string // normalized name -> every id sharing it
}

// NewUniverse loads a universe. Duplicate normalized names are indexed up
// front so residual duplicates can be enumerated at the end of a run.
func NewUniverse(name string, entities []Entity) *Universe {
	u := &Universe{
		name:    name,
		unfound: append([]Entity(nil), entities...),
		dupIDs:  make(map[string][]string),
	}
	for _, e := range entities {
		if e.ID == "" {
			continue
		}
		norm := strutil.Clean(e.Name)
		u.dupIDs[norm] = append(u.dupIDs[norm], e.ID)
	}
	return u
}

// Name returns the universe's report label.
func (u *Universe) Name() string {
	return u.name
}

// matches reports whether any candidate matches the entity's canonical or
// alias names.
func matches(candidates []string, e Entity) bool {
	if strutil.NamesMatch(candidates, []string{e.Name}) {
		return true
	}
	return strutil.NamesMatch(candidates, e.Aliases)
}

// Claim reports whether any candidate name is (or was) a member of the
// universe, removing the first still-unfound match from the tracking list.
// Claiming the same name twice returns true both times; only the first
// claim shrinks the list.
func (u *Universe) Claim(candidates []string) bool {
	if len(candidates) == 0 {
		return false
	}
	for i, e := range u.unfound {
		if matches(candidates, e) {
			u.unfound = append(u.unfound[:i], u.unfound[i+1:]...)
			return true
		}
	}
	// Already-claimed duplicates still count as members.
	for _, c := range candidates {
		if ids := u.dupIDs[strutil.Clean(c)]; len(ids) > 0 {
			return true
		}
	}
	return false
}

// Remaining returns the never-claimed entities in load order.
func (u *Universe) Remaining() []Entity {
	return append([]Entity(nil), u.unfound...)
}

// DuplicateIDs returns every id loaded under the entity's normalized name;
// more than one means the name is ambiguous in the source list.
func (u *Universe) DuplicateIDs(name string) []string {
	return u.dupIDs[strutil.Clean(name)]
}
