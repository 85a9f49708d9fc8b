package model

import "strings"

// ElementKind is the OSM element type a boundary was extracted from.
type ElementKind string

const (
	ElementRelation ElementKind = "relation"
	ElementWay      ElementKind = "way"
)

// BoundaryRecord is one row of an Overpass boundary extract.
type BoundaryRecord struct {
	ID           string      // raw numeric OSM id
	Kind         ElementKind // relation or way
	Boundary     string      // administrative, census, statistical, place, ...
	AdminLevel   string
	BorderType   string // city, town, village, census_designated_place, ...
	Name         string
	NameEn       string // name:en, overrides Name when present
	AltName      string
	ShortName    string
	OfficialName string
	OldName      string
	Wikidata     string // Q-id
	Wikipedia    string // lang:Title
	Fixme        string

	// Precomputed upstream: number of members carrying the admin_centre role.
	AdminCentreCount int
}

// PrefixedID returns the type-prefixed id ("r123" for relations, "w123"
// for ways). The prefix carries meaning downstream: way-sourced boundaries
// are always flagged.
func (r *BoundaryRecord) PrefixedID() string {
	if r.Kind == ElementWay {
		return "w" + r.ID
	}
	return "r" + r.ID
}

// ProcessedRecord is a BoundaryRecord annotated with Wikidata-derived
// fields and the flags produced by the evaluator.
type ProcessedRecord struct {
	BoundaryRecord

	P31          string // instance-of ids, ;-joined
	P31Name      string
	P131         string // contained-in id
	P131Name     string
	P402         string // OSM id claimed by the entity, type-prefixed
	P402Reverse  string // entities pointing back at this OSM id, comma-joined
	WikidataName string // label + aliases, ;-joined

	Flags []Flag
}

// FlagString renders the accumulated flags as the stored flags field.
func (r *ProcessedRecord) FlagString() string {
	if len(r.Flags) == 0 {
		return ""
	}
	parts := make([]string, len(r.Flags))
	for i, f := range r.Flags {
		parts[i] = f.String()
	}
	return strings.Join(parts, ";")
}

// Flagged reports whether the record belongs in the flagged output stream.
func (r *ProcessedRecord) Flagged() bool {
	return len(r.Flags) > 0
}
