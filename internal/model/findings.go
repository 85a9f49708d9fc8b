package model

// PatchStatement is one proposed Wikidata edit, formatted for bulk editing
// tools. Statements are collected, never applied.
type PatchStatement struct {
	QID      string // target entity
	Property string // e.g. P402
	Value    string // e.g. r123
}

// FilterSuggestion groups flagged ids into a bulk-edit filter expression
// for external editor queries.
type FilterSuggestion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Filter      string `json:"filter"`
}

// ReferencePlace is one entry of the Wikidata cities/towns reference list,
// kept for the report artifact flags link to.
type ReferencePlace struct {
	QID  string
	Name string
}

// Findings is everything one state run produces before rendering.
type Findings struct {
	State        string
	StateAbbrev  string
	Processed    []ProcessedRecord
	Flagged      []ProcessedRecord
	P402Adds     []PatchStatement
	P402Removals []PatchStatement
	CityTowns    []ReferencePlace

	// RecommendedTags maps a type-prefixed OSM id to suggested tag writes.
	RecommendedTags map[string]map[string]string

	// Id sets collected for bulk-edit filters.
	AdminCentreIDs []string
	PossibleCDPIDs []string
}

// NewFindings returns an empty findings accumulator for one state.
func NewFindings(state, abbrev string) *Findings {
	return &Findings{
		State:           state,
		StateAbbrev:     abbrev,
		RecommendedTags: make(map[string]map[string]string),
	}
}

// RecommendTag queues a tag suggestion for an OSM element.
func (f *Findings) RecommendTag(osmID, key, value string) {
	m, ok := f.RecommendedTags[osmID]
	if !ok {
		m = make(map[string]string)
		f.RecommendedTags[osmID] = m
	}
	m[key] = value
}

// Add appends a processed record, routing it to the flagged stream when it
// carries at least one flag.
func (f *Findings) Add(rec ProcessedRecord) {
	f.Processed = append(f.Processed, rec)
	if rec.Flagged() {
		f.Flagged = append(f.Flagged, rec)
	}
}
