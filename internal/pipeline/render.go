package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zelonewolf/wikidata-qa/internal/model"
)

// csvColumns is the fixed column order of the full and flagged CSVs.
var csvColumns = []string{
	"@id", "wikidata", "boundary", "admin_level", "name", "wikidata_name",
	"P31", "P31_name", "P131", "P131_name", "P402", "P402_reverse", "flags",
}

func fullFileName(abbrev string) string        { return fmt.Sprintf("state-%s.csv", abbrev) }
func flaggedFileName(abbrev string) string     { return fmt.Sprintf("state-%s-flagged.csv", abbrev) }
func p402AddFileName(abbrev string) string     { return fmt.Sprintf("state-%s-P402-add.csv", abbrev) }
func p402RemoveFileName(abbrev string) string  { return fmt.Sprintf("state-%s-P402-remove.csv", abbrev) }
func filtersFileName(abbrev string) string     { return fmt.Sprintf("state-%s-filters.json", abbrev) }
func tagsFileName(abbrev string) string        { return fmt.Sprintf("state-%s-recommended-tags.json", abbrev) }
func cityTownFileName(abbrev string) string    { return fmt.Sprintf("state-%s-cities-towns.csv", abbrev) }
func findingsCountFileName(abbrev string) string {
	return fmt.Sprintf("state-%s-findings.csv", abbrev)
}

// Renderer writes the output artifacts of one state run into a directory.
// All artifacts are written even when a run produced no findings; empty
// files beat absent ones for downstream tooling.
type Renderer struct {
	dir string
}

// NewRenderer returns a renderer targeting dir, which is created on the
// first write.
func NewRenderer(dir string) *Renderer {
	return &Renderer{dir: dir}
}

// Write renders every artifact for the findings of one state.
func (r *Renderer) Write(f *model.Findings) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	ab := f.StateAbbrev
	if err := r.writeRecords(fullFileName(ab), f.Processed); err != nil {
		return err
	}
	if err := r.writeRecords(flaggedFileName(ab), f.Flagged); err != nil {
		return err
	}
	if err := r.writeStatements(p402AddFileName(ab), f.P402Adds, false); err != nil {
		return err
	}
	if err := r.writeStatements(p402RemoveFileName(ab), f.P402Removals, true); err != nil {
		return err
	}
	if err := r.writeFilters(filtersFileName(ab), f); err != nil {
		return err
	}
	if err := r.writeJSON(tagsFileName(ab), f.RecommendedTags); err != nil {
		return err
	}
	if err := r.writeCityTowns(cityTownFileName(ab), f.CityTowns); err != nil {
		return err
	}
	return r.writeFindingsCount(findingsCountFileName(ab), f)
}

func (r *Renderer) writeRecords(name string, records []model.ProcessedRecord) error {
	file, err := os.Create(filepath.Join(r.dir, name))
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer func() { _ = file.Close() }()

	w := csv.NewWriter(file)
	if err := w.Write(csvColumns); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	for i := range records {
		rec := &records[i]
		id := ""
		if rec.ID != "" {
			id = rec.PrefixedID()
		}
		row := []string{
			id, rec.Wikidata, rec.Boundary, rec.AdminLevel, rec.Name, rec.WikidataName,
			rec.P31, rec.P31Name, rec.P131, rec.P131Name, rec.P402, rec.P402Reverse,
			rec.FlagString(),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	w.Flush()
	return w.Error()
}

// writeStatements renders QuickStatements rows, one `qid,"value"` line per
// statement with the value under the P402 header column; removal statements
// carry the leading minus QuickStatements expects. The value is quoted by
// hand because its quotes are statement syntax, not CSV escaping.
func (r *Renderer) writeStatements(name string, statements []model.PatchStatement, removal bool) error {
	var b strings.Builder
	b.WriteString("qid,P402\n")
	for _, s := range statements {
		qid := s.QID
		if removal {
			qid = "-" + qid
		}
		fmt.Fprintf(&b, "%s,\"%s\"\n", qid, s.Value)
	}
	return r.writeFile(name, []byte(b.String()))
}

func (r *Renderer) writeFilters(name string, f *model.Findings) error {
	filters := []model.FilterSuggestion{}
	if len(f.PossibleCDPIDs) > 0 {
		filters = append(filters, model.FilterSuggestion{
			Title:       "Possible CDPs tagged boundary=administrative",
			Description: "Wikidata types these as census-designated or unincorporated places; review the boundary classification.",
			Filter:      idDisjunction(f.PossibleCDPIDs),
		})
	}
	if len(f.AdminCentreIDs) > 0 {
		filters = append(filters, model.FilterSuggestion{
			Title:       "Relations using the admin_centre role",
			Description: "These boundary relations should use the label role instead of admin_centre.",
			Filter:      idDisjunction(f.AdminCentreIDs),
		})
	}
	return r.writeJSON(name, filters)
}

func idDisjunction(ids []string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = "id:" + strings.TrimLeft(id, "rw")
	}
	return strings.Join(parts, " or ")
}

func (r *Renderer) writeCityTowns(name string, places []model.ReferencePlace) error {
	file, err := os.Create(filepath.Join(r.dir, name))
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer func() { _ = file.Close() }()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"wikidata", "name"}); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	for _, p := range places {
		if err := w.Write([]string{p.QID, p.Name}); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	w.Flush()
	return w.Error()
}

func (r *Renderer) writeFindingsCount(name string, f *model.Findings) error {
	content := fmt.Sprintf("state,processed,flagged\n%s,%d,%d\n", f.State, len(f.Processed), len(f.Flagged))
	return r.writeFile(name, []byte(content))
}

func (r *Renderer) writeJSON(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	return r.writeFile(name, append(data, '\n'))
}

func (r *Renderer) writeFile(name string, data []byte) error {
	if err := os.WriteFile(filepath.Join(r.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
