package overpass

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/zelonewolf/wikidata-qa/internal/model"
)

// ParseExtract reads an Overpass CSV extract (header row required) into
// boundary records. Unknown columns are ignored so extracts with extra
// precomputed fields keep working.
func ParseExtract(r io.Reader) ([]model.BoundaryRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read extract header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	if _, ok := col["@id"]; !ok {
		return nil, fmt.Errorf("extract is missing the @id column")
	}

	field := func(row []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var records []model.BoundaryRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read extract row: %w", err)
		}

		rec := model.BoundaryRecord{
			ID:           field(row, "@id"),
			Kind:         model.ElementKind(field(row, "@type")),
			Boundary:     field(row, "boundary"),
			AdminLevel:   field(row, "admin_level"),
			BorderType:   field(row, "border_type"),
			Name:         field(row, "name"),
			NameEn:       field(row, "name:en"),
			AltName:      field(row, "alt_name"),
			ShortName:    field(row, "short_name"),
			OfficialName: field(row, "official_name"),
			OldName:      field(row, "old_name"),
			Wikidata:     field(row, "wikidata"),
			Wikipedia:    field(row, "wikipedia"),
			Fixme:        field(row, "fixme"),
		}
		if rec.ID == "" {
			continue
		}
		if rec.Kind == "" {
			rec.Kind = model.ElementRelation
		}
		if count := field(row, "count_admin_centre"); count != "" {
			if n, err := strconv.Atoi(count); err == nil {
				rec.AdminCentreCount = n
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
