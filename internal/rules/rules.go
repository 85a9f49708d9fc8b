// Package rules holds the data-driven tag validation tables: per-category
// required/disallowed tags, and tag-to-Wikidata-property correspondences.
package rules

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/zelonewolf/wikidata-qa/internal/model"
	"github.com/zelonewolf/wikidata-qa/internal/strutil"
	"github.com/zelonewolf/wikidata-qa/internal/wikidata"
)

// AnyValue marks a required tag that may hold any non-empty value.
const AnyValue = "*"

// CategoryRule lists the tag expectations for one boundary category.
// Required maps tag key to AnyValue or to the literal the tag must equal;
// Disallowed tags must be absent.
type CategoryRule struct {
	Category   string            `yaml:"category"`
	Required   map[string]string `yaml:"required,omitempty"`
	Disallowed []string          `yaml:"disallowed,omitempty"`
}

// Validator applies the category rule table to boundary records.
type Validator struct {
	rules map[string]CategoryRule
}

// DefaultRules is the built-in rule table.
func DefaultRules() []CategoryRule {
	return []CategoryRule{
		{
			Category: "administrative",
			Required: map[string]string{
				"admin_level": AnyValue,
				"border_type": AnyValue,
			},
		},
		{
			Category: "census",
			Required: map[string]string{
				"border_type": "census_designated_place",
			},
		},
		{
			Category: "statistical",
			Required: map[string]string{
				"border_type": AnyValue,
			},
		},
		{
			Category:   "place",
			Disallowed: []string{"admin_level"},
		},
	}
}

// NewValidator builds a validator over the default rule table.
func NewValidator() *Validator {
	return newValidator(DefaultRules())
}

// LoadValidator reads a YAML rule file. File entries replace the default
// rule for the same category; categories the file does not mention keep
// their defaults.
func LoadValidator(path string) (*Validator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var overrides []CategoryRule
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}

	v := newValidator(DefaultRules())
	for _, rule := range overrides {
		if rule.Category == "" {
			return nil, fmt.Errorf("rules file %s: rule without a category", path)
		}
		v.rules[rule.Category] = rule
	}
	return v, nil
}

func newValidator(rules []CategoryRule) *Validator {
	v := &Validator{rules: make(map[string]CategoryRule, len(rules))}
	for _, r := range rules {
		v.rules[r.Category] = r
	}
	return v
}

// Rules returns the active rule table sorted by category, for config show.
func (v *Validator) Rules() []CategoryRule {
	out := make([]CategoryRule, 0, len(v.rules))
	for _, r := range v.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// tagValue reads the record field backing an OSM tag key. Keys outside the
// extract's column set read as empty, which a rule then flags as missing.
func tagValue(rec *model.BoundaryRecord, key string) string {
	switch key {
	case "admin_level":
		return rec.AdminLevel
	case "border_type":
		return rec.BorderType
	case "name":
		return rec.Name
	case "name:en":
		return rec.NameEn
	case "alt_name":
		return rec.AltName
	case "short_name":
		return rec.ShortName
	case "official_name":
		return rec.OfficialName
	case "old_name":
		return rec.OldName
	case "wikidata":
		return rec.Wikidata
	case "wikipedia":
		return rec.Wikipedia
	}
	return ""
}

// Validate applies the category rule for the record's boundary value.
// An unknown category is logged but produces no flags; the table is
// intentionally non-exhaustive.
func (v *Validator) Validate(rec *model.BoundaryRecord) []model.Flag {
	rule, ok := v.rules[rec.Boundary]
	if !ok {
		if rec.Boundary != "" {
			fmt.Fprintf(os.Stderr, "Warning: no tag rules for boundary=%s (%s)\n", rec.Boundary, rec.PrefixedID())
		}
		return nil
	}

	var flags []model.Flag

	required := make([]string, 0, len(rule.Required))
	for key := range rule.Required {
		required = append(required, key)
	}
	sort.Strings(required)
	for _, key := range required {
		want := rule.Required[key]
		got := tagValue(rec, key)
		switch {
		case got == "":
			flags = append(flags, model.Flag{Kind: model.FlagMissingTag, Category: rec.Boundary, Tag: key})
		case want != AnyValue && got != want:
			flags = append(flags, model.Flag{Kind: model.FlagWrongTagValue, Category: rec.Boundary, Tag: key, Target: want})
		}
	}

	for _, key := range rule.Disallowed {
		if tagValue(rec, key) != "" {
			flags = append(flags, model.Flag{Kind: model.FlagUnexpectedTag, Category: rec.Boundary, Tag: key})
		}
	}
	return flags
}

// propertyRule ties an OSM tag to the Wikidata property carrying the same
// information.
type propertyRule struct {
	Tag      string
	Property string
	Label    string
}

var propertyRules = []propertyRule{
	{Tag: "official_name", Property: wikidata.PropOfficialName, Label: "official name"},
	{Tag: "short_name", Property: wikidata.PropShortName, Label: "short name"},
}

// CheckProperties runs the bidirectional tag/property correspondence
// checks. propertyValues reads the linked entity's claim values for a
// property. A property whose value just repeats the record's primary name
// does not demand an override tag.
func CheckProperties(rec *model.BoundaryRecord, propertyValues func(property string) []string) []model.Flag {
	var flags []model.Flag
	primary := append(strutil.CleanList(rec.Name), strutil.CleanList(rec.NameEn)...)

	for _, rule := range propertyRules {
		tagVal := tagValue(rec, rule.Tag)
		propVals := propertyValues(rule.Property)

		switch {
		case tagVal != "" && len(propVals) == 0:
			flags = append(flags, model.Flag{
				Kind:     model.FlagTagWithoutProperty,
				Tag:      rule.Tag,
				Property: rule.Property,
				Label:    rule.Label,
			})
		case tagVal == "" && len(propVals) > 0:
			if strutil.NamesMatch(primary, propVals) {
				continue
			}
			flags = append(flags, model.Flag{
				Kind:     model.FlagPropertyWithoutTag,
				Tag:      rule.Tag,
				Property: rule.Property,
				Label:    rule.Label,
				Value:    propVals[0],
			})
		case tagVal != "" && len(propVals) > 0:
			if !strutil.NamesMatch(strutil.CleanList(tagVal), propVals) {
				flags = append(flags, model.Flag{
					Kind:     model.FlagTagPropertyMismatch,
					Tag:      rule.Tag,
					Property: rule.Property,
					Label:    rule.Label,
				})
			}
		}
	}
	return flags
}
