package model

import (
	"fmt"
	"strings"
)

// FlagKind classifies a data-quality finding on a boundary record.
type FlagKind string

const (
	FlagWayTagging            FlagKind = "way_tagging"
	FlagFixme                 FlagKind = "fixme"
	FlagMissingWikidata       FlagKind = "missing_wikidata"
	FlagReverseLinkFound      FlagKind = "reverse_link_found"
	FlagRedirect              FlagKind = "wikidata_redirect"
	FlagNameMismatch          FlagKind = "name_mismatch"
	FlagMissingP402           FlagKind = "missing_p402"
	FlagMismatchedOSMID       FlagKind = "mismatched_osm_id"
	FlagMismatchedP402Link    FlagKind = "mismatched_p402_link"
	FlagMismatchedReverseLink FlagKind = "mismatched_reverse_link"
	FlagInstanceOfCity        FlagKind = "instance_of_city"
	FlagCensusCategory        FlagKind = "census_category"
	FlagAdminCentreRole       FlagKind = "admin_centre_role"
	FlagCDPAdminBoundary      FlagKind = "cdp_admin_boundary"
	FlagOSMCDPNotWikidata     FlagKind = "osm_cdp_not_wikidata"
	FlagNotInCityTownList     FlagKind = "not_in_citytown_list"
	FlagNotInCDPList          FlagKind = "not_in_cdp_list"
	FlagCDPAdminLevel         FlagKind = "cdp_admin_level"
	FlagMissingTag            FlagKind = "missing_tag"
	FlagWrongTagValue         FlagKind = "wrong_tag_value"
	FlagUnexpectedTag         FlagKind = "unexpected_tag"
	FlagTagWithoutProperty    FlagKind = "tag_without_property"
	FlagPropertyWithoutTag    FlagKind = "property_without_tag"
	FlagTagPropertyMismatch   FlagKind = "tag_property_mismatch"
	FlagWikipediaMalformed    FlagKind = "wikipedia_malformed"
	FlagWikipediaNoSitelinks  FlagKind = "wikipedia_no_sitelinks"
	FlagWikipediaNoLang       FlagKind = "wikipedia_no_lang"
	FlagWikipediaMismatch     FlagKind = "wikipedia_mismatch"
	FlagMissingFromOSM        FlagKind = "missing_from_osm"
	FlagDuplicateEntities     FlagKind = "duplicate_entities"
)

// Flag is a typed finding with structured payload. The String rendering is
// what lands in the flags CSV column; the structured form keeps the
// taxonomy testable independently of formatting.
type Flag struct {
	Kind FlagKind

	Entity   string   // Wikidata Q-id involved
	Target   string   // redirect target / expected value
	Tag      string   // OSM tag key
	Property string   // Wikidata property id (P1448, ...)
	Label    string   // human name of Property
	Category string   // boundary or place category
	Value    string   // offending or suggested value
	URL      string   // authority source link
	Text     string   // verbatim payload (fixme, wikipedia titles)
	IDs      []string // conflicting entity ids
}

func (f Flag) String() string {
	switch f.Kind {
	case FlagWayTagging:
		return "Boundary tagging on closed way instead of relation"
	case FlagFixme:
		return f.Text
	case FlagMissingWikidata:
		return "Missing wikidata"
	case FlagReverseLinkFound:
		return "P402 link found"
	case FlagRedirect:
		return fmt.Sprintf("OSM wikidata %s redirects to %s", f.Entity, f.Target)
	case FlagNameMismatch:
		return "Wikidata name mismatch"
	case FlagMissingP402:
		return "Missing OSM Relation ID (P402) in wikidata"
	case FlagMismatchedOSMID:
		return "Mismatched OSM ID"
	case FlagMismatchedP402Link:
		return "Mismatched P402 link"
	case FlagMismatchedReverseLink:
		return "Mismatched P402 reverse link"
	case FlagInstanceOfCity:
		return fmt.Sprintf("Wikidata instance of city (%s) but border_type is not city", f.Entity)
	case FlagCensusCategory:
		if f.Value == "" {
			return fmt.Sprintf("Census Bureau lists this place as a %s but border_type is not set", f.Category)
		}
		return fmt.Sprintf("Census Bureau lists this place as a %s but border_type is %s", f.Category, f.Value)
	case FlagAdminCentreRole:
		return "Uses admin_centre role instead of label"
	case FlagCDPAdminBoundary:
		return "Wikidata CDP / OSM admin boundary"
	case FlagOSMCDPNotWikidata:
		return "OSM CDP / missing wikidata CDP"
	case FlagNotInCityTownList:
		return fmt.Sprintf("Not found in Wikidata city/town list (%s)", f.URL)
	case FlagNotInCDPList:
		return fmt.Sprintf("Not found in Census Bureau CDP list (%s)", f.URL)
	case FlagCDPAdminLevel:
		return "CDP should not have admin_level"
	case FlagMissingTag:
		return fmt.Sprintf("boundary=%s: Missing expected tag: %s", f.Category, f.Tag)
	case FlagWrongTagValue:
		return fmt.Sprintf("boundary=%s: Expected %s=%s", f.Category, f.Tag, f.Target)
	case FlagUnexpectedTag:
		return fmt.Sprintf("boundary=%s is set but %s=* is unexpected", f.Category, f.Tag)
	case FlagTagWithoutProperty:
		return fmt.Sprintf("%s is set but wikidata has no %s (%s)", f.Tag, f.Label, f.Property)
	case FlagPropertyWithoutTag:
		return fmt.Sprintf("Wikidata %s (%s) is \"%s\"; consider adding %s", f.Label, f.Property, f.Value, f.Tag)
	case FlagTagPropertyMismatch:
		return fmt.Sprintf("%s does not match wikidata %s (%s)", f.Tag, f.Label, f.Property)
	case FlagWikipediaMalformed:
		return "Malformed wikipedia tag, should be lang:Title"
	case FlagWikipediaNoSitelinks:
		return fmt.Sprintf("%s has no wikipedia entry but OSM has %s", f.Entity, f.Text)
	case FlagWikipediaNoLang:
		return fmt.Sprintf("%s has no %swiki entry but OSM has %s", f.Entity, f.Value, f.Text)
	case FlagWikipediaMismatch:
		return fmt.Sprintf("%s has wikipedia entry %s but OSM has %s", f.Entity, f.Target, f.Text)
	case FlagMissingFromOSM:
		if f.URL != "" {
			return fmt.Sprintf("Missing from OSM: %s (%s)", f.Label, f.URL)
		}
		return fmt.Sprintf("Missing from OSM: %s", f.Label)
	case FlagDuplicateEntities:
		return fmt.Sprintf("Multiple Wikidata entities share this name: %s", strings.Join(f.IDs, ", "))
	}
	return string(f.Kind)
}
