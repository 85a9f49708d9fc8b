// Package wikidata talks to the Wikidata action API and query service, and
// holds the run-scoped knowledge cache the evaluator reads from.
package wikidata

import "encoding/json"

// Wikidata properties this tool cares about.
const (
	PropInstanceOf   = "P31"
	PropContainedIn  = "P131"
	PropOSMRelation  = "P402"
	PropOfficialName = "P1448"
	PropShortName    = "P1813"
)

// Entity is one item from a wbgetentities response.
type Entity struct {
	ID        string              `json:"id"`
	Missing   *string             `json:"missing,omitempty"`
	Redirects *Redirect           `json:"redirects,omitempty"`
	Labels    map[string]Term     `json:"labels,omitempty"`
	Aliases   map[string][]Term   `json:"aliases,omitempty"`
	Claims    map[string][]Claim  `json:"claims,omitempty"`
	Sitelinks map[string]Sitelink `json:"sitelinks,omitempty"`
}

// Redirect records a resolved entity redirect.
type Redirect struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Term is a language-tagged label or alias.
type Term struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

// Sitelink is a link from an entity to a wiki page.
type Sitelink struct {
	Site  string `json:"site"`
	Title string `json:"title"`
}

// Claim is a single statement; only the main snak matters here.
type Claim struct {
	Mainsnak Snak `json:"mainsnak"`
}

// Snak is the claim's value holder.
type Snak struct {
	SnakType  string    `json:"snaktype"`
	Property  string    `json:"property"`
	Datavalue Datavalue `json:"datavalue"`
}

// Datavalue defers value decoding; Wikidata mixes entity-id, string and
// monolingual-text payloads under the same key.
type Datavalue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// EntityID decodes an entity-id value ("" when the value is another shape).
func (d Datavalue) EntityID() string {
	var v struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(d.Value, &v); err != nil {
		return ""
	}
	return v.ID
}

// Text decodes a plain string or monolingual-text value.
func (d Datavalue) Text() string {
	var s string
	if err := json.Unmarshal(d.Value, &s); err == nil {
		return s
	}
	var v struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(d.Value, &v); err != nil {
		return ""
	}
	return v.Text
}

// IsMissing reports whether the API marked the requested id as absent.
func (e Entity) IsMissing() bool {
	return e.Missing != nil
}

// Label returns the English label, or "".
func (e Entity) Label() string {
	return e.Labels["en"].Value
}

// AliasValues returns the English aliases in API order.
func (e Entity) AliasValues() []string {
	terms := e.Aliases["en"]
	if len(terms) == 0 {
		return nil
	}
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = t.Value
	}
	return out
}

// ClaimItems returns the entity-id values of a property's statements.
func (e Entity) ClaimItems(property string) []string {
	var out []string
	for _, c := range e.Claims[property] {
		if id := c.Mainsnak.Datavalue.EntityID(); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// ClaimTexts returns the string/monolingual values of a property's
// statements.
func (e Entity) ClaimTexts(property string) []string {
	var out []string
	for _, c := range e.Claims[property] {
		if s := c.Mainsnak.Datavalue.Text(); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SitelinkTitle returns the title of the lang wiki sitelink, if any.
func (e Entity) SitelinkTitle(lang string) (string, bool) {
	link, ok := e.Sitelinks[lang+"wiki"]
	if !ok {
		return "", false
	}
	return link.Title, true
}
