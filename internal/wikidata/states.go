package wikidata

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// State is a US state with its OSM relation id.
type State struct {
	QID           string
	Name          string
	OSMRelationID string
}

// Place is one entry of the cities-and-towns reference list.
type Place struct {
	ID    string
	Label string
}

// NonAdminQIDs are classes whose instances look like boundaries but are not
// administrative entities. The cities/towns query excludes anything typed
// only by subclasses of these.
func NonAdminQIDs() []string {
	return []string{
		"Q610237",    // US special-purpose district
		"Q104146790", // US electoral district
		"Q5398059",   // US Indian reservation
		"Q35080211",  // US wildlife management area
		"Q15726209",  // US school district
		"Q6047382",   // educational service agency
		"Q192611",    // electoral unit
		"Q112904835", // fire district
	}
}

// CityClassQIDs are instance-of classes treated as "city" for the
// border_type consistency check.
func CityClassQIDs() []string {
	return []string{
		"Q1093829", // city of the United States
		"Q515",     // city
	}
}

// CDPClassQIDs are instance-of classes marking unincorporated
// census-designated places.
func CDPClassQIDs() []string {
	return []string{
		"Q498162",   // census-designated place in the United States
		"Q17343829", // unincorporated community in the United States
	}
}

// States lists every US state with a P402 relation id.
func (c *Client) States(ctx context.Context) ([]State, error) {
	query := `
    SELECT ?state ?stateLabel ?osmRelationId WHERE {
      ?state wdt:P31 wd:Q35657;
             wdt:P17 wd:Q30;
             wdt:P402 ?osmRelationId.
      SERVICE wikibase:label { bd:serviceParam wikibase:language "en". }
    }
    LIMIT 50`

	bindings, err := c.sparql(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query states: %w", err)
	}

	states := make([]State, 0, len(bindings))
	for _, b := range bindings {
		states = append(states, State{
			QID:           entityFromURI(b["state"].Value),
			Name:          b["stateLabel"].Value,
			OSMRelationID: b["osmRelationId"].Value,
		})
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Name < states[j].Name })
	return states, nil
}

// StateQID resolves the state entity claiming the given OSM relation id.
func (c *Client) StateQID(ctx context.Context, relationID string) (string, error) {
	query := fmt.Sprintf(`
        SELECT ?state ?stateLabel WHERE {
            ?state wdt:P402 "%s";
                   wdt:P31 wd:Q35657;
                   wdt:P17 wd:Q30.
            SERVICE wikibase:label {
                bd:serviceParam wikibase:language "[AUTO_LANGUAGE],en".
            }
        }`, relationID)

	bindings, err := c.sparql(ctx, query)
	if err != nil {
		return "", fmt.Errorf("query state QID: %w", err)
	}
	if len(bindings) == 0 {
		return "", fmt.Errorf("no state found for relation ID %s", relationID)
	}
	return entityFromURI(bindings[0]["state"].Value), nil
}

// CitiesAndTowns returns the administrative cities and towns located in the
// state, de-duplicated by QID. An entity is excluded when any of its P31
// class chains reaches a non-administrative class, and counties are
// excluded unless they are consolidated city-counties.
func (c *Client) CitiesAndTowns(ctx context.Context, stateQID string) ([]Place, error) {
	values := make([]string, 0, len(NonAdminQIDs()))
	for _, q := range NonAdminQIDs() {
		values = append(values, "wd:"+q)
	}

	query := fmt.Sprintf(`
        SELECT DISTINCT ?city ?cityLabel WHERE {
            VALUES ?cityClass { wd:Q852446 }
            ?city wdt:P31/wdt:P279* ?cityClass.

            FILTER NOT EXISTS {
                ?city wdt:P31/wdt:P279* ?excludedClass.
                VALUES ?excludedClass { %s }
            }

            FILTER NOT EXISTS {
                ?city wdt:P31/wdt:P279* wd:Q13360155.
                FILTER NOT EXISTS {
                    ?city wdt:P31/wdt:P279* wd:Q3301053.
                }
            }

            ?city (wdt:P131
                  | wdt:P131/wdt:P131
                  | wdt:P131/wdt:P131/wdt:P131
                  | wdt:P131/wdt:P131/wdt:P131/wdt:P131) wd:%s.

            SERVICE wikibase:label {
                bd:serviceParam wikibase:language "[AUTO_LANGUAGE],en".
            }
        }`, strings.Join(values, " "), stateQID)

	bindings, err := c.sparql(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query cities and towns: %w", err)
	}

	seen := make(map[string]struct{}, len(bindings))
	var places []Place
	for _, b := range bindings {
		qid := entityFromURI(b["city"].Value)
		if qid == "" {
			continue
		}
		if _, ok := seen[qid]; ok {
			continue
		}
		seen[qid] = struct{}{}
		places = append(places, Place{ID: qid, Label: b["cityLabel"].Value})
	}
	return places, nil
}
