package pipeline

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zelonewolf/wikidata-qa/internal/census"
	"github.com/zelonewolf/wikidata-qa/internal/model"
	"github.com/zelonewolf/wikidata-qa/internal/wikidata"
)

// fakeKnowledge backs a test wbgetentities + SPARQL endpoint pair.
type fakeKnowledge struct {
	entities map[string]string   // requested id -> raw entity JSON
	reverse  map[string][]string // OSM relation id -> QIDs claiming it
}

func newTestCache(t *testing.T, fk fakeKnowledge) *wikidata.Cache {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		parts := []string{}
		for _, id := range strings.Split(r.URL.Query().Get("ids"), "|") {
			raw, ok := fk.entities[id]
			if !ok {
				raw = fmt.Sprintf(`{"id":%q,"missing":""}`, id)
			}
			parts = append(parts, fmt.Sprintf("%q:%s", id, raw))
		}
		fmt.Fprintf(w, `{"entities":{%s}}`, strings.Join(parts, ","))
	})
	mux.HandleFunc("/sparql", func(w http.ResponseWriter, r *http.Request) {
		type binding map[string]map[string]string
		var bindings []binding
		for osmID, qids := range fk.reverse {
			for _, qid := range qids {
				bindings = append(bindings, binding{
					"item":  {"type": "uri", "value": "http://www.wikidata.org/entity/" + qid},
					"osmId": {"type": "literal", "value": osmID},
				})
			}
		}
		resp := map[string]interface{}{
			"results": map[string]interface{}{"bindings": bindings},
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := wikidata.NewClient(model.WikidataConfig{
		APIURL:            srv.URL + "/api",
		SPARQLURL:         srv.URL + "/sparql",
		ChunkSize:         50,
		RequestsPerSecond: 1000,
		Burst:             1000,
		MaxRetries:        1,
	}, model.HTTPConfig{UserAgent: "test"})

	return wikidata.NewCache(client, 50)
}

// entityJSON builds a minimal wbgetentities entity payload.
func entityJSON(id, label string, p31 []string, p402, sitelink string) string {
	var claims []string
	for _, cls := range p31 {
		claims = append(claims, fmt.Sprintf(
			`{"mainsnak":{"snaktype":"value","property":"P31","datavalue":{"type":"wikibase-entityid","value":{"id":%q}}}}`, cls))
	}
	parts := []string{fmt.Sprintf(`"id":%q`, id)}
	if label != "" {
		parts = append(parts, fmt.Sprintf(`"labels":{"en":{"language":"en","value":%q}}`, label))
	}
	claimParts := []string{}
	if len(claims) > 0 {
		claimParts = append(claimParts, fmt.Sprintf(`"P31":[%s]`, strings.Join(claims, ",")))
	}
	if p402 != "" {
		claimParts = append(claimParts, fmt.Sprintf(
			`"P402":[{"mainsnak":{"snaktype":"value","property":"P402","datavalue":{"type":"string","value":%q}}}]`, p402))
	}
	if len(claimParts) > 0 {
		parts = append(parts, fmt.Sprintf(`"claims":{%s}`, strings.Join(claimParts, ",")))
	}
	if sitelink != "" {
		parts = append(parts, fmt.Sprintf(`"sitelinks":{"enwiki":{"site":"enwiki","title":%q}}`, sitelink))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

var lsadByCategory = map[census.Category]string{
	census.CategoryCity:    "25",
	census.CategoryTown:    "43",
	census.CategoryVillage: "47",
	census.CategoryCDP:     "57",
}

var suffixByCategory = map[census.Category]string{
	census.CategoryCity:    " city",
	census.CategoryTown:    " town",
	census.CategoryVillage: " village",
	census.CategoryCDP:     " CDP",
}

// placesWith builds gazetteer place lists from category/name pairs.
func placesWith(t *testing.T, entries map[census.Category][]string) *census.PlaceLists {
	t.Helper()
	var b strings.Builder
	b.WriteString("USPS\tGEOID\tANSICODE\tNAME\tLSAD\tFUNCSTAT\tALAND\tAWATER\n")
	for _, cat := range []census.Category{census.CategoryCity, census.CategoryTown, census.CategoryVillage, census.CategoryCDP} {
		for _, name := range entries[cat] {
			fmt.Fprintf(&b, "XX\t0\t0\t%s%s\t%s\tA\t1\t2\n", name, suffixByCategory[cat], lsadByCategory[cat])
		}
	}
	lists, err := census.ParsePlaces(strings.NewReader(b.String()))
	if err != nil {
		t.Fatalf("build place lists: %v", err)
	}
	return lists
}

func flagTexts(rec model.ProcessedRecord) []string {
	if len(rec.Flags) == 0 {
		return nil
	}
	out := make([]string, len(rec.Flags))
	for i, f := range rec.Flags {
		out[i] = f.String()
	}
	return out
}
