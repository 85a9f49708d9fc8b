package overpass

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/zelonewolf/wikidata-qa/internal/model"
)

const liveExtract = `@id,@type,boundary,admin_level,border_type,name,name:en,alt_name,short_name,official_name,old_name,wikidata,wikipedia,fixme
1181631,relation,administrative,8,city,Springfield,,,,City of Springfield,,Q28455,,
9182736,relation,census,,census_designated_place,Vineyard Haven,,,,,,Q1018088,,
`

func newLiveClient(srv *httptest.Server) *Client {
	return NewClient(
		model.OverpassConfig{URL: srv.URL + "/api/interpreter", QueryTimeout: 180},
		model.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "wikidata-qa-test/1.0"},
	)
}

func TestFetchBoundaries_MarksAdminCentreRelations(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		query := r.Form.Get("data")
		queries = append(queries, query)

		if strings.Contains(query, "admin_centre") {
			fmt.Fprint(w, "@id\n1181631\n")
			return
		}
		fmt.Fprint(w, liveExtract)
	}))
	defer srv.Close()

	records, err := newLiveClient(srv).FetchBoundaries(context.Background(), "61315")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].AdminCentreCount != 1 {
		t.Errorf("relation 1181631 not marked from member query: %+v", records[0])
	}
	if records[1].AdminCentreCount != 0 {
		t.Errorf("relation 9182736 wrongly marked: %+v", records[1])
	}

	if len(queries) != 2 {
		t.Fatalf("expected 2 queries, got %d", len(queries))
	}
	for _, q := range queries {
		if strings.Contains(q, ";true,'") {
			t.Errorf("malformed out:csv settings sent to Overpass:\n%s", q)
		}
	}
}

func TestFetchBoundaries_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, "rate limited")
	}))
	defer srv.Close()

	if _, err := newLiveClient(srv).FetchBoundaries(context.Background(), "61315"); err == nil {
		t.Fatalf("expected error for non-200 response")
	}
}
