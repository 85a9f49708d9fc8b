package pipeline

import (
	"context"
	"testing"
)

func TestCheckWikipediaMatch(t *testing.T) {
	fk := fakeKnowledge{entities: map[string]string{
		"Q28455": entityJSON("Q28455", "Springfield", nil, "", "Springfield, Massachusetts"),
		"Q99":    entityJSON("Q99", "Bare", nil, "", ""),
	}}
	cache := newTestCache(t, fk)
	ctx := context.Background()

	tests := []struct {
		name string
		qid  string
		ref  string
		want string // "" means no flag
	}{
		{"exact match", "Q28455", "en:Springfield, Massachusetts", ""},
		{"underscores and case fold", "Q28455", "en:springfield,_massachusetts", ""},
		{"malformed without colon", "Q28455", "Springfield", "Malformed wikipedia tag, should be lang:Title"},
		{"malformed empty title", "Q28455", "en:", "Malformed wikipedia tag, should be lang:Title"},
		{"no sitelinks at all", "Q99", "en:Bare", "Q99 has no wikipedia entry but OSM has en:Bare"},
		{"missing language", "Q28455", "fr:Springfield", "Q28455 has no frwiki entry but OSM has fr:Springfield"},
		{"title mismatch", "Q28455", "en:Springfield", "Q28455 has wikipedia entry Springfield, Massachusetts but OSM has en:Springfield"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag, ok := CheckWikipediaMatch(ctx, cache, tt.qid, tt.ref)
			if tt.want == "" {
				if ok {
					t.Errorf("unexpected flag %q", flag.String())
				}
				return
			}
			if !ok {
				t.Fatalf("expected flag %q, got none", tt.want)
			}
			if got := flag.String(); got != tt.want {
				t.Errorf("flag = %q, want %q", got, tt.want)
			}
		})
	}
}
