package pipeline

import (
	"context"
	"strings"

	"github.com/zelonewolf/wikidata-qa/internal/model"
	"github.com/zelonewolf/wikidata-qa/internal/wikidata"
)

// CheckWikipediaMatch compares an OSM wikipedia tag ("lang:Title") against
// the entity's sitelinks. The returned flag is reported only when ok is
// true; an exact match yields none.
func CheckWikipediaMatch(ctx context.Context, cache *wikidata.Cache, qid, ref string) (model.Flag, bool) {
	lang, title, found := strings.Cut(ref, ":")
	if !found || lang == "" || title == "" {
		return model.Flag{Kind: model.FlagWikipediaMalformed}, true
	}

	ent, ok := cache.Entity(ctx, qid)
	if !ok || len(ent.Sitelinks) == 0 {
		return model.Flag{Kind: model.FlagWikipediaNoSitelinks, Entity: qid, Text: ref}, true
	}

	sitelink, ok := ent.SitelinkTitle(lang)
	if !ok {
		return model.Flag{Kind: model.FlagWikipediaNoLang, Entity: qid, Value: lang, Text: ref}, true
	}

	if !titlesEqual(sitelink, title) {
		return model.Flag{Kind: model.FlagWikipediaMismatch, Entity: qid, Target: sitelink, Text: ref}, true
	}
	return model.Flag{}, false
}

// titlesEqual compares article titles with spaces and underscores unified
// and case folded.
func titlesEqual(a, b string) bool {
	canon := func(s string) string {
		return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", " "))
	}
	return canon(a) == canon(b)
}
