package wikidata

import (
	"context"
	"fmt"
	"os"
	"strings"

	gocache "github.com/patrickmn/go-cache"

	"github.com/zelonewolf/wikidata-qa/internal/strutil"
)

// Cache is the run-scoped knowledge cache. It is warmed in bulk before the
// evaluation loop and read-only afterwards; one instance is constructed per
// state run and passed into the evaluator.
//
// Entries live for the duration of the run (no expiry, no persistence).
type Cache struct {
	client    *Client
	chunkSize int

	entities  *gocache.Cache // QID -> Entity
	redirects *gocache.Cache // QID -> target QID, "" when live
	reverse   *gocache.Cache // OSM relation id -> []string of QIDs
}

// Derived is the claim summary the evaluator consumes. Absent claims show
// up as empty fields, never as errors.
type Derived struct {
	InstanceOf      []string
	InstanceOfNames []string
	ContainedIn     string
	ContainedInName string
	OSMRelation     string // type-prefixed, e.g. "r123"
	OSMRelationAll  []string
}

// NewCache creates an empty cache over the given client.
func NewCache(client *Client, chunkSize int) *Cache {
	if chunkSize <= 0 {
		chunkSize = 50
	}
	return &Cache{
		client:    client,
		chunkSize: chunkSize,
		entities:  gocache.New(gocache.NoExpiration, 0),
		redirects: gocache.New(gocache.NoExpiration, 0),
		reverse:   gocache.New(gocache.NoExpiration, 0),
	}
}

// WarmEntities batch-fetches claims, labels, sitelinks and aliases for all
// ids. Official-name (P1448) claims are folded into the alias set at warm
// time so official names participate in matching without another property
// lookup. A failed chunk is logged and its ids stay uncached.
func (c *Cache) WarmEntities(ctx context.Context, ids []string) {
	for _, chunk := range chunkIDs(dedupeQIDs(ids), c.chunkSize) {
		entities, err := c.client.Entities(ctx, chunk)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: entity batch failed for %s: %v\n", strings.Join(chunk, ","), err)
			continue
		}
		for id, ent := range entities {
			if ent.IsMissing() {
				fmt.Fprintf(os.Stderr, "Warning: no such entity %s\n", id)
				continue
			}
			c.store(ent)
		}
	}
}

func (c *Cache) store(ent Entity) {
	for _, official := range ent.ClaimTexts(PropOfficialName) {
		if ent.Aliases == nil {
			ent.Aliases = make(map[string][]Term)
		}
		ent.Aliases["en"] = append(ent.Aliases["en"], Term{Language: "en", Value: official})
	}
	c.entities.Set(ent.ID, ent, gocache.NoExpiration)
}

// WarmRedirects batch-checks which ids are redirects, caching "" for live
// entities and the target QID otherwise.
func (c *Cache) WarmRedirects(ctx context.Context, ids []string) {
	for _, chunk := range chunkIDs(dedupeQIDs(ids), c.chunkSize) {
		resolved, err := c.client.Redirects(ctx, chunk)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: redirect batch failed for %s: %v\n", strings.Join(chunk, ","), err)
			continue
		}
		for id, target := range resolved {
			c.redirects.Set(id, target, gocache.NoExpiration)
		}
	}
}

// WarmReverseLinks batch-queries which entities point back at each OSM
// relation id, caching an empty list for ids nothing points to.
func (c *Cache) WarmReverseLinks(ctx context.Context, osmIDs []string) {
	for _, chunk := range chunkIDs(dedupeIDs(osmIDs), c.chunkSize) {
		links, err := c.client.ReverseLinks(ctx, chunk)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: reverse link batch failed for %s: %v\n", strings.Join(chunk, ","), err)
			continue
		}
		for _, id := range chunk {
			c.reverse.Set(id, links[id], gocache.NoExpiration)
		}
	}
}

// Entity returns the cached entity, falling back to a single-id fetch on a
// miss. The fallback result is cached; a fetch failure is logged and leaves
// the id uncached.
func (c *Cache) Entity(ctx context.Context, id string) (Entity, bool) {
	if id == "" {
		return Entity{}, false
	}
	if v, ok := c.entities.Get(id); ok {
		return v.(Entity), true
	}

	entities, err := c.client.Entities(ctx, []string{id})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: entity fetch failed for %s: %v\n", id, err)
		return Entity{}, false
	}
	ent, ok := entities[id]
	if !ok || ent.IsMissing() {
		fmt.Fprintf(os.Stderr, "Warning: no such entity %s\n", id)
		return Entity{}, false
	}
	c.store(ent)
	return ent, true
}

// Names returns the entity's label and aliases, comma-suffix stripped and
// deduplicated. Empty id or a failed lookup yield nil.
func (c *Cache) Names(ctx context.Context, id string) []string {
	if id == "" {
		return nil
	}
	ent, ok := c.Entity(ctx, id)
	if !ok {
		return nil
	}

	raw := make([]string, 0, 1+len(ent.Aliases["en"]))
	if label := ent.Label(); label != "" {
		raw = append(raw, label)
	}
	raw = append(raw, ent.AliasValues()...)

	seen := make(map[string]struct{}, len(raw))
	var out []string
	for _, n := range raw {
		n = strutil.FirstCommaComponent(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Label returns the entity's English label, or "".
func (c *Cache) Label(ctx context.Context, id string) string {
	ent, ok := c.Entity(ctx, id)
	if !ok {
		return ""
	}
	return ent.Label()
}

// OfficialNames returns the entity's P1448 values.
func (c *Cache) OfficialNames(ctx context.Context, id string) []string {
	ent, ok := c.Entity(ctx, id)
	if !ok {
		return nil
	}
	return ent.ClaimTexts(PropOfficialName)
}

// Redirect returns the redirect target of id, or "" when the entity is
// live or the redirect state was never warmed.
func (c *Cache) Redirect(id string) string {
	if v, ok := c.redirects.Get(id); ok {
		return v.(string)
	}
	return ""
}

// ReverseFor returns the entities declaring a P402 link to the OSM id.
func (c *Cache) ReverseFor(osmID string) []string {
	if v, ok := c.reverse.Get(osmID); ok {
		if links, ok := v.([]string); ok {
			return links
		}
	}
	return nil
}

// Derived summarizes the cached claims of an entity. Every field of the
// result defaults to empty on a cache miss.
func (c *Cache) Derived(ctx context.Context, id string) Derived {
	var d Derived
	ent, ok := c.Entity(ctx, id)
	if !ok {
		return d
	}

	d.InstanceOf = ent.ClaimItems(PropInstanceOf)
	for _, p31 := range d.InstanceOf {
		d.InstanceOfNames = append(d.InstanceOfNames, c.Label(ctx, p31))
	}

	if p131s := ent.ClaimItems(PropContainedIn); len(p131s) > 0 {
		d.ContainedIn = p131s[0]
		d.ContainedInName = c.Label(ctx, d.ContainedIn)
	}

	for _, osmID := range ent.ClaimTexts(PropOSMRelation) {
		d.OSMRelationAll = append(d.OSMRelationAll, "r"+strings.TrimPrefix(osmID, "r"))
	}
	if len(d.OSMRelationAll) > 0 {
		d.OSMRelation = d.OSMRelationAll[0]
	}
	return d
}

// ReferencedIDs collects every entity id a warmed entity's P31/P131 claims
// point at, for label pre-warming.
func (c *Cache) ReferencedIDs() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, item := range c.entities.Items() {
		ent := item.Object.(Entity)
		for _, prop := range []string{PropInstanceOf, PropContainedIn} {
			for _, target := range ent.ClaimItems(prop) {
				if _, ok := seen[target]; ok {
					continue
				}
				seen[target] = struct{}{}
				out = append(out, target)
			}
		}
	}
	return out
}

func dedupeQIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	var out []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || !strings.HasPrefix(id, "Q") {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	var out []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func chunkIDs(ids []string, size int) [][]string {
	var chunks [][]string
	for len(ids) > size {
		chunks = append(chunks, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		chunks = append(chunks, ids)
	}
	return chunks
}
