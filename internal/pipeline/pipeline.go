package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/zelonewolf/wikidata-qa/internal/census"
	"github.com/zelonewolf/wikidata-qa/internal/matcher"
	"github.com/zelonewolf/wikidata-qa/internal/model"
	"github.com/zelonewolf/wikidata-qa/internal/overpass"
	"github.com/zelonewolf/wikidata-qa/internal/rules"
	"github.com/zelonewolf/wikidata-qa/internal/wikidata"
)

// Pipeline runs the single-pass reconciliation job for one state at a
// time. All external knowledge-base traffic is front-loaded into the bulk
// warm-up; the evaluation loop itself touches only the in-memory cache.
type Pipeline struct {
	cfg       *model.Config
	wd        *wikidata.Client
	cache     *wikidata.Cache
	census    *census.Client
	overpass  *overpass.Client
	validator *rules.Validator
	log       io.Writer
}

// RunOptions tweak a single state run.
type RunOptions struct {
	// InputPath points at a pre-downloaded Overpass extract CSV; when set,
	// Overpass is not contacted.
	InputPath string
}

// New wires a pipeline from configuration. The rule table override file is
// loaded here so a broken file aborts before any network traffic.
func New(cfg *model.Config) (*Pipeline, error) {
	validator := rules.NewValidator()
	if cfg.Rules.File != "" {
		var err error
		validator, err = rules.LoadValidator(cfg.Rules.File)
		if err != nil {
			return nil, err
		}
	}

	wd := wikidata.NewClient(cfg.Wikidata, cfg.HTTP)
	return &Pipeline{
		cfg:       cfg,
		wd:        wd,
		cache:     wikidata.NewCache(wd, cfg.Wikidata.ChunkSize),
		census:    census.NewClient(cfg.Census, cfg.HTTP),
		overpass:  overpass.NewClient(cfg.Overpass, cfg.HTTP),
		validator: validator,
		log:       os.Stderr,
	}, nil
}

// SetLogWriter redirects progress output, mainly for tests.
func (p *Pipeline) SetLogWriter(w io.Writer) {
	p.log = w
}

// States lists the US states known to Wikidata.
func (p *Pipeline) States(ctx context.Context) ([]wikidata.State, error) {
	return p.wd.States(ctx)
}

// Run executes the full reconciliation for one state and returns its
// findings. Startup failures (unknown state, unreadable input) abort
// before any evaluation; enrichment failures degrade to empty cache
// entries instead.
func (p *Pipeline) Run(ctx context.Context, stateName string, opts RunOptions) (*model.Findings, error) {
	abbrev := census.StateAbbreviation(stateName)
	if abbrev == "" {
		return nil, fmt.Errorf("unknown state: %s", stateName)
	}

	states, err := p.wd.States(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve state: %w", err)
	}
	var state *wikidata.State
	for i := range states {
		if states[i].Name == stateName {
			state = &states[i]
			break
		}
	}
	if state == nil {
		return nil, fmt.Errorf("state %s has no Wikidata entry with an OSM relation id", stateName)
	}

	var records []model.BoundaryRecord
	if opts.InputPath != "" {
		f, err := os.Open(opts.InputPath)
		if err != nil {
			return nil, fmt.Errorf("open extract: %w", err)
		}
		records, err = overpass.ParseExtract(f)
		_ = f.Close()
		if err != nil {
			return nil, err
		}
	} else {
		fmt.Fprintf(p.log, "Fetching boundaries for %s (relation %s) from Overpass\n", stateName, state.OSMRelationID)
		records, err = p.overpass.FetchBoundaries(ctx, state.OSMRelationID)
		if err != nil {
			return nil, err
		}
	}
	fmt.Fprintf(p.log, "Loaded %d boundary records for %s\n", len(records), stateName)

	places, err := p.census.Places(ctx, stateName)
	if err != nil {
		return nil, fmt.Errorf("load census places: %w", err)
	}

	cityTowns, err := p.wd.CitiesAndTowns(ctx, state.QID)
	if err != nil {
		return nil, fmt.Errorf("load cities and towns: %w", err)
	}
	fmt.Fprintf(p.log, "Loaded %d census places and %d Wikidata cities/towns\n",
		len(places.Cities)+len(places.Towns)+len(places.Villages)+len(places.CDPs), len(cityTowns))

	// Warm-up: every referenced entity, redirect state for tagged ids,
	// reverse P402 links for all relation ids, then the P31/P131 targets
	// so their labels resolve without per-record fetches.
	var recordQIDs, osmIDs []string
	for _, rec := range records {
		if rec.Wikidata != "" {
			recordQIDs = append(recordQIDs, rec.Wikidata)
		}
		if rec.Kind == model.ElementRelation {
			osmIDs = append(osmIDs, rec.ID)
		}
	}
	warmIDs := append([]string(nil), recordQIDs...)
	for _, place := range cityTowns {
		warmIDs = append(warmIDs, place.ID)
	}

	fmt.Fprintf(p.log, "Warming knowledge cache (%d entities, %d relation ids)\n", len(warmIDs), len(osmIDs))
	p.cache.WarmEntities(ctx, warmIDs)
	p.cache.WarmRedirects(ctx, recordQIDs)
	p.cache.WarmReverseLinks(ctx, osmIDs)
	p.cache.WarmEntities(ctx, p.cache.ReferencedIDs())

	cityEntities := make([]matcher.Entity, 0, len(cityTowns))
	findings := model.NewFindings(stateName, abbrev)
	for _, place := range cityTowns {
		cityEntities = append(cityEntities, matcher.Entity{
			ID:      place.ID,
			Name:    place.Label,
			Aliases: p.cache.Names(ctx, place.ID),
		})
		findings.CityTowns = append(findings.CityTowns, model.ReferencePlace{QID: place.ID, Name: place.Label})
	}

	evaluator := NewEvaluator(p.cache, p.validator, places, cityEntities, findings,
		p.census.GazetteerURL(stateName), cityTownFileName(abbrev))

	for i := range records {
		findings.Add(evaluator.Evaluate(ctx, records[i]))
		if (i+1)%50 == 0 {
			fmt.Fprintf(p.log, "Processed %d/%d boundaries\n", i+1, len(records))
		}
	}
	fmt.Fprintf(p.log, "Processed %d boundaries, %d flagged\n", len(findings.Processed), len(findings.Flagged))

	missing := evaluator.MissingRecords(ctx)
	findings.Flagged = append(findings.Flagged, missing...)
	if len(missing) > 0 {
		fmt.Fprintf(p.log, "Synthesized %d missing-from-OSM rows\n", len(missing))
	}

	return findings, nil
}
