// Package overpass fetches and parses boundary extracts from the Overpass
// API.
package overpass

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/zelonewolf/wikidata-qa/internal/model"
	"github.com/zelonewolf/wikidata-qa/internal/util"
	"github.com/zelonewolf/wikidata-qa/internal/worker"
)

// areaOffset converts an OSM relation id into an Overpass area id.
const areaOffset = 3600000000

// Client runs Overpass queries.
type Client struct {
	httpClient   *http.Client
	robots       *util.RobotsChecker
	limiter      *worker.Limiter
	endpoint     string
	queryTimeout int
	userAgent    string
}

// NewClient builds an Overpass client from configuration.
func NewClient(cfg model.OverpassConfig, httpCfg model.HTTPConfig) *Client {
	queryTimeout := cfg.QueryTimeout
	if queryTimeout <= 0 {
		queryTimeout = 180
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: httpCfg.Timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(httpCfg.HTTPProxy, httpCfg.HTTPSProxy),
			},
		},
		robots:       util.NewRobotsChecker(httpCfg.UserAgent, httpCfg.Timeout),
		limiter:      worker.NewLimiter(1, 1),
		endpoint:     cfg.URL,
		queryTimeout: queryTimeout,
		userAgent:    httpCfg.UserAgent,
	}
}

// BoundaryQuery builds the extract query for everything tagged as a
// boundary of interest inside the state relation's area.
func (c *Client) BoundaryQuery(stateRelationID string) (string, error) {
	relID, err := strconv.ParseInt(stateRelationID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("bad relation id %q: %w", stateRelationID, err)
	}

	columns := `::id,::type,boundary,admin_level,border_type,name,"name:en",alt_name,short_name,official_name,old_name,wikidata,wikipedia,fixme`
	return fmt.Sprintf(`[timeout:%d][out:csv(%s;true;',')];
        area(id:%d)->.a;
        (
          rel[boundary=administrative][admin_level~"^7|8|9$"](area.a);
          rel[boundary=census](area.a);
          rel[boundary=statistical](area.a);
          rel[boundary=place](area.a);
          way[boundary=administrative][admin_level~"^7|8|9$"](area.a);
        );
        out;`, c.queryTimeout, columns, relID+areaOffset), nil
}

// AdminCentreQuery builds the follow-up query listing boundary relations
// that carry a node member with the admin_centre role. CSV output cannot
// count relation members, so membership is queried separately and the
// extract is marked from the returned id set.
func (c *Client) AdminCentreQuery(stateRelationID string) (string, error) {
	relID, err := strconv.ParseInt(stateRelationID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("bad relation id %q: %w", stateRelationID, err)
	}

	return fmt.Sprintf(`[timeout:%d][out:csv(::id;true;',')];
        area(id:%d)->.a;
        rel[boundary=administrative][admin_level~"^7|8|9$"](area.a)->.b;
        node(r.b:"admin_centre")->.c;
        rel.b(bn.c:"admin_centre");
        out;`, c.queryTimeout, relID+areaOffset), nil
}

// FetchBoundaries downloads the extract for one state, parses it, and
// marks the relations using the admin_centre role.
func (c *Client) FetchBoundaries(ctx context.Context, stateRelationID string) ([]model.BoundaryRecord, error) {
	query, err := c.BoundaryQuery(stateRelationID)
	if err != nil {
		return nil, err
	}
	body, err := c.run(ctx, query)
	if err != nil {
		return nil, err
	}
	records, err := ParseExtract(strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	centreQuery, err := c.AdminCentreQuery(stateRelationID)
	if err != nil {
		return nil, err
	}
	centreBody, err := c.run(ctx, centreQuery)
	if err != nil {
		return nil, err
	}
	markAdminCentres(records, parseIDList(centreBody))
	return records, nil
}

// markAdminCentres flags every relation whose id is in the set. The query
// reports membership, not a member count, so marked records carry 1.
func markAdminCentres(records []model.BoundaryRecord, ids map[string]bool) {
	for i := range records {
		if records[i].Kind == model.ElementRelation && ids[records[i].ID] {
			records[i].AdminCentreCount = 1
		}
	}
}

// parseIDList reads a one-column id CSV, skipping the @id header.
func parseIDList(body string) map[string]bool {
	ids := make(map[string]bool)
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == "@id" {
			continue
		}
		ids[line] = true
	}
	return ids
}

// run POSTs one query, subject to robots.txt and the rate limiter.
func (c *Client) run(ctx context.Context, query string) (string, error) {
	allowed, err := c.robots.CanFetch(ctx, c.endpoint)
	if err == nil && !allowed {
		return "", fmt.Errorf("robots.txt disallows fetching %s", c.endpoint)
	}
	if err := c.limiter.Wait(ctx, c.endpoint); err != nil {
		return "", err
	}

	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("overpass query: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("overpass query: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("overpass response: %w", err)
	}
	return string(body), nil
}
