package wikidata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/zelonewolf/wikidata-qa/internal/model"
	"github.com/zelonewolf/wikidata-qa/internal/util"
	"github.com/zelonewolf/wikidata-qa/internal/worker"
)

// sleepFunc is the backoff sleep, injectable for tests.
var sleepFunc = time.Sleep

// Client issues batched action-API and SPARQL requests, rate-limited per
// domain and retried with exponential backoff on transient failures.
type Client struct {
	httpClient *http.Client
	limiter    *worker.Limiter
	apiURL     string
	sparqlURL  string
	userAgent  string
	maxRetries int
}

// NewClient builds a client from configuration.
func NewClient(cfg model.WikidataConfig, httpCfg model.HTTPConfig) *Client {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: httpCfg.Timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(httpCfg.HTTPProxy, httpCfg.HTTPSProxy),
			},
		},
		limiter:    worker.NewLimiter(cfg.RequestsPerSecond, cfg.Burst),
		apiURL:     cfg.APIURL,
		sparqlURL:  cfg.SPARQLURL,
		userAgent:  httpCfg.UserAgent,
		maxRetries: maxRetries,
	}
}

type entitiesResponse struct {
	Entities map[string]Entity `json:"entities"`
	Error    *apiError         `json:"error"`
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

// Entities fetches claims, labels, sitelinks and aliases for up to 50 ids
// in one call. Absent or invalid ids come back flagged missing rather than
// failing the batch.
func (c *Client) Entities(ctx context.Context, ids []string) (map[string]Entity, error) {
	if len(ids) == 0 {
		return map[string]Entity{}, nil
	}

	params := url.Values{
		"action":    {"wbgetentities"},
		"ids":       {strings.Join(ids, "|")},
		"props":     {"claims|labels|sitelinks|aliases"},
		"languages": {"en"},
		"format":    {"json"},
	}

	var resp entitiesResponse
	if err := c.getAPI(ctx, params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("wbgetentities: %s: %s", resp.Error.Code, resp.Error.Info)
	}
	return resp.Entities, nil
}

// Redirects resolves which of the given ids are redirects. The result maps
// every resolved id to its target, or "" for live entities. Missing ids are
// absent from the result.
func (c *Client) Redirects(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}

	params := url.Values{
		"action":    {"wbgetentities"},
		"ids":       {strings.Join(ids, "|")},
		"props":     {"info"},
		"redirects": {"yes"},
		"format":    {"json"},
	}

	var resp entitiesResponse
	if err := c.getAPI(ctx, params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("wbgetentities: %s: %s", resp.Error.Code, resp.Error.Info)
	}

	requested := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		requested[id] = struct{}{}
	}

	out := make(map[string]string, len(ids))
	for key, ent := range resp.Entities {
		if ent.IsMissing() {
			continue
		}
		if ent.Redirects != nil {
			out[ent.Redirects.From] = ent.Redirects.To
			continue
		}
		// The API may resolve a redirect without the redirects member;
		// the entity then comes back re-keyed or with a foreign id.
		if ent.ID != "" && ent.ID != key {
			out[key] = ent.ID
			continue
		}
		if _, ok := requested[key]; ok {
			out[key] = ""
		}
	}
	return out, nil
}

// ReverseLinks queries which entities declare a P402 link to each of the
// given OSM relation ids (up to 50 per call).
func (c *Client) ReverseLinks(ctx context.Context, osmIDs []string) (map[string][]string, error) {
	if len(osmIDs) == 0 {
		return map[string][]string{}, nil
	}

	query := fmt.Sprintf(`
        SELECT ?item ?osmId WHERE {
            ?item wdt:P402 ?osmId.
            VALUES ?osmId { "%s" }
        }`, strings.Join(osmIDs, `" "`))

	bindings, err := c.sparql(ctx, query)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]string)
	for _, b := range bindings {
		qid := entityFromURI(b["item"].Value)
		osmID := b["osmId"].Value
		if qid == "" || osmID == "" {
			continue
		}
		out[osmID] = append(out[osmID], qid)
	}
	return out, nil
}

type sparqlBinding map[string]struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sparqlResponse struct {
	Results struct {
		Bindings []sparqlBinding `json:"bindings"`
	} `json:"results"`
}

// sparql POSTs a query and returns its bindings.
func (c *Client) sparql(ctx context.Context, query string) ([]sparqlBinding, error) {
	resp, err := c.sparqlRaw(ctx, query)
	if err != nil {
		return nil, err
	}
	return resp.Results.Bindings, nil
}

func (c *Client) sparqlRaw(ctx context.Context, query string) (*sparqlResponse, error) {
	body := "query=" + url.QueryEscape(query)

	var out sparqlResponse
	err := c.withRetry(ctx, c.sparqlURL, func() (int, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sparqlURL, strings.NewReader(body))
		if err != nil {
			return 0, err
		}
		req.Header.Set("Accept", "application/sparql-results+json")
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return 0, err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return resp.StatusCode, fmt.Errorf("sparql: status %d", resp.StatusCode)
		}
		return resp.StatusCode, json.NewDecoder(resp.Body).Decode(&out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) getAPI(ctx context.Context, params url.Values, out interface{}) error {
	full := c.apiURL + "?" + params.Encode()

	return c.withRetry(ctx, c.apiURL, func() (int, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
		if err != nil {
			return 0, err
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return 0, err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			// Drain so the connection can be reused.
			_, _ = io.Copy(io.Discard, resp.Body)
			return resp.StatusCode, fmt.Errorf("api: status %d", resp.StatusCode)
		}
		return resp.StatusCode, json.NewDecoder(resp.Body).Decode(out)
	})
}

// withRetry runs fn under the rate limiter, retrying 5xx/429 and network
// errors with exponential backoff.
func (c *Client) withRetry(ctx context.Context, endpoint string, fn func() (int, error)) error {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx, endpoint); err != nil {
			return err
		}

		status, err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(status, err) {
			return err
		}
		if attempt < c.maxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			fmt.Fprintf(os.Stderr, "Warning: %s failed (%v), retrying in %v\n", endpoint, err, backoff)
			sleepFunc(backoff)
		}
	}
	return lastErr
}

func retryable(status int, err error) bool {
	if status >= 500 && status < 600 {
		return true
	}
	if status == http.StatusTooManyRequests {
		return true
	}
	if status == 0 && err != nil {
		// Network-level failure before any response.
		return true
	}
	return false
}

func entityFromURI(uri string) string {
	idx := strings.LastIndex(uri, "/")
	if idx < 0 {
		return uri
	}
	return uri[idx+1:]
}
