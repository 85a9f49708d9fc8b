package census

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/zelonewolf/wikidata-qa/internal/model"
	"github.com/zelonewolf/wikidata-qa/internal/strutil"
	"github.com/zelonewolf/wikidata-qa/internal/util"
	"github.com/zelonewolf/wikidata-qa/internal/worker"
)

// Category is the gazetteer's legal/statistical place class.
type Category string

const (
	CategoryCity    Category = "city"
	CategoryTown    Category = "town"
	CategoryVillage Category = "village"
	CategoryCDP     Category = "cdp"
)

// BorderType returns the OSM border_type value matching the category.
func (c Category) BorderType() string {
	if c == CategoryCDP {
		return "census_designated_place"
	}
	return string(c)
}

// LSAD codes for the place classes this tool reconciles against. The
// gazetteer's structured class field is authoritative; place-name suffixes
// are only stripped for display.
var lsadCategories = map[string]Category{
	"25": CategoryCity,
	"43": CategoryTown,
	"47": CategoryVillage,
	"57": CategoryCDP,
}

var categorySuffixes = map[Category]string{
	CategoryCity:    " city",
	CategoryTown:    " town",
	CategoryVillage: " village",
	CategoryCDP:     " CDP",
}

// PlaceLists holds the gazetteer place names for one state, partitioned by
// category, plus a normalized-name index for membership checks.
type PlaceLists struct {
	Cities   []string
	Towns    []string
	Villages []string
	CDPs     []string

	byNorm map[string][]Category
}

func (p *PlaceLists) add(cat Category, name string) {
	switch cat {
	case CategoryCity:
		p.Cities = append(p.Cities, name)
	case CategoryTown:
		p.Towns = append(p.Towns, name)
	case CategoryVillage:
		p.Villages = append(p.Villages, name)
	case CategoryCDP:
		p.CDPs = append(p.CDPs, name)
	}
	if p.byNorm == nil {
		p.byNorm = make(map[string][]Category)
	}
	norm := strutil.Clean(name)
	for _, existing := range p.byNorm[norm] {
		if existing == cat {
			return
		}
	}
	p.byNorm[norm] = append(p.byNorm[norm], cat)
}

// IncorporatedCategories returns the city/town/village lists any candidate
// name appears on, deduplicated.
func (p *PlaceLists) IncorporatedCategories(candidates []string) []Category {
	var out []Category
	seen := make(map[Category]struct{})
	for _, name := range candidates {
		for _, cat := range p.byNorm[strutil.Clean(name)] {
			if cat == CategoryCDP {
				continue
			}
			if _, ok := seen[cat]; ok {
				continue
			}
			seen[cat] = struct{}{}
			out = append(out, cat)
		}
	}
	return out
}

// HasCDP reports whether any candidate name is on the CDP list.
func (p *PlaceLists) HasCDP(candidates []string) bool {
	for _, name := range candidates {
		for _, cat := range p.byNorm[strutil.Clean(name)] {
			if cat == CategoryCDP {
				return true
			}
		}
	}
	return false
}

// Client downloads gazetteer place files.
type Client struct {
	httpClient *http.Client
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
	baseURL    string
	year       int
	userAgent  string
}

// NewClient builds a gazetteer client from configuration.
func NewClient(cfg model.CensusConfig, httpCfg model.HTTPConfig) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: httpCfg.Timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(httpCfg.HTTPProxy, httpCfg.HTTPSProxy),
			},
		},
		robots:    util.NewRobotsChecker(httpCfg.UserAgent, httpCfg.Timeout),
		limiter:   worker.NewLimiter(2, 2),
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		year:      cfg.Year,
		userAgent: httpCfg.UserAgent,
	}
}

// GazetteerURL returns the place-file URL for a state. The state FIPS code
// is embedded in the file name.
func (c *Client) GazetteerURL(stateName string) string {
	return GazetteerURL(c.baseURL, c.year, stateName)
}

// GazetteerURL builds the place-file URL from its parts.
func GazetteerURL(baseURL string, year int, stateName string) string {
	return fmt.Sprintf("%s/%d_Gazetteer/%d_gaz_place_%s.txt",
		strings.TrimSuffix(baseURL, "/"), year, year, StateFIPS(stateName))
}

// Places downloads and parses the state's gazetteer place lists.
func (c *Client) Places(ctx context.Context, stateName string) (*PlaceLists, error) {
	if StateFIPS(stateName) == "" {
		return nil, fmt.Errorf("unknown state: %s", stateName)
	}

	gazURL := c.GazetteerURL(stateName)

	allowed, err := c.robots.CanFetch(ctx, gazURL)
	if err == nil && !allowed {
		return nil, fmt.Errorf("robots.txt disallows fetching %s", gazURL)
	}
	if err := c.limiter.Wait(ctx, gazURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, gazURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch gazetteer: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch gazetteer: status %d", resp.StatusCode)
	}

	return ParsePlaces(resp.Body)
}

// ParsePlaces reads a tab-delimited gazetteer place file. The NAME column
// is 4th, LSAD 5th; the header row is skipped and unknown LSAD classes are
// ignored.
func ParsePlaces(r io.Reader) (*PlaceLists, error) {
	lists := &PlaceLists{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			first = false
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 5 {
			continue
		}
		cat, ok := lsadCategories[strings.TrimSpace(cols[4])]
		if !ok {
			continue
		}
		name := strings.TrimSpace(cols[3])
		name = strings.TrimSuffix(name, categorySuffixes[cat])
		if name == "" {
			continue
		}
		lists.add(cat, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read gazetteer: %w", err)
	}
	return lists, nil
}
