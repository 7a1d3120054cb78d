// Package imagesearch suggests product photos from Wikimedia Commons.
package imagesearch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const DefaultEndpoint = "https://commons.wikimedia.org/w/api.php"

// fileNamespace is the MediaWiki namespace holding uploaded files.
const fileNamespace = 6

// Client queries the MediaWiki API of Commons.
type Client struct {
	endpoint string
	http     *http.Client
	log      *slog.Logger
}

func NewClient(endpoint string, timeout time.Duration, log *slog.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{endpoint: endpoint, http: &http.Client{Timeout: timeout}, log: log}
}

type searchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type imageInfoResponse struct {
	Query struct {
		Pages map[string]struct {
			Title     string `json:"title"`
			ImageInfo []struct {
				URL string `json:"url"`
			} `json:"imageinfo"`
		} `json:"pages"`
	} `json:"query"`
}

// Search returns up to limit image URLs matching query. Lookup failures are
// logged and produce an empty result.
func (c *Client) Search(ctx context.Context, query string, limit int) []string {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return nil
	}
	titles, err := c.searchTitles(ctx, query, limit)
	if err != nil {
		c.log.WarnContext(ctx, "image search failed", "query", query, "err", err)
		return nil
	}
	if len(titles) == 0 {
		return nil
	}
	urls, err := c.imageURLs(ctx, titles)
	if err != nil {
		c.log.WarnContext(ctx, "image info failed", "query", query, "err", err)
		return nil
	}
	if len(urls) > limit {
		urls = urls[:limit]
	}
	return urls
}

func (c *Client) searchTitles(ctx context.Context, query string, limit int) ([]string, error) {
	params := url.Values{
		"action":      {"query"},
		"list":        {"search"},
		"srsearch":    {query},
		"srnamespace": {strconv.Itoa(fileNamespace)},
		"srlimit":     {strconv.Itoa(limit)},
		"format":      {"json"},
	}
	var resp searchResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(resp.Query.Search))
	for _, r := range resp.Query.Search {
		titles = append(titles, r.Title)
	}
	return titles, nil
}

func (c *Client) imageURLs(ctx context.Context, titles []string) ([]string, error) {
	params := url.Values{
		"action": {"query"},
		"titles": {strings.Join(titles, "|")},
		"prop":   {"imageinfo"},
		"iiprop": {"url"},
		"format": {"json"},
	}
	var resp imageInfoResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}

	// keep the relevance order of the search step
	rank := make(map[string]int, len(titles))
	for i, t := range titles {
		rank[t] = i
	}
	type hit struct {
		rank int
		url  string
	}
	hits := make([]hit, 0, len(resp.Query.Pages))
	for _, p := range resp.Query.Pages {
		if len(p.ImageInfo) == 0 || p.ImageInfo[0].URL == "" {
			continue
		}
		hits = append(hits, hit{rank: rank[p.Title], url: p.ImageInfo[0].URL})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].rank < hits[j].rank })

	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.url)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, params url.Values, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "shopbot/1.0")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("commons returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
