// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package feed fetches paged entries from the arXiv Atom API.
package feed

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/hagnberger/researchlens/internal/httputil"
	"github.com/hagnberger/researchlens/pkg/types"
)

// Entry is one parsed feed entry. Title and Abstract are normalized:
// embedded newlines collapsed to spaces, surrounding whitespace trimmed.
type Entry struct {
	// ArxivID is the last path segment of the entry's <id> URL, version
	// suffix kept (e.g. "2301.07041v1").
	ArxivID string

	// Title is the entry title.
	Title string

	// Abstract is the entry summary.
	Abstract string

	// PublishedDate is the date portion of the published timestamp
	// (first ten characters, YYYY-MM-DD).
	PublishedDate string

	// Authors lists author names with duplicates within the entry removed,
	// source order preserved.
	Authors []string

	// Link is the full entry <id> URL.
	Link string
}

// Client queries the feed endpoint with bounded retries.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	maxRetries int
}

// New builds a feed client from configuration. Zero-valued settings fall
// back to the defaults in types.DefaultConfig.
func New(cfg types.FeedConfig) *Client {
	def := types.DefaultConfig().Feed
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
	}
}

// Fetch retrieves one window of entries for a category. start is the
// result offset and maxResults the window size (the feed caps it at 100).
// Transient statuses are retried with backoff; any other failure, network
// error, or retry exhaustion is returned as an error and the caller is
// expected to abort its current ingestion pass.
func (c *Client) Fetch(ctx context.Context, category string, start, maxResults int) ([]Entry, error) {
	query := fmt.Sprintf("cat:%s.*", category)
	u := fmt.Sprintf("%s?search_query=%s&start=%d&max_results=%d",
		c.baseURL, url.QueryEscape(query), start, maxResults)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating feed request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := httputil.DoWithRetry(ctx, c.httpClient, req, c.maxRetries)
	if err != nil {
		return nil, fmt.Errorf("feed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned HTTP %d", resp.StatusCode)
	}

	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing feed response: %w", err)
	}

	entries := make([]Entry, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		id := strings.TrimSpace(e.ID)
		arxivID := lastPathSegment(id)
		if arxivID == "" {
			continue
		}

		entry := Entry{
			ArxivID:  arxivID,
			Title:    normalizeText(e.Title),
			Abstract: normalizeText(e.Summary),
			Link:     id,
		}

		if published := strings.TrimSpace(e.Published); len(published) >= 10 {
			entry.PublishedDate = published[:10]
		}

		// Some entries repeat an author; keep the first occurrence.
		seen := make(map[string]bool, len(e.Authors))
		for _, a := range e.Authors {
			name := strings.TrimSpace(a.Name)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			entry.Authors = append(entry.Authors, name)
		}

		entries = append(entries, entry)
	}
	return entries, nil
}

// Atom feed XML structures.
type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string       `xml:"id"`
	Title     string       `xml:"title"`
	Summary   string       `xml:"summary"`
	Published string       `xml:"published"`
	Authors   []atomAuthor `xml:"author"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

// lastPathSegment pulls the identifier from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041v1").
func lastPathSegment(idURL string) string {
	idx := strings.LastIndex(idURL, "/")
	if idx < 0 || idx == len(idURL)-1 {
		return ""
	}
	return idURL[idx+1:]
}

// normalizeText collapses whitespace runs (including newlines and carriage
// returns) to single spaces and trims the ends.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
