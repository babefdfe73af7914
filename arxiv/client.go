// Package arxiv is the paper-search collaborator: a thin client for the
// arXiv Atom query API.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the public arXiv query endpoint.
const DefaultBaseURL = "https://export.arxiv.org/api/query"

// Paper is one search result record.
type Paper struct {
	Title     string   `json:"title"`
	Authors   []string `json:"authors"`
	Abstract  string   `json:"abstract"`
	Published string   `json:"published"`
	URL       string   `json:"url"`
	PDFURL    string   `json:"pdf_url"`
}

// Searcher is the call contract consumed by the tool layer.
type Searcher interface {
	Search(ctx context.Context, keyword string, limit int) ([]Paper, error)
}

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Client queries the arXiv Atom API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client with sane defaults.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Links []atomLink `xml:"link"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Title string `xml:"title,attr"`
}

// Search returns up to limit papers matching the keyword, sorted by
// relevance. A non-positive limit returns no results.
func (c *Client) Search(ctx context.Context, keyword string, limit int) ([]Paper, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := url.Values{}
	query.Set("search_query", fmt.Sprintf("all:%q", keyword))
	query.Set("start", "0")
	query.Set("max_results", fmt.Sprintf("%d", limit))
	query.Set("sortBy", "relevance")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("arxiv: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv: query failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv: unexpected status %d", resp.StatusCode)
	}

	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("arxiv: decode feed: %w", err)
	}

	papers := make([]Paper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		papers = append(papers, entry.toPaper())
	}
	return papers, nil
}

func (e atomEntry) toPaper() Paper {
	authors := make([]string, 0, len(e.Authors))
	for _, a := range e.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			authors = append(authors, name)
		}
	}

	paper := Paper{
		Title:     collapseWhitespace(e.Title),
		Authors:   authors,
		Abstract:  collapseWhitespace(e.Summary),
		Published: strings.TrimSpace(e.Published),
		URL:       strings.TrimSpace(e.ID),
	}
	for _, link := range e.Links {
		if link.Title == "pdf" || strings.Contains(link.Href, "/pdf/") {
			paper.PDFURL = link.Href
			break
		}
	}
	return paper
}

// collapseWhitespace folds the newline-padded text arXiv returns into
// single-spaced prose.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
