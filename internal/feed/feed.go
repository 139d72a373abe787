// Package feed fetches podcast episodes from an RSS feed. Episode
// descriptions are the extraction input; everything else is pass-through
// metadata.
package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Episode is a single podcast episode pulled from the feed.
type Episode struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	PubDate     string `json:"pub_date"`
	Link        string `json:"link"`
	GUID        string `json:"guid"`
}

// TextSource produces episodes for extraction.
type TextSource interface {
	FetchEpisodes(ctx context.Context) ([]Episode, error)
}

// DefaultTimeout bounds a single feed fetch.
const DefaultTimeout = 30 * time.Second

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title string    `xml:"title"`
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string  `xml:"title"`
	Description string  `xml:"description"`
	Encoded     string  `xml:"encoded"` // content:encoded, often richer than description
	PubDate     string  `xml:"pubDate"`
	Link        string  `xml:"link"`
	GUID        rssGUID `xml:"guid"`
}

type rssGUID struct {
	Value string `xml:",chardata"`
}

// Client reads episodes from a single RSS feed URL.
type Client struct {
	feedURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient returns a Client for feedURL. A nil httpClient gets a default
// with a 30 second timeout.
func NewClient(feedURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{feedURL: feedURL, httpClient: httpClient, logger: logger}
}

// FetchEpisodes downloads and parses the feed. Episode descriptions are
// stripped of HTML markup; an item with no usable identity gets a stable
// hash of its title and date.
func (c *Client) FetchEpisodes(ctx context.Context) ([]Episode, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("feed: building request: %w", err)
	}
	req.Header.Set("User-Agent", "podshelf/1.0")
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed: fetching %s: %w", c.feedURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed: fetching %s: unexpected status %d", c.feedURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("feed: reading response: %w", err)
	}

	episodes, err := ParseRSS(body)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("fetched feed", "url", c.feedURL, "episodes", len(episodes))
	return episodes, nil
}

// ParseRSS decodes an RSS document into episodes.
func ParseRSS(raw []byte) ([]Episode, error) {
	var doc rssDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("feed: parsing rss: %w", err)
	}

	episodes := make([]Episode, 0, len(doc.Channel.Items))
	for _, item := range doc.Channel.Items {
		description := item.Description
		if strings.TrimSpace(description) == "" {
			description = item.Encoded
		}
		ep := Episode{
			Title:       strings.TrimSpace(item.Title),
			Description: StripHTML(description),
			PubDate:     strings.TrimSpace(item.PubDate),
			Link:        strings.TrimSpace(item.Link),
			GUID:        strings.TrimSpace(item.GUID.Value),
		}
		ep.ID = episodeID(ep)
		episodes = append(episodes, ep)
	}
	return episodes, nil
}

// episodeID prefers the feed's GUID, then the link, then a content hash.
func episodeID(ep Episode) string {
	if ep.GUID != "" {
		return ep.GUID
	}
	if ep.Link != "" {
		return ep.Link
	}
	sum := sha256.Sum256([]byte(ep.Title + "|" + ep.PubDate))
	return hex.EncodeToString(sum[:8])
}

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// StripHTML removes markup from a feed description, unescapes entities,
// and collapses whitespace.
func StripHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
