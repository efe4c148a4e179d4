// Package content extracts role descriptions from job-posting pages so
// question authors can seed role-specific keyword lists.
package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/chadd28/hackrice-15-sub000/pkg/logger"
)

type Scraper struct {
	httpClient  *http.Client
	maxKeywords int
}

type JobPosting struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

func NewScraper(timeout time.Duration, maxKeywords int) *Scraper {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	if maxKeywords == 0 {
		maxKeywords = 15
	}
	return &Scraper{
		httpClient:  &http.Client{Timeout: timeout},
		maxKeywords: maxKeywords,
	}
}

func (s *Scraper) FetchJobPosting(ctx context.Context, rawURL string) (*JobPosting, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}

	logger.Info("Fetching job posting", zap.String("url", rawURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", "prepai-scraper/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, rawURL)
	}

	posting, err := s.Parse(resp.Body)
	if err != nil {
		return nil, err
	}
	posting.URL = rawURL

	logger.Info("Job posting extracted",
		zap.String("title", posting.Title),
		zap.Int("keywords", len(posting.Keywords)),
	)

	return posting, nil
}

// Parse extracts the title, cleaned text, and suggested keywords from a
// job-posting HTML document.
func (s *Scraper) Parse(r io.Reader) (*JobPosting, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, nav, header, footer, iframe, noscript").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	description := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	if description == "" {
		return nil, fmt.Errorf("no content extracted from HTML")
	}

	keywords, err := SuggestKeywords(description, s.maxKeywords)
	if err != nil {
		logger.Warn("Keyword suggestion failed", zap.Error(err))
		keywords = []string{}
	}

	return &JobPosting{
		Title:       title,
		Description: description,
		Keywords:    keywords,
	}, nil
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL missing host")
	}
	return nil
}
