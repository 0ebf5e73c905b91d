// Package scraper extracts news summaries and article bodies from the
// university website's HTML.
package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/campus/fetcher"
	"github.com/pevans/campus/logger"
	"github.com/pevans/campus/newsfeed"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/sync/errgroup"
)

// Page count bounds accepted by ListSummaries. The site paginates through
// fixed /page{N}.html URLs, so counts outside this range are caller bugs.
const (
	MinPages = 2
	MaxPages = 420
)

// ListingPath is the news listing location relative to the site base URL.
const ListingPath = "/uczelnia/aktualnosci"

// DefaultConcurrency bounds simultaneous secondary page fetches.
const DefaultConcurrency = 4

var (
	// ErrDataDecoding means a response body could not be decoded as text.
	ErrDataDecoding = errors.New("failed to decode response as text")
	// ErrNewsParsing means the markup did not have the expected structure.
	ErrNewsParsing = errors.New("failed to parse news markup")
)

// Scraper fetches and parses news pages. It is safe for concurrent use.
type Scraper struct {
	base        *url.URL
	client      *http.Client
	selectors   Selectors
	concurrency int
	log         *zap.Logger
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithClient sets the HTTP client.
func WithClient(client *http.Client) Option {
	return func(s *Scraper) { s.client = client }
}

// WithSelectors overrides the default selectors; empty fields keep their
// defaults.
func WithSelectors(selectors Selectors) Option {
	return func(s *Scraper) { s.selectors = selectors.withDefaults() }
}

// WithConcurrency bounds simultaneous secondary page fetches.
func WithConcurrency(n int) Option {
	return func(s *Scraper) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Scraper) { s.log = logger.OrNop(log) }
}

// New creates a scraper for the site at baseURL.
func New(baseURL string, opts ...Option) (*Scraper, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid scrape base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("scrape base URL must use http or https scheme")
	}

	s := &Scraper{
		base:        base,
		client:      &http.Client{Timeout: fetcher.DefaultTimeout},
		selectors:   DefaultSelectors(),
		concurrency: DefaultConcurrency,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(zap.String("component", "scraper"))
	return s, nil
}

// PageURL returns the listing URL of page n; page 1 is the bare listing.
func (s *Scraper) PageURL(n int) string {
	listing := s.base.String() + ListingPath
	if n <= 1 {
		return listing
	}
	return fmt.Sprintf("%s/page%d.html", listing, n)
}

// ListSummaries scrapes listing pages 1 through pageCount. A failure on page
// 1 is returned; failures on later pages are logged and those pages simply
// contribute nothing. Results keep page order with page 1 first and are
// deduplicated by summary ID.
//
// pageCount must lie within [MinPages, MaxPages]; anything else panics
// before any request is made.
func (s *Scraper) ListSummaries(ctx context.Context, pageCount int) ([]newsfeed.Summary, error) {
	if pageCount < MinPages || pageCount > MaxPages {
		panic(fmt.Sprintf("scraper: page count %d outside [%d, %d]", pageCount, MinPages, MaxPages))
	}

	first, err := s.scrapeListing(ctx, 1)
	if err != nil {
		return nil, err
	}

	rest := make([][]newsfeed.Summary, pageCount-1)
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for n := 2; n <= pageCount; n++ {
		g.Go(func() error {
			summaries, err := s.scrapeListing(ctx, n)
			if err != nil {
				s.log.Warn("skipping news page", zap.Int("page", n), zap.Error(err))
				return nil
			}
			rest[n-2] = summaries
			return nil
		})
	}
	_ = g.Wait()

	out := make([]newsfeed.Summary, 0, len(first)*pageCount)
	seen := make(map[string]bool)
	for _, page := range append([][]newsfeed.Summary{first}, rest...) {
		for _, summary := range page {
			if seen[summary.ItemKey()] {
				continue
			}
			seen[summary.ItemKey()] = true
			out = append(out, summary)
		}
	}

	s.log.Debug("news listing scraped", zap.Int("pages", pageCount), zap.Int("summaries", len(out)))
	return out, nil
}

// ArticleComponents scrapes an article page into components in document
// order. A paragraph holding an image with a usable source becomes an
// ImageComponent and its text is ignored; any other non-empty paragraph,
// including one whose image has no source, becomes a TextComponent with
// collapsed whitespace.
func (s *Scraper) ArticleComponents(ctx context.Context, articleURL string) ([]newsfeed.Component, error) {
	pageURL, err := s.base.Parse(articleURL)
	if err != nil {
		return nil, &fetcher.FetchError{Message: "malformed URL", Err: err}
	}

	doc, err := s.fetchDocument(ctx, pageURL.String())
	if err != nil {
		return nil, err
	}
	return ExtractArticle(doc, s.selectors.Article, pageURL)
}

// scrapeListing fetches and parses one listing page.
func (s *Scraper) scrapeListing(ctx context.Context, n int) ([]newsfeed.Summary, error) {
	pageURL := s.PageURL(n)
	doc, err := s.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	base, _ := url.Parse(pageURL)
	summaries, err := ExtractSummaries(doc, s.selectors.List, base)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", n, err)
	}
	return summaries, nil
}

// fetchDocument fetches pageURL and parses it as HTML.
func (s *Scraper) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	body, contentType, err := fetcher.GetWithContentType(ctx, s.client, pageURL, s.log)
	if err != nil {
		return nil, err
	}

	text, err := DecodeText(body, contentType)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNewsParsing, err)
	}
	return doc, nil
}

// DecodeText converts a page body to a string. A charset declared by a BOM,
// the Content-Type header or a meta tag is honored; otherwise the body must
// be valid UTF-8.
func DecodeText(body []byte, contentType string) (string, error) {
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" || (!certain && utf8.Valid(body)) {
		if !utf8.Valid(body) {
			return "", ErrDataDecoding
		}
		return string(bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))), nil
	}

	// windows-1252 is DetermineEncoding's guess for undeclared content.
	if !certain && name == "windows-1252" && !declaresCharset(body) {
		return "", ErrDataDecoding
	}

	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDataDecoding, err)
	}
	return string(out), nil
}

// declaresCharset reports whether the document head mentions a charset.
func declaresCharset(body []byte) bool {
	head := body[:min(len(body), 1024)]
	return bytes.Contains(bytes.ToLower(head), []byte("charset"))
}

// ExtractSummaries parses the news boxes of a listing document. Boxes
// without a title are skipped; if no box yields a summary the page is
// reported as ErrNewsParsing.
func ExtractSummaries(doc *goquery.Document, sel ListSelectors, base *url.URL) ([]newsfeed.Summary, error) {
	boxes := doc.Find(sel.NewsBox)
	if boxes.Length() == 0 {
		return nil, fmt.Errorf("%w: no elements match %q", ErrNewsParsing, sel.NewsBox)
	}

	var summaries []newsfeed.Summary
	boxes.Each(func(_ int, box *goquery.Selection) {
		titleLink := box.Find(sel.TitleLink).First()
		title := normalize(titleLink.Text())
		if title == "" {
			return
		}

		var detailsURL *string
		if href, ok := titleLink.Attr("href"); ok {
			if resolved := resolve(base, href); resolved != "" {
				detailsURL = &resolved
			}
		}

		imageURL := resolve(base, imageSource(box.Find(sel.Image).First()))

		var paragraphs []string
		box.Find(sel.TextBlock).First().Find(sel.Paragraph).Each(func(_ int, p *goquery.Selection) {
			paragraphs = append(paragraphs, normalize(p.Text()))
		})

		// The first paragraph carries the date, the second the lead.
		var dateLabel, description string
		switch {
		case len(paragraphs) >= 2:
			dateLabel, description = paragraphs[0], paragraphs[1]
		case len(paragraphs) == 1:
			description = paragraphs[0]
		}

		summaries = append(summaries, newsfeed.NewSummary(title, imageURL, dateLabel, description, detailsURL))
	})

	if len(summaries) == 0 {
		return nil, fmt.Errorf("%w: no news box has a title", ErrNewsParsing)
	}
	return summaries, nil
}

// ExtractArticle returns the components of an article document in document
// order.
func ExtractArticle(doc *goquery.Document, sel ArticleSelectors, base *url.URL) ([]newsfeed.Component, error) {
	container := doc.Find(sel.Container).First()
	if container.Length() == 0 {
		return nil, fmt.Errorf("%w: no elements match %q", ErrNewsParsing, sel.Container)
	}

	paragraphs := container.Find(sel.Paragraph)
	if paragraphs.Length() == 0 {
		return nil, fmt.Errorf("%w: article has no paragraphs", ErrNewsParsing)
	}

	components := make([]newsfeed.Component, 0, paragraphs.Length())
	paragraphs.Each(func(_ int, p *goquery.Selection) {
		if img := p.Find(sel.Image).First(); img.Length() > 0 {
			if src := resolve(base, imageSource(img)); src != "" {
				components = append(components, newsfeed.ImageComponent{URL: src})
				return
			}
		}

		if text := normalize(p.Text()); text != "" {
			components = append(components, newsfeed.TextComponent{Content: text})
		}
	})

	return components, nil
}

// imageSource returns the src of an image, falling back to lazy-load data-src.
func imageSource(img *goquery.Selection) string {
	if src, ok := img.Attr("src"); ok && strings.TrimSpace(src) != "" {
		return strings.TrimSpace(src)
	}
	src, _ := img.Attr("data-src")
	return strings.TrimSpace(src)
}

// resolve makes ref absolute against base. Empty or unparsable refs resolve
// to "".
func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := base.Parse(ref)
	if err != nil {
		return ""
	}
	return u.String()
}

// normalize collapses runs of whitespace into single spaces.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
