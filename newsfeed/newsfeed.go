// Package newsfeed models university news and resolves it from an RSS/Atom
// feed or, when no feed is available, from the scraped news pages.
package newsfeed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/pevans/campus/fetcher"
	"github.com/pevans/campus/logger"
	"go.uber.org/zap"
)

// DefaultPages is the number of listing pages scraped when none is
// configured.
const DefaultPages = 3

// DateLabelFormat renders feed publication dates the way the news site does.
const DateLabelFormat = "02.01.2006"

// ErrEmptyFeed is returned when a feed parses but carries no items.
var ErrEmptyFeed = errors.New("feed has no items")

// Scraper extracts news from the university website.
type Scraper interface {
	ListSummaries(ctx context.Context, pageCount int) ([]Summary, error)
	ArticleComponents(ctx context.Context, url string) ([]Component, error)
}

// Config configures a Feed.
type Config struct {
	// FeedURL is an optional RSS or Atom feed tried before scraping.
	FeedURL string
	// Pages is the number of listing pages to scrape, within the scraper's
	// accepted range.
	Pages int
	// Client is used for feed requests. Nil means http.DefaultClient.
	Client *http.Client
}

// Feed resolves news summaries and articles.
type Feed struct {
	scraper Scraper
	parser  *gofeed.Parser
	config  Config
	log     *zap.Logger
}

// NewFeed creates a news feed backed by scraper.
func NewFeed(scraper Scraper, config Config, log *zap.Logger) *Feed {
	if config.Pages == 0 {
		config.Pages = DefaultPages
	}

	parser := gofeed.NewParser()
	parser.Client = config.Client
	parser.UserAgent = fetcher.UserAgent

	return &Feed{
		scraper: scraper,
		parser:  parser,
		config:  config,
		log:     logger.OrNop(log).With(zap.String("component", "newsfeed")),
	}
}

// Summaries returns the current news listing. The configured feed is tried
// first; any failure there falls back to scraping.
func (f *Feed) Summaries(ctx context.Context) ([]Summary, error) {
	if f.config.FeedURL != "" {
		summaries, err := f.fetchFeed(ctx)
		if err == nil {
			return summaries, nil
		}
		f.log.Warn("news feed unavailable, falling back to scraping",
			zap.String("feed_url", f.config.FeedURL),
			zap.Error(err),
		)
	}

	summaries, err := f.scraper.ListSummaries(ctx, f.config.Pages)
	if err != nil {
		return nil, fmt.Errorf("failed to scrape news: %w", err)
	}
	return summaries, nil
}

// Article returns the components of the summary's article. Summaries that
// are not scrapable yield their description as a single text component.
func (f *Feed) Article(ctx context.Context, summary Summary) ([]Component, error) {
	if !summary.Scrapable() {
		if summary.Description == "" {
			return []Component{}, nil
		}
		return []Component{TextComponent{Content: summary.Description}}, nil
	}

	components, err := f.scraper.ArticleComponents(ctx, *summary.DetailsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to scrape article: %w", err)
	}
	return components, nil
}

// fetchFeed parses the configured feed into summaries.
func (f *Feed) fetchFeed(ctx context.Context) ([]Summary, error) {
	feed, err := f.parser.ParseURLWithContext(f.config.FeedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	if len(feed.Items) == 0 {
		return nil, ErrEmptyFeed
	}

	summaries := make([]Summary, 0, len(feed.Items))
	seen := make(map[string]bool, len(feed.Items))
	for _, item := range feed.Items {
		summary := FeedItemToSummary(item)
		if seen[summary.ItemKey()] {
			continue
		}
		seen[summary.ItemKey()] = true
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// FeedItemToSummary converts an RSS or Atom item to a Summary. gofeed
// normalizes both formats, so the mapping is shared.
func FeedItemToSummary(item *gofeed.Item) Summary {
	title := strings.Join(strings.Fields(item.Title), " ")
	if title == "" {
		title = "(No title)"
	}

	// Image: explicit item image, then the first image enclosure
	var imageURL string
	if item.Image != nil {
		imageURL = item.Image.URL
	}
	if imageURL == "" {
		for _, enc := range item.Enclosures {
			if strings.HasPrefix(enc.Type, "image/") {
				imageURL = enc.URL
				break
			}
		}
	}

	var dateLabel string
	if item.PublishedParsed != nil {
		dateLabel = item.PublishedParsed.Format(DateLabelFormat)
	} else if item.UpdatedParsed != nil {
		dateLabel = item.UpdatedParsed.Format(DateLabelFormat)
	}

	var detailsURL *string
	if link := strings.TrimSpace(item.Link); link != "" {
		detailsURL = &link
	}

	return NewSummary(title, imageURL, dateLabel, htmlToText(item.Description), detailsURL)
}

// htmlToText strips markup from a feed description and collapses whitespace.
func htmlToText(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
