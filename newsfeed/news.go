package newsfeed

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pevans/campus/paging"
)

// Summary is one entry of the news listing. When DetailsURL is set the
// summary is scrapable: its article must be resolved through the scraper
// before it is shown in full.
type Summary struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	ImageURL    string    `json:"image_url"`
	DateLabel   string    `json:"date_label"`
	Description string    `json:"description"`
	DetailsURL  *string   `json:"details_url,omitempty"`
}

// NewSummary builds a summary with a name-based ID: the details URL when
// present, otherwise title and image. The same article therefore gets the
// same ID on every page and every run.
func NewSummary(title, imageURL, dateLabel, description string, detailsURL *string) Summary {
	name := title + "\x00" + imageURL
	if detailsURL != nil {
		name = *detailsURL
	}

	return Summary{
		ID:          uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)),
		Title:       title,
		ImageURL:    imageURL,
		DateLabel:   dateLabel,
		Description: description,
		DetailsURL:  detailsURL,
	}
}

// Scrapable reports whether the summary links to a full article page.
func (s Summary) Scrapable() bool {
	return s.DetailsURL != nil && *s.DetailsURL != ""
}

func (s Summary) ItemKey() string        { return s.ID.String() }
func (s Summary) SearchFields() []string { return []string{s.Title, s.Description} }
func (s Summary) ItemTags() []paging.Tag { return nil }

// ComponentKind names the variant of a Component.
type ComponentKind string

const (
	KindImage ComponentKind = "image"
	KindText  ComponentKind = "text"
)

// Component is one segment of a scraped article. The only implementations
// are ImageComponent and TextComponent.
type Component interface {
	Kind() ComponentKind
	isComponent()
}

// ImageComponent is an image in the article body.
type ImageComponent struct {
	URL string
}

// TextComponent is a paragraph of article text.
type TextComponent struct {
	Content string
}

func (ImageComponent) Kind() ComponentKind { return KindImage }
func (ImageComponent) isComponent()        {}

func (TextComponent) Kind() ComponentKind { return KindText }
func (TextComponent) isComponent()        {}

// MarshalJSON encodes the image as {"kind":"image","url":...}.
func (c ImageComponent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind ComponentKind `json:"kind"`
		URL  string        `json:"url"`
	}{KindImage, c.URL})
}

// MarshalJSON encodes the text as {"kind":"text","content":...}.
func (c TextComponent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind    ComponentKind `json:"kind"`
		Content string        `json:"content"`
	}{KindText, c.Content})
}
