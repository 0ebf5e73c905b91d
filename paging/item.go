package paging

import "strings"

// Tag labels list items and drives tag filtering. Tags are compared by name.
type Tag struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// AllTag is the synthetic facet that matches every item. It is always the
// first entry of a controller's tag facets.
var AllTag = Tag{ID: -1, Name: "All"}

// IsAll reports whether t is the synthetic All facet.
func (t Tag) IsAll() bool {
	return t.Name == AllTag.Name && t.ID == AllTag.ID
}

// Item is a record a Controller can page, deduplicate and filter.
type Item interface {
	// ItemKey returns the identifier that is unique within a collection.
	ItemKey() string
	// SearchFields returns the texts a search query is matched against,
	// typically name and description.
	SearchFields() []string
	// ItemTags returns the tags the item belongs to.
	ItemTags() []Tag
}

// Filter is the search text and optional tag applied to a list.
type Filter struct {
	Search string `json:"search"`
	Tag    *Tag   `json:"tag,omitempty"`
}

// IsEmpty reports whether the filter passes every item through.
func (f Filter) IsEmpty() bool {
	return f.Search == "" && (f.Tag == nil || f.Tag.IsAll())
}

// Matches reports whether item passes both the text and the tag predicate.
// Text matching is a case-insensitive substring test over SearchFields.
func (f Filter) Matches(item Item) bool {
	return f.matchesText(item) && f.matchesTag(item)
}

func (f Filter) matchesText(item Item) bool {
	if f.Search == "" {
		return true
	}
	needle := strings.ToLower(f.Search)
	for _, field := range item.SearchFields() {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func (f Filter) matchesTag(item Item) bool {
	if f.Tag == nil || f.Tag.IsAll() {
		return true
	}
	for _, tag := range item.ItemTags() {
		if tag.Name == f.Tag.Name {
			return true
		}
	}
	return false
}

// Apply returns the items that match f, preserving order. An empty filter
// returns items unchanged.
func Apply[T Item](items []T, f Filter) []T {
	if f.IsEmpty() {
		return items
	}
	visible := make([]T, 0, len(items))
	for _, item := range items {
		if f.Matches(item) {
			visible = append(visible, item)
		}
	}
	return visible
}

// Facets returns AllTag followed by the union of the items' tags in
// first-seen order.
func Facets[T Item](items []T) []Tag {
	tags := []Tag{AllTag}
	seen := map[string]bool{AllTag.Name: true}
	for _, item := range items {
		for _, tag := range item.ItemTags() {
			if seen[tag.Name] {
				continue
			}
			seen[tag.Name] = true
			tags = append(tags, tag)
		}
	}
	return tags
}
