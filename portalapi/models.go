package portalapi

import (
	"strconv"

	"github.com/pevans/campus/paging"
)

// Media is an uploaded file reference as returned by the portal API.
type Media struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Department represents a university faculty or department.
type Department struct {
	ID          int           `json:"id"`
	Name        string        `json:"name"`
	Code        string        `json:"code"`
	Description string        `json:"description"`
	Website     string        `json:"website"`
	Address     string        `json:"address"`
	Logo        *Media        `json:"logo,omitempty"`
	Tags        []paging.Tag  `json:"tags"`
	Clubs       []ScienceClub `json:"scientific_circles,omitempty"`
}

func (d Department) ItemKey() string        { return strconv.Itoa(d.ID) }
func (d Department) SearchFields() []string { return []string{d.Name, d.Code, d.Description} }
func (d Department) ItemTags() []paging.Tag { return d.Tags }

// ScienceClub represents a student science club.
type ScienceClub struct {
	ID          int          `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Email       string       `json:"email"`
	Website     string       `json:"website"`
	Facebook    string       `json:"facebook"`
	Logo        *Media       `json:"logo,omitempty"`
	Tags        []paging.Tag `json:"tags"`
}

func (c ScienceClub) ItemKey() string        { return strconv.Itoa(c.ID) }
func (c ScienceClub) SearchFields() []string { return []string{c.Name, c.Description} }
func (c ScienceClub) ItemTags() []paging.Tag { return c.Tags }

// Building is a campus building entry from the maps endpoint.
type Building struct {
	ID          int          `json:"id"`
	Name        string       `json:"name"`
	Code        string       `json:"code"`
	Address     string       `json:"address"`
	Description string       `json:"description"`
	Latitude    float64      `json:"latitude"`
	Longitude   float64      `json:"longitude"`
	Image       *Media       `json:"image,omitempty"`
	Tags        []paging.Tag `json:"tags"`
}

func (b Building) ItemKey() string        { return strconv.Itoa(b.ID) }
func (b Building) SearchFields() []string { return []string{b.Name, b.Code, b.Address, b.Description} }
func (b Building) ItemTags() []paging.Tag { return b.Tags }

// Info is an informational page.
type Info struct {
	ID          int          `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Content     string       `json:"content"`
	Icon        *Media       `json:"icon,omitempty"`
	Tags        []paging.Tag `json:"tags"`
}

func (i Info) ItemKey() string        { return strconv.Itoa(i.ID) }
func (i Info) SearchFields() []string { return []string{i.Title, i.Description} }
func (i Info) ItemTags() []paging.Tag { return i.Tags }

// Version carries the API content version used to invalidate local state.
type Version struct {
	ID      int    `json:"id"`
	Version string `json:"version"`
}

// ExceptionDay is a date on which the university follows a different
// weekday's timetable.
type ExceptionDay struct {
	Date    string `json:"date"`
	Weekday string `json:"weekday"`
}

// ExceptionDays lists timetable exceptions for the academic year.
type ExceptionDays struct {
	ID   int            `json:"id"`
	Days []ExceptionDay `json:"days"`
}

// WhatsNew is a notice shown to users after an update.
type WhatsNew struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	PublishedAt string `json:"published_at"`
}

// SessionDay holds the academic year end date.
type SessionDay struct {
	ID   int    `json:"id"`
	Date string `json:"date"`
}
