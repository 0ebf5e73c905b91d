// Package portalapi exposes typed access to every endpoint of the portal REST
// API consumed by the client.
package portalapi

import (
	"context"
	"strconv"

	"github.com/pevans/campus/decode"
	"github.com/pevans/campus/fetcher"
)

// Endpoint paths relative to the API base URL.
const (
	PathDepartments       = "departments"
	PathScienceClubs      = "scientific-Circles"
	PathBuildings         = "maps"
	PathInfos             = "infos"
	PathVersion           = "version"
	PathWeekDayExceptions = "week-day-exceptions"
	PathNotices           = "notices"
	PathAcademicYearEnd   = "academic-year-end-date"
)

// Client wraps a Fetcher with typed endpoint methods.
type Client struct {
	fetcher *fetcher.Fetcher
}

// NewClient creates a client on top of f.
func NewClient(f *fetcher.Fetcher) *Client {
	return &Client{fetcher: f}
}

// get fetches path and decodes the body into a T.
func get[T any](ctx context.Context, c *Client, path string, page *fetcher.Page) (T, error) {
	body, err := c.fetcher.Fetch(ctx, path, page)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode.Decode[T](body)
}

// Departments lists departments; a nil page fetches all of them.
func (c *Client) Departments(ctx context.Context, page *fetcher.Page) ([]Department, error) {
	return get[[]Department](ctx, c, PathDepartments, page)
}

// Department fetches a single department by ID.
func (c *Client) Department(ctx context.Context, id int) (Department, error) {
	return get[Department](ctx, c, PathDepartments+"/"+strconv.Itoa(id), nil)
}

// ScienceClubs lists science clubs; a nil page fetches all of them.
func (c *Client) ScienceClubs(ctx context.Context, page *fetcher.Page) ([]ScienceClub, error) {
	return get[[]ScienceClub](ctx, c, PathScienceClubs, page)
}

// Buildings lists campus buildings. The maps endpoint is not paginated, so
// page is ignored.
func (c *Client) Buildings(ctx context.Context, _ *fetcher.Page) ([]Building, error) {
	return get[[]Building](ctx, c, PathBuildings, nil)
}

// Infos lists informational pages; a nil page fetches all of them.
func (c *Client) Infos(ctx context.Context, page *fetcher.Page) ([]Info, error) {
	return get[[]Info](ctx, c, PathInfos, page)
}

// Version fetches the current content version.
func (c *Client) Version(ctx context.Context) (Version, error) {
	return get[Version](ctx, c, PathVersion, nil)
}

// WeekDayExceptions fetches timetable exception days.
func (c *Client) WeekDayExceptions(ctx context.Context) (ExceptionDays, error) {
	return get[ExceptionDays](ctx, c, PathWeekDayExceptions, nil)
}

// Notices fetches "what's new" notices.
func (c *Client) Notices(ctx context.Context) ([]WhatsNew, error) {
	return get[[]WhatsNew](ctx, c, PathNotices, nil)
}

// AcademicYearEnd fetches the academic year end date.
func (c *Client) AcademicYearEnd(ctx context.Context) (SessionDay, error) {
	return get[SessionDay](ctx, c, PathAcademicYearEnd, nil)
}
