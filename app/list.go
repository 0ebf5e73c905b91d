package app

import (
	"context"

	"github.com/pevans/campus/paging"
)

// View is an untyped snapshot of a feature list for rendering.
type View struct {
	Feature string        `json:"feature"`
	Items   any           `json:"items"`
	Total   int           `json:"total"`
	Shown   int           `json:"shown"`
	Tags    []paging.Tag  `json:"tags"`
	Filter  paging.Filter `json:"filter"`
	State   paging.State  `json:"state"`
	Error   string        `json:"error,omitempty"`
}

// List is the feature-independent surface of a paging.Controller.
type List interface {
	Name() string
	LoadMore(ctx context.Context) error
	LoadAll(ctx context.Context) error
	Reset()
	SetSearch(text string)
	SelectTag(tag *paging.Tag)
	State() paging.State
	Tags() []paging.Tag
	View() View
}

type list[T paging.Item] struct {
	*paging.Controller[T]
}

func listOf[T paging.Item](c *paging.Controller[T]) List {
	return list[T]{c}
}

func (l list[T]) View() View {
	snap := l.Snapshot()

	visible := snap.Visible
	if visible == nil {
		visible = []T{}
	}

	v := View{
		Feature: l.Name(),
		Items:   visible,
		Total:   len(snap.Items),
		Shown:   len(visible),
		Tags:    snap.Tags,
		Filter:  snap.Filter,
		State:   snap.State,
	}
	if snap.LastErr != nil {
		v.Error = snap.LastErr.Error()
	}
	return v
}
