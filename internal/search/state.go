package search

import (
	"github.com/arawak/thankyou/internal/catalog"
)

type Mode string

const (
	ModeRandom Mode = "random"
	ModeSearch Mode = "search"
)

// View is the active result set. It is either a RandomView or a SearchView.
type View interface {
	Mode() Mode
	Images() []catalog.Image
}

type RandomView struct {
	Random []catalog.Image
}

func (RandomView) Mode() Mode { return ModeRandom }

func (v RandomView) Images() []catalog.Image { return v.Random }

type SearchView struct {
	Query      string
	Page       catalog.Page
	Pagination catalog.Pagination
}

func (SearchView) Mode() Mode { return ModeSearch }

func (v SearchView) Images() []catalog.Image { return v.Page.Results }

// State is a point-in-time copy of the orchestrator.
type State struct {
	View    View
	Input   string
	Loading bool
	Err     error
}

// Pagination reports the active pagination; random mode reports the empty one.
func (s State) Pagination() catalog.Pagination {
	if sv, ok := s.View.(SearchView); ok {
		return sv.Pagination
	}
	return catalog.EmptyPagination()
}

// Query is the active search query, empty in random mode.
func (s State) Query() string {
	if sv, ok := s.View.(SearchView); ok {
		return sv.Query
	}
	return ""
}
