// Package view holds list view state and the loaders that keep it current.
//
// Each list slice (bid notices, awards, order plans) is one ListState value
// changed only through Request, Resolve and Reject. Every Request bumps Seq;
// a response is applied only if it carries the current Seq, so a slow
// response to a superseded request can never overwrite newer data.
package view

import (
	"github.com/TobiSchelling/g2bdash/internal/procurement"
)

// Status summarizes what a list slice can show.
type Status int

const (
	Idle Status = iota
	Loading
	Empty
	Ready
	Failed
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Empty:
		return "empty"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return "idle"
}

// ListState is the complete state of one list slice.
type ListState struct {
	Kind    procurement.Kind
	Filters procurement.Filters
	Page    procurement.Page
	Result  *procurement.ListResult
	Loading bool
	Err     error
	Seq     uint64

	// filters and page of the last applied response, restored by Abandon.
	shownFilters procurement.Filters
	shownPage    procurement.Page
}

// NewListState returns idle state for kind on page 1.
func NewListState(kind procurement.Kind, pageSize int) ListState {
	return ListState{Kind: kind, Page: procurement.FirstPage(pageSize)}
}

// Request records a new fetch for filters/page and returns the state with
// the new sequence number. The previous result stays visible while loading.
func (s ListState) Request(f procurement.Filters, p procurement.Page) ListState {
	if !s.Loading {
		s.shownFilters, s.shownPage = s.Filters, s.Page
	}
	s.Filters = f
	s.Page = p
	s.Loading = true
	s.Err = nil
	s.Seq++
	return s
}

// Resolve applies a successful response for seq. Responses for any other
// sequence number are ignored.
func (s ListState) Resolve(seq uint64, r *procurement.ListResult) ListState {
	if seq != s.Seq || !s.Loading {
		return s
	}
	if r == nil {
		r = procurement.EmptyResult(s.Kind, s.Page)
	}
	s.Result = r
	s.Loading = false
	s.Err = nil
	return s
}

// Reject applies a failed response for seq: the slice falls back to an
// empty page with zero total and keeps the error.
func (s ListState) Reject(seq uint64, err error) ListState {
	if seq != s.Seq || !s.Loading {
		return s
	}
	s.Result = procurement.EmptyResult(s.Kind, s.Page)
	s.Loading = false
	s.Err = err
	return s
}

// Abandon drops the request for seq without a response, as when the user
// cancels it: loading ends and the slice shows what it showed before.
func (s ListState) Abandon(seq uint64) ListState {
	if seq != s.Seq || !s.Loading {
		return s
	}
	s.Filters, s.Page = s.shownFilters, s.shownPage
	s.Loading = false
	return s
}

// Status reports the display state.
func (s ListState) Status() Status {
	switch {
	case s.Loading:
		return Loading
	case s.Err != nil:
		return Failed
	case s.Result == nil:
		return Idle
	case s.Result.Len() == 0:
		return Empty
	}
	return Ready
}

// Total is the filtered total, zero before the first response.
func (s ListState) Total() int {
	if s.Result == nil {
		return 0
	}
	return s.Result.Total
}

// PageCount is the page count of the current result.
func (s ListState) PageCount() int {
	if s.Result == nil {
		return 0
	}
	return s.Result.PageCount()
}

// HasPrev reports whether a previous page exists.
func (s ListState) HasPrev() bool {
	return s.Page.Number > 1
}

// HasNext reports whether a next page exists.
func (s ListState) HasNext() bool {
	return s.Page.Number < s.PageCount()
}
