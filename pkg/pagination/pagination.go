package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is a limit/offset window over a listing.
type Params struct {
	Limit  int
	Offset int
}

// FromContext reads ?limit= and ?offset=, clamping limit to [1, MaxLimit]
// and offset to >= 0.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// Bounds returns the [start, end) window of a slice of length n. A
// non-positive Limit means everything from Offset on.
func (p Params) Bounds(n int) (int, int) {
	start := p.Offset
	if start > n {
		start = n
	}
	end := n
	if p.Limit > 0 && start+p.Limit < n {
		end = start + p.Limit
	}
	return start, end
}

func (p Params) HasNext(total int) bool { return p.Limit > 0 && p.Offset+p.Limit < total }

func (p Params) HasPrevious() bool { return p.Offset > 0 }

// PreviousOffset never goes below zero.
func (p Params) PreviousOffset() int {
	if prev := p.Offset - p.Limit; prev > 0 {
		return prev
	}
	return 0
}

// Response is the list envelope returned by collection endpoints.
type Response struct {
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	HasMore bool        `json:"has_more"`
	// NextOffset and PrevOffset are set only when that page exists.
	NextOffset *int `json:"next_offset,omitempty"`
	PrevOffset *int `json:"prev_offset,omitempty"`
}

func NewResponse(data interface{}, total int, p Params) *Response {
	r := &Response{
		Data:    data,
		Total:   total,
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasMore: p.HasNext(total),
	}
	if r.HasMore {
		next := p.Offset + p.Limit
		r.NextOffset = &next
	}
	if p.HasPrevious() {
		prev := p.PreviousOffset()
		r.PrevOffset = &prev
	}
	return r
}
