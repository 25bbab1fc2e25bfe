package api

import (
	"net/url"
	"strconv"
)

// SortOrder is the direction of a sorted list request.
type SortOrder string

const (
	// OrderAsc sorts ascending.
	OrderAsc SortOrder = "asc"

	// OrderDesc sorts descending.
	OrderDesc SortOrder = "desc"
)

// ListParams are the query parameters accepted by every list endpoint.
// Exactly one of Page or Cursor positions the request; both zero means the
// first page. Filters carry entity-specific parameters; multi-valued filters
// are serialized as repeated keys, never comma-joined.
type ListParams struct {
	Limit  int
	Page   int
	Cursor string
	Order  SortOrder
	SortBy string

	Filters url.Values
}

// Values serializes the parameters for the request URL.
func (p ListParams) Values() url.Values {
	v := url.Values{}
	v.Set("limit", strconv.Itoa(p.Limit))

	if p.Cursor != "" {
		v.Set("cursor", p.Cursor)
	} else if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}

	if p.Order != "" {
		v.Set("order", string(p.Order))
	}
	if p.SortBy != "" {
		v.Set("sortBy", p.SortBy)
	}

	// Repeated keys for array-valued filters.
	for key, vals := range p.Filters {
		for _, val := range vals {
			v.Add(key, val)
		}
	}

	return v
}

// WithFilter returns a copy of the params with one more filter value added.
func (p ListParams) WithFilter(key, value string) ListParams {
	filters := url.Values{}
	for k, vals := range p.Filters {
		for _, val := range vals {
			filters.Add(k, val)
		}
	}
	filters.Add(key, value)
	p.Filters = filters
	return p
}
