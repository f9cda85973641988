package services

import (
	"net/url"
	"strconv"
	"strings"
)

// Pagination defaults shared by every list endpoint
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
	DefaultPage      = 1
)

// PageOptions carries the query options accepted by paginated endpoints:
// sortBy ("field:asc" or "field:desc"), limit and page (1-indexed).
type PageOptions struct {
	SortBy string
	Limit  int
	Page   int
}

// Page is the response envelope for paginated queries. totalResults comes
// from a count query that runs separately from the fetch, so the two can be
// stale relative to each other under concurrent writes.
type Page struct {
	Results      interface{} `json:"results"`
	Page         int         `json:"page"`
	Limit        int         `json:"limit"`
	TotalPages   int         `json:"totalPages"`
	TotalResults int         `json:"totalResults"`
}

// ParsePageOptions reads sortBy/limit/page from the query string, applying
// defaults and clamping limit to MaxPageLimit.
func ParsePageOptions(q url.Values) PageOptions {
	opts := PageOptions{
		SortBy: q.Get("sortBy"),
		Limit:  DefaultPageLimit,
		Page:   DefaultPage,
	}

	if limitStr := q.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
			if opts.Limit > MaxPageLimit {
				opts.Limit = MaxPageLimit
			}
		}
	}

	if pageStr := q.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}

	return opts
}

// Offset converts the 1-indexed page into a SQL OFFSET.
func (o PageOptions) Offset() int {
	return (o.Page - 1) * o.Limit
}

// OrderBy resolves the sortBy spec against a whitelist of sortable fields
// (request field name -> column name). Unknown fields and malformed specs
// fall back to the given clause. Only whitelisted column names ever reach
// the query text.
func (o PageOptions) OrderBy(columns map[string]string, fallback string) string {
	if o.SortBy == "" {
		return fallback
	}

	field := o.SortBy
	direction := "ASC"
	if idx := strings.IndexByte(o.SortBy, ':'); idx >= 0 {
		field = o.SortBy[:idx]
		switch strings.ToLower(o.SortBy[idx+1:]) {
		case "desc":
			direction = "DESC"
		case "asc":
			direction = "ASC"
		default:
			return fallback
		}
	}

	column, ok := columns[field]
	if !ok {
		return fallback
	}
	return column + " " + direction
}

// TotalPages computes ceil(totalResults / limit).
func TotalPages(totalResults, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (totalResults + limit - 1) / limit
}

// NewPage assembles the envelope around a fetched result slice.
func NewPage(results interface{}, opts PageOptions, totalResults int) Page {
	return Page{
		Results:      results,
		Page:         opts.Page,
		Limit:        opts.Limit,
		TotalPages:   TotalPages(totalResults, opts.Limit),
		TotalResults: totalResults,
	}
}
