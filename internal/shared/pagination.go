package shared

import (
	"net/url"
	"strconv"
)

const (
	defaultLimit = 100
	maxLimit     = 500
)

// Page carries limit/offset list parameters.
type Page struct {
	Limit  int
	Offset int
}

// PageFromQuery reads limit and offset, clamping to sane bounds.
func PageFromQuery(q url.Values) Page {
	page := Page{Limit: defaultLimit}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 {
		page.Limit = l
	}
	if page.Limit > maxLimit {
		page.Limit = maxLimit
	}
	if o, err := strconv.Atoi(q.Get("offset")); err == nil && o >= 0 {
		page.Offset = o
	}
	return page
}
