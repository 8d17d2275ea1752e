package delivery

import (
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/fivetwenty-io/cda-client/internal/constants"
)

// QueryParams represents query parameters of a collection request.
type QueryParams struct {
	ContentType string
	Skip        int
	Limit       int
	Order       []string
	Locale      string
	Select      []string

	// Include is the link depth the service embeds in includes. Nil leaves
	// the service default in place.
	Include *int

	// Filters maps a field path with optional operator, e.g. "fields.slug"
	// or "sys.id[in]", to its values.
	Filters map[string][]string
}

// NewQueryParams creates new query parameters.
func NewQueryParams() *QueryParams {
	return &QueryParams{
		Filters: make(map[string][]string),
	}
}

// WithContentType restricts entries to one content type.
func (q *QueryParams) WithContentType(contentType string) *QueryParams {
	q.ContentType = contentType

	return q
}

// WithSkip sets the number of items skipped.
func (q *QueryParams) WithSkip(skip int) *QueryParams {
	q.Skip = max(skip, 0)

	return q
}

// WithLimit sets the page size, capped at the service maximum.
func (q *QueryParams) WithLimit(limit int) *QueryParams {
	q.Limit = min(max(limit, 0), constants.MaxPageLimit)

	return q
}

// WithOrder appends order clauses such as "-sys.createdAt".
func (q *QueryParams) WithOrder(order ...string) *QueryParams {
	q.Order = append(q.Order, order...)

	return q
}

// WithInclude sets the include depth, clamped to 0..10.
func (q *QueryParams) WithInclude(depth int) *QueryParams {
	depth = min(max(depth, 0), constants.MaxIncludeDepth)
	q.Include = &depth

	return q
}

// WithLocale selects the locale of returned fields. "*" returns all locales.
func (q *QueryParams) WithLocale(locale string) *QueryParams {
	q.Locale = locale

	return q
}

// WithSelect limits the returned properties, e.g. "fields.title".
func (q *QueryParams) WithSelect(paths ...string) *QueryParams {
	q.Select = append(q.Select, paths...)

	return q
}

// WithFilter appends values to a field filter.
func (q *QueryParams) WithFilter(key string, values ...string) *QueryParams {
	if q.Filters == nil {
		q.Filters = make(map[string][]string)
	}

	q.Filters[key] = append(q.Filters[key], values...)

	return q
}

// WithIDs filters by sys.id.
func (q *QueryParams) WithIDs(ids ...string) *QueryParams {
	if len(ids) == 1 {
		return q.WithFilter("sys.id", ids[0])
	}

	return q.WithFilter("sys.id[in]", ids...)
}

// Clone returns a deep copy.
func (q *QueryParams) Clone() *QueryParams {
	if q == nil {
		return NewQueryParams()
	}

	clone := *q
	clone.Order = slices.Clone(q.Order)
	clone.Select = slices.Clone(q.Select)
	clone.Filters = make(map[string][]string, len(q.Filters))

	for key, values := range q.Filters {
		clone.Filters[key] = slices.Clone(values)
	}

	if q.Include != nil {
		depth := *q.Include
		clone.Include = &depth
	}

	return &clone
}

// ToValues converts query parameters to URL values.
func (q *QueryParams) ToValues() url.Values {
	values := url.Values{}

	if q == nil {
		return values
	}

	if q.ContentType != "" {
		values.Set("content_type", q.ContentType)
	}

	if q.Skip > 0 {
		values.Set("skip", strconv.Itoa(q.Skip))
	}

	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}

	if len(q.Order) > 0 {
		values.Set("order", strings.Join(q.Order, ","))
	}

	if q.Include != nil {
		values.Set("include", strconv.Itoa(*q.Include))
	}

	if q.Locale != "" {
		values.Set("locale", q.Locale)
	}

	if len(q.Select) > 0 {
		values.Set("select", strings.Join(q.Select, ","))
	}

	for _, key := range slices.Sorted(maps.Keys(q.Filters)) {
		if len(q.Filters[key]) > 0 {
			values.Set(key, strings.Join(q.Filters[key], ","))
		}
	}

	return values
}
