package fetch

import (
	"net/url"
	"strconv"

	"github.com/sunerpy/indexproxy/models"
)

// Filter mirrors the origin's own listing filter codes, encoded as the
// outbound "f" query parameter. It is distinct from store.Filter, which is
// this repo's local retrieval filter.
type Filter int

const (
	FilterNone Filter = iota
	FilterNoRemake
	FilterTrusted
)

// ListQuery is the outbound request shape for Coordinator.List: the
// origin's own page/term/category/filter/sort/order knobs, encoded with
// keys p, q, c, f, s, o, omitting values that match the origin's
// documented defaults.
type ListQuery struct {
	Page     int
	Term     string
	Category models.Category
	Filter   Filter
	Sort     string
	Order    string
}

const (
	defaultSort  = "id"
	defaultOrder = "desc"
)

// Values encodes q into the origin's query-string form, omitting any field
// that matches the default (p=1, c=0_0, f=0, s=id, o=desc, q="").
func (q ListQuery) Values() url.Values {
	v := url.Values{}
	if q.Page > 1 {
		v.Set("p", strconv.Itoa(q.Page))
	}
	if q.Term != "" {
		v.Set("q", q.Term)
	}
	if q.Category != "" && q.Category != models.CategoryAll {
		v.Set("c", string(q.Category))
	}
	if q.Filter != FilterNone {
		v.Set("f", strconv.Itoa(int(q.Filter)))
	}
	if q.Sort != "" && q.Sort != defaultSort {
		v.Set("s", q.Sort)
	}
	if q.Order != "" && q.Order != defaultOrder {
		v.Set("o", q.Order)
	}
	return v
}
