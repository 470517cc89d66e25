package crud

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/artpar/crudgate/ports"
)

// Default pagination window when the range parameter is omitted.
const (
	defaultRangeFrom = 0
	defaultRangeTo   = 100
)

// defaultSortField orders listings when the sort parameter is omitted.
const defaultSortField = "id"

// parseListQuery translates the list query parameters into a storage query.
//
// Three parameters are recognized, all JSON-encoded:
//
//	range  - [from, to] inclusive window, default [0, 100]
//	sort   - [field, direction], default ["id", "ASC"]
//	filter - {field: value, ...} equality map, default empty
func parseListQuery(values url.Values) (ports.Query, error) {
	q := ports.Query{
		Offset:    defaultRangeFrom,
		Limit:     defaultRangeTo - defaultRangeFrom + 1,
		SortField: defaultSortField,
	}

	if raw := values.Get("range"); raw != "" {
		var bounds []int
		if err := json.Unmarshal([]byte(raw), &bounds); err != nil {
			return ports.Query{}, fmt.Errorf("parse range: %w", err)
		}
		if len(bounds) != 2 {
			return ports.Query{}, fmt.Errorf("parse range: expected [from, to], got %d elements", len(bounds))
		}
		from, to := bounds[0], bounds[1]
		if from < 0 {
			return ports.Query{}, fmt.Errorf("parse range: negative lower bound %d", from)
		}
		if to < from {
			return ports.Query{}, fmt.Errorf("parse range: upper bound %d below lower bound %d", to, from)
		}
		q.Offset = from
		q.Limit = to - from + 1
	}

	if raw := values.Get("sort"); raw != "" {
		var order []string
		if err := json.Unmarshal([]byte(raw), &order); err != nil {
			return ports.Query{}, fmt.Errorf("parse sort: %w", err)
		}
		if len(order) != 2 {
			return ports.Query{}, fmt.Errorf("parse sort: expected [field, direction], got %d elements", len(order))
		}
		if order[0] == "" {
			return ports.Query{}, fmt.Errorf("parse sort: empty field name")
		}
		q.SortField = order[0]
		q.SortDesc = strings.EqualFold(order[1], "DESC")
	}

	if raw := values.Get("filter"); raw != "" {
		var filters map[string]any
		if err := json.Unmarshal([]byte(raw), &filters); err != nil {
			return ports.Query{}, fmt.Errorf("parse filter: %w", err)
		}
		if len(filters) > 0 {
			q.Filters = filters
		}
	}

	return q, nil
}
