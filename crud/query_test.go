package crud

import (
	"net/url"
	"strings"
	"testing"
)

func TestParseListQuery_Defaults(t *testing.T) {
	q, err := parseListQuery(url.Values{})
	if err != nil {
		t.Fatalf("parseListQuery: %v", err)
	}
	if q.Offset != 0 {
		t.Errorf("offset = %d, want 0", q.Offset)
	}
	if q.Limit != 101 {
		t.Errorf("limit = %d, want 101", q.Limit)
	}
	if q.SortField != "id" || q.SortDesc {
		t.Errorf("sort = %q desc=%v, want id ascending", q.SortField, q.SortDesc)
	}
	if q.Filters != nil {
		t.Errorf("filters = %v, want none", q.Filters)
	}
}

func TestParseListQuery_Range(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantOffset int
		wantLimit  int
		wantErr    string
	}{
		{name: "first page", raw: "[0,24]", wantOffset: 0, wantLimit: 25},
		{name: "inner window", raw: "[10,14]", wantOffset: 10, wantLimit: 5},
		{name: "single element window", raw: "[7,7]", wantOffset: 7, wantLimit: 1},
		{name: "not json", raw: "ten to twenty", wantErr: "parse range"},
		{name: "wrong shape", raw: `{"from":0}`, wantErr: "parse range"},
		{name: "too few elements", raw: "[5]", wantErr: "expected [from, to]"},
		{name: "too many elements", raw: "[1,2,3]", wantErr: "expected [from, to]"},
		{name: "negative lower bound", raw: "[-5,10]", wantErr: "negative lower bound"},
		{name: "inverted window", raw: "[10,5]", wantErr: "below lower bound"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := url.Values{}
			values.Set("range", tt.raw)

			q, err := parseListQuery(values)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error = %q, want to contain %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseListQuery: %v", err)
			}
			if q.Offset != tt.wantOffset {
				t.Errorf("offset = %d, want %d", q.Offset, tt.wantOffset)
			}
			if q.Limit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", q.Limit, tt.wantLimit)
			}
		})
	}
}

func TestParseListQuery_Sort(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantField string
		wantDesc  bool
		wantErr   string
	}{
		{name: "ascending", raw: `["title","ASC"]`, wantField: "title"},
		{name: "descending", raw: `["title","DESC"]`, wantField: "title", wantDesc: true},
		{name: "lowercase desc", raw: `["title","desc"]`, wantField: "title", wantDesc: true},
		{name: "unknown direction is ascending", raw: `["title","sideways"]`, wantField: "title"},
		{name: "not json", raw: "title", wantErr: "parse sort"},
		{name: "wrong length", raw: `["title"]`, wantErr: "expected [field, direction]"},
		{name: "empty field", raw: `["","ASC"]`, wantErr: "empty field"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := url.Values{}
			values.Set("sort", tt.raw)

			q, err := parseListQuery(values)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error = %q, want to contain %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseListQuery: %v", err)
			}
			if q.SortField != tt.wantField {
				t.Errorf("sort field = %q, want %q", q.SortField, tt.wantField)
			}
			if q.SortDesc != tt.wantDesc {
				t.Errorf("sort desc = %v, want %v", q.SortDesc, tt.wantDesc)
			}
		})
	}
}

func TestParseListQuery_Filter(t *testing.T) {
	values := url.Values{}
	values.Set("filter", `{"status":"published","views":42}`)

	q, err := parseListQuery(values)
	if err != nil {
		t.Fatalf("parseListQuery: %v", err)
	}
	if q.Filters["status"] != "published" {
		t.Errorf("status filter = %v, want published", q.Filters["status"])
	}
	if q.Filters["views"] != float64(42) {
		t.Errorf("views filter = %v, want 42", q.Filters["views"])
	}
}

func TestParseListQuery_FilterErrors(t *testing.T) {
	for _, raw := range []string{"not-json", `["a","b"]`, `"status"`} {
		values := url.Values{}
		values.Set("filter", raw)

		if _, err := parseListQuery(values); err == nil {
			t.Errorf("filter %q: expected parse error", raw)
		}
	}
}

func TestParseListQuery_EmptyFilterObject(t *testing.T) {
	values := url.Values{}
	values.Set("filter", "{}")

	q, err := parseListQuery(values)
	if err != nil {
		t.Fatalf("parseListQuery: %v", err)
	}
	if q.Filters != nil {
		t.Errorf("filters = %v, want none for empty object", q.Filters)
	}
}
