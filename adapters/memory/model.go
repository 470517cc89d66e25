// Package memory provides in-memory implementations for testing.
package memory

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/artpar/crudgate/ports"
	"github.com/google/uuid"
)

// Model is an in-memory implementation of ports.Model.
type Model struct {
	mu         sync.RWMutex
	primaryKey string
	records    map[string]ports.Record // by primary key
	order      []string                // insertion order of primary keys
}

// NewModel creates a new in-memory model keyed by primaryKey.
// An empty primaryKey defaults to "id".
func NewModel(primaryKey string) *Model {
	if primaryKey == "" {
		primaryKey = "id"
	}
	return &Model{
		primaryKey: primaryKey,
		records:    make(map[string]ports.Record),
	}
}

// FindAndCount returns one page of matching records plus the total match count.
func (m *Model) FindAndCount(ctx context.Context, q ports.Query) ([]ports.Record, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]ports.Record, 0, len(m.records))
	for _, id := range m.order {
		rec := m.records[id]
		if matchesFilters(rec, q.Filters) {
			matches = append(matches, cloneRecord(rec))
		}
	}
	total := int64(len(matches))

	if q.SortField != "" {
		sort.SliceStable(matches, func(i, j int) bool {
			cmp := compareValues(matches[i][q.SortField], matches[j][q.SortField])
			if q.SortDesc {
				return cmp > 0
			}
			return cmp < 0
		})
	}

	if q.Offset >= len(matches) {
		return []ports.Record{}, total, nil
	}
	end := len(matches)
	if q.Limit > 0 && q.Offset+q.Limit < end {
		end = q.Offset + q.Limit
	}
	return matches[q.Offset:end], total, nil
}

// FindByID retrieves a record by primary key.
func (m *Model) FindByID(ctx context.Context, id string) (ports.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return cloneRecord(rec), nil
}

// Create stores a new record, generating a primary key if absent.
func (m *Model) Create(ctx context.Context, rec ports.Record) (ports.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := cloneRecord(rec)
	id, _ := stored[m.primaryKey].(string)
	if id == "" {
		id = uuid.New().String()
		stored[m.primaryKey] = id
	}
	if _, exists := m.records[id]; exists {
		return nil, fmt.Errorf("record %q already exists", id)
	}

	m.records[id] = stored
	m.order = append(m.order, id)
	return cloneRecord(stored), nil
}

// UpdateByID merges changes into an existing record. The primary key field
// is never overwritten. Updating an absent id reports zero rows.
func (m *Model) UpdateByID(ctx context.Context, id string, changes ports.Record) (ports.UpdateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return ports.UpdateResult{}, nil
	}
	for k, v := range changes {
		if k == m.primaryKey {
			continue
		}
		rec[k] = v
	}
	return ports.UpdateResult{RowsAffected: 1}, nil
}

// DeleteByID removes a record. Deleting an absent id is not an error.
func (m *Model) DeleteByID(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return nil
	}
	delete(m.records, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of stored records (for testing).
func (m *Model) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Clear removes all records (for testing).
func (m *Model) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]ports.Record)
	m.order = nil
}

func cloneRecord(rec ports.Record) ports.Record {
	out := make(ports.Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

func matchesFilters(rec ports.Record, filters map[string]any) bool {
	for k, want := range filters {
		if !equalValues(rec[k], want) {
			return false
		}
	}
	return true
}

// equalValues compares two record values, treating all numeric types as
// equivalent so JSON-decoded filters match stored values.
func equalValues(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders two record values. Nil sorts first, numbers compare
// numerically, everything else falls back to string comparison.
func compareValues(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	if fa, aOK := toFloat(a); aOK {
		if fb, bOK := toFloat(b); bOK {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
	}

	sa, sb := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	default:
		return 0
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// Ensure interface compliance.
var _ ports.Model = (*Model)(nil)
