package memory_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/artpar/crudgate/adapters/memory"
	"github.com/artpar/crudgate/ports"
)

func seedModel(t *testing.T, n int) *memory.Model {
	t.Helper()
	m := memory.NewModel("id")
	for i := 0; i < n; i++ {
		_, err := m.Create(context.Background(), ports.Record{
			"id":     fmt.Sprintf("rec-%02d", i),
			"rank":   i,
			"status": map[bool]string{true: "even", false: "odd"}[i%2 == 0],
		})
		if err != nil {
			t.Fatalf("seed create: %v", err)
		}
	}
	return m
}

func TestModel_CreateGeneratesID(t *testing.T) {
	m := memory.NewModel("id")

	rec, err := m.Create(context.Background(), ports.Record{"title": "hello"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id, _ := rec["id"].(string)
	if id == "" {
		t.Fatal("expected generated id")
	}

	found, err := m.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if found["title"] != "hello" {
		t.Errorf("title = %v, want hello", found["title"])
	}
}

func TestModel_CreateDuplicateID(t *testing.T) {
	m := memory.NewModel("id")

	if _, err := m.Create(context.Background(), ports.Record{"id": "x"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := m.Create(context.Background(), ports.Record{"id": "x"}); err == nil {
		t.Error("expected error for duplicate id")
	}
}

func TestModel_FindByID_Missing(t *testing.T) {
	m := memory.NewModel("id")

	_, err := m.FindByID(context.Background(), "nope")
	if !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestModel_FindAndCount_Window(t *testing.T) {
	m := seedModel(t, 10)

	recs, total, err := m.FindAndCount(context.Background(), ports.Query{
		Offset:    3,
		Limit:     4,
		SortField: "id",
	})
	if err != nil {
		t.Fatalf("FindAndCount: %v", err)
	}
	if total != 10 {
		t.Errorf("total = %d, want 10", total)
	}
	if len(recs) != 4 {
		t.Fatalf("page size = %d, want 4", len(recs))
	}
	if recs[0]["id"] != "rec-03" || recs[3]["id"] != "rec-06" {
		t.Errorf("page = %v..%v, want rec-03..rec-06", recs[0]["id"], recs[3]["id"])
	}
}

func TestModel_FindAndCount_OffsetPastEnd(t *testing.T) {
	m := seedModel(t, 3)

	recs, total, err := m.FindAndCount(context.Background(), ports.Query{Offset: 50, Limit: 10})
	if err != nil {
		t.Fatalf("FindAndCount: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(recs) != 0 {
		t.Errorf("page size = %d, want 0", len(recs))
	}
}

func TestModel_FindAndCount_SortDescending(t *testing.T) {
	m := seedModel(t, 5)

	recs, _, err := m.FindAndCount(context.Background(), ports.Query{
		Limit:     5,
		SortField: "rank",
		SortDesc:  true,
	})
	if err != nil {
		t.Fatalf("FindAndCount: %v", err)
	}
	if recs[0]["id"] != "rec-04" {
		t.Errorf("first = %v, want rec-04", recs[0]["id"])
	}
	if recs[4]["id"] != "rec-00" {
		t.Errorf("last = %v, want rec-00", recs[4]["id"])
	}
}

func TestModel_FindAndCount_FilterCountsAllMatches(t *testing.T) {
	m := seedModel(t, 10)

	recs, total, err := m.FindAndCount(context.Background(), ports.Query{
		Limit:     2,
		SortField: "id",
		Filters:   map[string]any{"status": "even"},
	})
	if err != nil {
		t.Fatalf("FindAndCount: %v", err)
	}
	// Total reflects every match, not just the returned page.
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(recs) != 2 {
		t.Errorf("page size = %d, want 2", len(recs))
	}
	for _, rec := range recs {
		if rec["status"] != "even" {
			t.Errorf("record %v does not match filter", rec["id"])
		}
	}
}

func TestModel_FindAndCount_NumericFilterFromJSON(t *testing.T) {
	m := seedModel(t, 5)

	// JSON-decoded filters carry float64; stored ranks are ints.
	recs, total, err := m.FindAndCount(context.Background(), ports.Query{
		Limit:   10,
		Filters: map[string]any{"rank": float64(2)},
	})
	if err != nil {
		t.Fatalf("FindAndCount: %v", err)
	}
	if total != 1 || len(recs) != 1 {
		t.Fatalf("matches = %d/%d, want 1/1", len(recs), total)
	}
	if recs[0]["id"] != "rec-02" {
		t.Errorf("match = %v, want rec-02", recs[0]["id"])
	}
}

// A JSON null filter value selects records whose field was never set.
func TestModel_FindAndCount_NullFilter(t *testing.T) {
	m := seedModel(t, 3)
	for i := 0; i < 2; i++ {
		if _, err := m.Create(context.Background(), ports.Record{"title": fmt.Sprintf("Draft %d", i)}); err != nil {
			t.Fatalf("create draft %d: %v", i, err)
		}
	}

	recs, total, err := m.FindAndCount(context.Background(), ports.Query{
		Limit:   10,
		Filters: map[string]any{"rank": nil},
	})
	if err != nil {
		t.Fatalf("FindAndCount: %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
	for _, rec := range recs {
		if rec["rank"] != nil {
			t.Errorf("record %v has rank %v, want unset", rec["id"], rec["rank"])
		}
	}
}

func TestModel_UpdateByID(t *testing.T) {
	m := seedModel(t, 1)

	res, err := m.UpdateByID(context.Background(), "rec-00", ports.Record{"status": "archived", "id": "hijack"})
	if err != nil {
		t.Fatalf("UpdateByID: %v", err)
	}
	if res.RowsAffected != 1 {
		t.Errorf("rows affected = %d, want 1", res.RowsAffected)
	}

	rec, _ := m.FindByID(context.Background(), "rec-00")
	if rec["status"] != "archived" {
		t.Errorf("status = %v, want archived", rec["status"])
	}
	if rec["id"] != "rec-00" {
		t.Errorf("primary key changed to %v", rec["id"])
	}
}

func TestModel_UpdateByID_Missing(t *testing.T) {
	m := memory.NewModel("id")

	res, err := m.UpdateByID(context.Background(), "nope", ports.Record{"status": "x"})
	if err != nil {
		t.Fatalf("UpdateByID: %v", err)
	}
	if res.RowsAffected != 0 {
		t.Errorf("rows affected = %d, want 0", res.RowsAffected)
	}
}

func TestModel_DeleteByID(t *testing.T) {
	m := seedModel(t, 2)

	if err := m.DeleteByID(context.Background(), "rec-00"); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	if m.Len() != 1 {
		t.Errorf("len = %d, want 1", m.Len())
	}

	// Absent id is not an error.
	if err := m.DeleteByID(context.Background(), "rec-00"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestModel_ReadsReturnCopies(t *testing.T) {
	m := seedModel(t, 1)

	rec, _ := m.FindByID(context.Background(), "rec-00")
	rec["status"] = "mutated"

	again, _ := m.FindByID(context.Background(), "rec-00")
	if again["status"] == "mutated" {
		t.Error("store returned a shared map")
	}
}
