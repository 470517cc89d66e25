package sqlite_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/artpar/crudgate/adapters/sqlite"
	"github.com/artpar/crudgate/ports"
)

func setupTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func postsTable() sqlite.Table {
	return sqlite.Table{
		Name: "posts",
		Fields: []sqlite.Field{
			{Name: "title", Type: "string", Required: true},
			{Name: "rank", Type: "int"},
			{Name: "published", Type: "bool"},
			{Name: "tags", Type: "json"},
		},
	}
}

func setupModel(t *testing.T) *sqlite.Model {
	t.Helper()
	model, err := sqlite.NewModel(setupTestDB(t), postsTable())
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	if err := model.EnsureTable(context.Background()); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	return model
}

func seedPosts(t *testing.T, model *sqlite.Model, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		_, err := model.Create(ctx, ports.Record{
			"id":        fmt.Sprintf("post-%02d", i),
			"title":     fmt.Sprintf("Post %d", i),
			"rank":      i,
			"published": i%2 == 0,
		})
		if err != nil {
			t.Fatalf("seed record %d: %v", i, err)
		}
	}
}

func TestNewModel_InvalidNames(t *testing.T) {
	db := setupTestDB(t)

	if _, err := sqlite.NewModel(db, sqlite.Table{Name: "posts; DROP TABLE users"}); err == nil {
		t.Error("expected error for invalid table name")
	}
	if _, err := sqlite.NewModel(db, sqlite.Table{
		Name:   "posts",
		Fields: []sqlite.Field{{Name: "bad column", Type: "string"}},
	}); err == nil {
		t.Error("expected error for invalid column name")
	}
	if _, err := sqlite.NewModel(db, sqlite.Table{
		Name: "posts",
		Fields: []sqlite.Field{
			{Name: "title", Type: "string"},
			{Name: "title", Type: "text"},
		},
	}); err == nil {
		t.Error("expected error for duplicate column")
	}
}

func TestCreateAndFindByID(t *testing.T) {
	model := setupModel(t)
	ctx := context.Background()

	created, err := model.Create(ctx, ports.Record{
		"title":     "Hello",
		"rank":      float64(3), // JSON numbers decode as float64
		"published": true,
		"tags":      []any{"go", "sql"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	id, _ := created["id"].(string)
	if id == "" {
		t.Fatal("expected generated id")
	}
	if created["created_at"] == nil || created["updated_at"] == nil {
		t.Error("expected timestamp defaults to be populated")
	}

	got, err := model.FindByID(ctx, id)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got["title"] != "Hello" {
		t.Errorf("title = %v, want Hello", got["title"])
	}
	if got["rank"] != int64(3) {
		t.Errorf("rank = %v (%T), want int64(3)", got["rank"], got["rank"])
	}
	if got["published"] != true {
		t.Errorf("published = %v, want true", got["published"])
	}
	tags, ok := got["tags"].([]any)
	if !ok || len(tags) != 2 || tags[0] != "go" {
		t.Errorf("tags = %v, want [go sql]", got["tags"])
	}
}

func TestFindByID_NotFound(t *testing.T) {
	model := setupModel(t)

	_, err := model.FindByID(context.Background(), "missing")
	if !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCreate_RequiredField(t *testing.T) {
	model := setupModel(t)

	_, err := model.Create(context.Background(), ports.Record{"rank": 1})
	if err == nil {
		t.Error("expected NOT NULL violation for missing title")
	}
}

func TestFindAndCount_Pagination(t *testing.T) {
	model := setupModel(t)
	seedPosts(t, model, 10)

	records, total, err := model.FindAndCount(context.Background(), ports.Query{
		Offset:    3,
		Limit:     4,
		SortField: "rank",
	})
	if err != nil {
		t.Fatalf("FindAndCount: %v", err)
	}
	if total != 10 {
		t.Errorf("total = %d, want 10", total)
	}
	if len(records) != 4 {
		t.Fatalf("got %d records, want 4", len(records))
	}
	if records[0]["id"] != "post-03" {
		t.Errorf("first id = %v, want post-03", records[0]["id"])
	}
	if records[3]["id"] != "post-06" {
		t.Errorf("last id = %v, want post-06", records[3]["id"])
	}
}

func TestFindAndCount_SortDescending(t *testing.T) {
	model := setupModel(t)
	seedPosts(t, model, 5)

	records, _, err := model.FindAndCount(context.Background(), ports.Query{
		Limit:     5,
		SortField: "rank",
		SortDesc:  true,
	})
	if err != nil {
		t.Fatalf("FindAndCount: %v", err)
	}
	if records[0]["id"] != "post-04" {
		t.Errorf("first id = %v, want post-04", records[0]["id"])
	}
}

func TestFindAndCount_Filter(t *testing.T) {
	model := setupModel(t)
	seedPosts(t, model, 6)

	records, total, err := model.FindAndCount(context.Background(), ports.Query{
		Limit:     10,
		SortField: "rank",
		Filters:   map[string]any{"published": true},
	})
	if err != nil {
		t.Fatalf("FindAndCount: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	for _, rec := range records {
		if rec["published"] != true {
			t.Errorf("record %v not published", rec["id"])
		}
	}
}

// A JSON null filter value selects records whose field was never set.
func TestFindAndCount_NullFilter(t *testing.T) {
	model := setupModel(t)
	ctx := context.Background()
	seedPosts(t, model, 3)
	for i := 0; i < 2; i++ {
		if _, err := model.Create(ctx, ports.Record{"title": fmt.Sprintf("Draft %d", i)}); err != nil {
			t.Fatalf("create draft %d: %v", i, err)
		}
	}

	records, total, err := model.FindAndCount(ctx, ports.Query{
		Limit:   10,
		Filters: map[string]any{"rank": nil},
	})
	if err != nil {
		t.Fatalf("FindAndCount: %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
	for _, rec := range records {
		if rec["rank"] != nil {
			t.Errorf("record %v has rank %v, want unset", rec["id"], rec["rank"])
		}
	}
}

func TestFindAndCount_UnknownSortField(t *testing.T) {
	model := setupModel(t)

	_, _, err := model.FindAndCount(context.Background(), ports.Query{
		Limit:     10,
		SortField: "nope; DROP TABLE posts",
	})
	if err == nil {
		t.Error("expected error for unknown sort field")
	}
}

func TestFindAndCount_UnknownFilterField(t *testing.T) {
	model := setupModel(t)

	_, _, err := model.FindAndCount(context.Background(), ports.Query{
		Limit:   10,
		Filters: map[string]any{"nope": 1},
	})
	if err == nil {
		t.Error("expected error for unknown filter field")
	}
}

func TestUpdateByID(t *testing.T) {
	model := setupModel(t)
	ctx := context.Background()
	seedPosts(t, model, 2)

	result, err := model.UpdateByID(ctx, "post-00", ports.Record{
		"title": "Updated",
		"id":    "hijack", // primary key must not be writable
	})
	if err != nil {
		t.Fatalf("UpdateByID: %v", err)
	}
	if result.RowsAffected != 1 {
		t.Errorf("RowsAffected = %d, want 1", result.RowsAffected)
	}

	got, err := model.FindByID(ctx, "post-00")
	if err != nil {
		t.Fatalf("FindByID after update: %v", err)
	}
	if got["title"] != "Updated" {
		t.Errorf("title = %v, want Updated", got["title"])
	}
}

func TestUpdateByID_Missing(t *testing.T) {
	model := setupModel(t)

	result, err := model.UpdateByID(context.Background(), "missing", ports.Record{"title": "x"})
	if err != nil {
		t.Fatalf("UpdateByID: %v", err)
	}
	if result.RowsAffected != 0 {
		t.Errorf("RowsAffected = %d, want 0", result.RowsAffected)
	}
}

func TestDeleteByID(t *testing.T) {
	model := setupModel(t)
	ctx := context.Background()
	seedPosts(t, model, 1)

	if err := model.DeleteByID(ctx, "post-00"); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	if _, err := model.FindByID(ctx, "post-00"); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound after delete", err)
	}

	// Deleting an absent id succeeds.
	if err := model.DeleteByID(ctx, "post-00"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestEnsureTable_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	model, err := sqlite.NewModel(db, postsTable())
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}

	ctx := context.Background()
	if err := model.EnsureTable(ctx); err != nil {
		t.Fatalf("first EnsureTable: %v", err)
	}
	if err := model.EnsureTable(ctx); err != nil {
		t.Fatalf("second EnsureTable: %v", err)
	}
}
