package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/artpar/crudgate/ports"
	"github.com/google/uuid"
)

// Field is one typed column of a resource table.
type Field struct {
	Name     string
	Type     string // string, text, int, float, bool, time, json
	Required bool
	Unique   bool
}

// Table describes the backing table for one resource.
type Table struct {
	Name       string
	PrimaryKey string
	Fields     []Field
}

// Model serves CRUD operations for a single resource table.
type Model struct {
	db      *DB
	table   Table
	columns []string
	fields  map[string]Field
}

// NewModel binds a resource table to the database. The primary key column
// and created_at/updated_at timestamps are added implicitly.
func NewModel(db *DB, table Table) (*Model, error) {
	if table.Name == "" {
		return nil, fmt.Errorf("empty table name")
	}
	if !validIdentifier(table.Name) {
		return nil, fmt.Errorf("invalid table name %q", table.Name)
	}
	if table.PrimaryKey == "" {
		table.PrimaryKey = "id"
	}

	m := &Model{
		db:     db,
		table:  table,
		fields: make(map[string]Field),
	}

	addColumn := func(f Field) error {
		if !validIdentifier(f.Name) {
			return fmt.Errorf("invalid column name %q in table %s", f.Name, table.Name)
		}
		if _, dup := m.fields[f.Name]; dup {
			return fmt.Errorf("duplicate column %q in table %s", f.Name, table.Name)
		}
		m.fields[f.Name] = f
		m.columns = append(m.columns, f.Name)
		return nil
	}

	if err := addColumn(Field{Name: table.PrimaryKey, Type: "string"}); err != nil {
		return nil, err
	}
	for _, f := range table.Fields {
		if f.Name == table.PrimaryKey {
			continue
		}
		if err := addColumn(f); err != nil {
			return nil, err
		}
	}
	for _, ts := range []string{"created_at", "updated_at"} {
		if _, declared := m.fields[ts]; !declared {
			if err := addColumn(Field{Name: ts, Type: "time"}); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}

// EnsureTable creates the backing table if it does not exist.
func (m *Model) EnsureTable(ctx context.Context) error {
	var defs []string
	for _, name := range m.columns {
		f := m.fields[name]
		parts := []string{name, sqlTypeFor(f.Type)}
		if name == m.table.PrimaryKey {
			parts = append(parts, "PRIMARY KEY")
		}
		if f.Required {
			parts = append(parts, "NOT NULL")
		}
		if f.Unique && name != m.table.PrimaryKey {
			parts = append(parts, "UNIQUE")
		}
		if name == "created_at" || name == "updated_at" {
			parts = append(parts, "DEFAULT CURRENT_TIMESTAMP")
		}
		defs = append(defs, strings.Join(parts, " "))
	}

	createSQL := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s\n)",
		m.table.Name,
		strings.Join(defs, ",\n  "),
	)
	if _, err := m.db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("create table %s: %w", m.table.Name, err)
	}
	return nil
}

// FindAndCount returns one page of records plus the total count of records
// matching the filters. Sort and filter fields are checked against the
// declared columns before they reach SQL.
func (m *Model) FindAndCount(ctx context.Context, q ports.Query) ([]ports.Record, int64, error) {
	whereClause, args, err := m.buildWhere(q.Filters)
	if err != nil {
		return nil, 0, err
	}

	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", m.table.Name, whereClause)
	var total int64
	if err := m.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", m.table.Name, err)
	}

	orderBy := q.SortField
	if orderBy == "" {
		orderBy = m.table.PrimaryKey
	}
	if _, ok := m.fields[orderBy]; !ok {
		return nil, 0, fmt.Errorf("unknown sort field %q", orderBy)
	}
	direction := "ASC"
	if q.SortDesc {
		direction = "DESC"
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 1
	}
	querySQL := fmt.Sprintf(
		"SELECT %s FROM %s%s ORDER BY %s %s LIMIT %d OFFSET %d",
		strings.Join(m.columns, ", "), m.table.Name, whereClause,
		orderBy, direction, limit, q.Offset,
	)

	rows, err := m.db.QueryContext(ctx, querySQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", m.table.Name, err)
	}
	defer rows.Close()

	records := []ports.Record{}
	for rows.Next() {
		rec, err := m.scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// FindByID retrieves a record by primary key.
func (m *Model) FindByID(ctx context.Context, id string) (ports.Record, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = ?",
		strings.Join(m.columns, ", "), m.table.Name, m.table.PrimaryKey,
	)

	row := m.db.QueryRowContext(ctx, query, id)
	rec, err := m.scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", m.table.Name, err)
	}
	return rec, nil
}

// Create inserts a new record and returns it as stored, including the
// generated primary key and timestamp defaults.
func (m *Model) Create(ctx context.Context, rec ports.Record) (ports.Record, error) {
	id, _ := rec[m.table.PrimaryKey].(string)
	if id == "" {
		id = uuid.New().String()
	}

	columns := []string{m.table.PrimaryKey}
	placeholders := []string{"?"}
	values := []any{id}

	for _, name := range m.columns {
		if name == m.table.PrimaryKey || name == "created_at" || name == "updated_at" {
			continue // DB fills these
		}
		val, exists := rec[name]
		if !exists {
			continue
		}
		columns = append(columns, name)
		placeholders = append(placeholders, "?")
		values = append(values, convertValue(val, m.fields[name]))
	}

	insertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		m.table.Name,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)
	if _, err := m.db.ExecContext(ctx, insertSQL, values...); err != nil {
		return nil, fmt.Errorf("insert %s: %w", m.table.Name, err)
	}

	return m.FindByID(ctx, id)
}

// UpdateByID applies changes to an existing record. Unknown fields and the
// primary key are skipped; updated_at is always touched.
func (m *Model) UpdateByID(ctx context.Context, id string, changes ports.Record) (ports.UpdateResult, error) {
	var sets []string
	var values []any

	for _, name := range m.columns {
		if name == m.table.PrimaryKey || name == "created_at" || name == "updated_at" {
			continue
		}
		val, exists := changes[name]
		if !exists {
			continue
		}
		sets = append(sets, name+" = ?")
		values = append(values, convertValue(val, m.fields[name]))
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	values = append(values, id)

	updateSQL := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = ?",
		m.table.Name,
		strings.Join(sets, ", "),
		m.table.PrimaryKey,
	)
	result, err := m.db.ExecContext(ctx, updateSQL, values...)
	if err != nil {
		return ports.UpdateResult{}, fmt.Errorf("update %s: %w", m.table.Name, err)
	}

	affected, _ := result.RowsAffected()
	return ports.UpdateResult{RowsAffected: affected}, nil
}

// DeleteByID removes a record. Deleting an absent id is not an error.
func (m *Model) DeleteByID(ctx context.Context, id string) error {
	deleteSQL := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", m.table.Name, m.table.PrimaryKey)
	if _, err := m.db.ExecContext(ctx, deleteSQL, id); err != nil {
		return fmt.Errorf("delete %s: %w", m.table.Name, err)
	}
	return nil
}

// buildWhere renders an equality WHERE clause from the filters, validating
// every field name against the declared columns.
func (m *Model) buildWhere(filters map[string]any) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}

	conditions := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	for _, name := range m.columns {
		val, ok := filters[name]
		if !ok {
			continue
		}
		// A JSON null filter matches records without a value. "= NULL"
		// would match nothing.
		if val == nil {
			conditions = append(conditions, name+" IS NULL")
			continue
		}
		conditions = append(conditions, name+" = ?")
		args = append(args, convertValue(val, m.fields[name]))
	}
	if len(conditions) != len(filters) {
		for name := range filters {
			if _, ok := m.fields[name]; !ok {
				return "", nil, fmt.Errorf("unknown filter field %q", name)
			}
		}
	}

	return " WHERE " + strings.Join(conditions, " AND "), args, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (m *Model) scanRecord(row rowScanner) (ports.Record, error) {
	values := make([]any, len(m.columns))
	dest := make([]any, len(m.columns))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	rec := make(ports.Record, len(m.columns))
	for i, name := range m.columns {
		rec[name] = convertFromDB(values[i], m.fields[name])
	}
	return rec, nil
}

// validIdentifier reports whether s is safe to interpolate into SQL as a
// table or column name.
func validIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// sqlTypeFor maps a declared field type to its SQLite column type.
func sqlTypeFor(fieldType string) string {
	switch fieldType {
	case "int":
		return "INTEGER"
	case "float":
		return "REAL"
	case "bool":
		return "INTEGER"
	case "time":
		return "DATETIME"
	default: // string, text, json
		return "TEXT"
	}
}

// convertValue converts a Go value to a database value.
func convertValue(val any, f Field) any {
	if val == nil {
		return nil
	}

	switch f.Type {
	case "bool":
		switch v := val.(type) {
		case bool:
			if v {
				return 1
			}
			return 0
		case string:
			if v == "true" || v == "1" {
				return 1
			}
			return 0
		default:
			return 0
		}
	case "int":
		if f, ok := val.(float64); ok {
			return int64(f)
		}
		return val
	case "json":
		data, err := json.Marshal(val)
		if err != nil {
			return nil
		}
		return string(data)
	default:
		return val
	}
}

// convertFromDB converts a database value to a Go value.
func convertFromDB(val any, f Field) any {
	if val == nil {
		return nil
	}

	switch f.Type {
	case "bool":
		switch v := val.(type) {
		case int64:
			return v != 0
		case int:
			return v != 0
		default:
			return false
		}
	case "json":
		var s string
		switch v := val.(type) {
		case string:
			s = v
		case []byte:
			s = string(v)
		default:
			return val
		}
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return s
		}
		return decoded
	default:
		if b, ok := val.([]byte); ok {
			return string(b)
		}
		return val
	}
}

// Ensure interface compliance.
var _ ports.Model = (*Model)(nil)
