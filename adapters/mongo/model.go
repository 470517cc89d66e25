package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/artpar/crudgate/ports"
)

// Model serves CRUD operations for a single resource collection.
type Model struct {
	coll       *mongo.Collection
	primaryKey string
}

// NewModel binds a resource collection to the database. The primary key
// defaults to "id" and is stored as the document _id.
func NewModel(db *DB, collection, primaryKey string) (*Model, error) {
	if collection == "" {
		return nil, fmt.Errorf("empty collection name")
	}
	if primaryKey == "" {
		primaryKey = "id"
	}
	return &Model{coll: db.db.Collection(collection), primaryKey: primaryKey}, nil
}

// EnsureIndexes creates unique indexes for the named fields. The primary
// key needs none; _id is always unique.
func (m *Model) EnsureIndexes(ctx context.Context, uniqueFields []string) error {
	var indexes []mongo.IndexModel
	for _, field := range uniqueFields {
		if field == m.primaryKey {
			continue
		}
		indexes = append(indexes, mongo.IndexModel{
			Keys:    bson.D{{Key: field, Value: 1}},
			Options: options.Index().SetUnique(true),
		})
	}
	if len(indexes) == 0 {
		return nil
	}
	if _, err := m.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create indexes on %s: %w", m.coll.Name(), err)
	}
	return nil
}

// FindAndCount returns one page of records plus the total count of records
// matching the filters.
func (m *Model) FindAndCount(ctx context.Context, q ports.Query) ([]ports.Record, int64, error) {
	filter := m.toFilter(q.Filters)

	total, err := m.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", m.coll.Name(), err)
	}

	sortField := q.SortField
	if sortField == "" || sortField == m.primaryKey {
		sortField = "_id"
	}
	direction := 1
	if q.SortDesc {
		direction = -1
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: sortField, Value: direction}}).
		SetSkip(int64(q.Offset)).
		SetLimit(int64(limit))

	cursor, err := m.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", m.coll.Name(), err)
	}

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", m.coll.Name(), err)
	}

	records := make([]ports.Record, len(docs))
	for i, doc := range docs {
		records[i] = m.fromDocument(doc)
	}
	return records, total, nil
}

// FindByID retrieves a record by primary key.
func (m *Model) FindByID(ctx context.Context, id string) (ports.Record, error) {
	var doc bson.M
	err := m.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", m.coll.Name(), err)
	}
	return m.fromDocument(doc), nil
}

// Create inserts a new record and returns it as stored. A missing primary
// key is filled with a generated UUID; created_at and updated_at are set
// on the way in.
func (m *Model) Create(ctx context.Context, rec ports.Record) (ports.Record, error) {
	id, _ := rec[m.primaryKey].(string)
	if id == "" {
		id = uuid.New().String()
	}

	now := time.Now().UTC()
	doc := bson.M{"_id": id, "created_at": now, "updated_at": now}
	for key, val := range rec {
		if key == m.primaryKey || key == "_id" || key == "created_at" || key == "updated_at" {
			continue
		}
		doc[key] = val
	}

	if _, err := m.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("record %q already exists", id)
		}
		return nil, fmt.Errorf("insert %s: %w", m.coll.Name(), err)
	}

	return m.FindByID(ctx, id)
}

// UpdateByID applies changes to an existing record. The primary key is not
// writable; updated_at is always touched. The affected count reports how
// many documents the id matched.
func (m *Model) UpdateByID(ctx context.Context, id string, changes ports.Record) (ports.UpdateResult, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	for key, val := range changes {
		if key == m.primaryKey || key == "_id" || key == "created_at" || key == "updated_at" {
			continue
		}
		set[key] = val
	}

	res, err := m.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return ports.UpdateResult{}, fmt.Errorf("update %s: %w", m.coll.Name(), err)
	}
	return ports.UpdateResult{RowsAffected: res.MatchedCount}, nil
}

// DeleteByID removes a record. Deleting an absent id is not an error.
func (m *Model) DeleteByID(ctx context.Context, id string) error {
	if _, err := m.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete %s: %w", m.coll.Name(), err)
	}
	return nil
}

// toFilter renders the equality filters as a Mongo query document,
// translating the primary key to _id.
func (m *Model) toFilter(filters map[string]any) bson.M {
	filter := bson.M{}
	for key, val := range filters {
		if key == m.primaryKey {
			key = "_id"
		}
		filter[key] = val
	}
	return filter
}

// fromDocument translates a stored document back into a record: _id
// becomes the primary key and BSON datetimes become time.Time.
func (m *Model) fromDocument(doc bson.M) ports.Record {
	rec := make(ports.Record, len(doc))
	for key, val := range doc {
		if key == "_id" {
			key = m.primaryKey
		}
		if dt, ok := val.(primitive.DateTime); ok {
			val = dt.Time().UTC()
		}
		rec[key] = val
	}
	return rec
}

// Ensure interface compliance.
var _ ports.Model = (*Model)(nil)
