// =============================================================================
// CSV Document Loader - MongoDB Store
// =============================================================================

package store

import (
	"context"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/ginjaninja78/csvload/internal/config"
	"github.com/ginjaninja78/csvload/internal/types"
)

// MongoStore is a Store backed by a MongoDB database.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to MongoDB and verifies the connection with a ping.
//
// PARAMETERS:
//   - ctx: Bounds the connection attempt together with cfg.ConnectTimeout.
//   - cfg: URI, database name and connect timeout.
//
// RETURNS:
//   - The connected store. The caller must Close it.
//   - An error if the server cannot be reached.
func Open(ctx context.Context, cfg config.StoreConfig) (*MongoStore, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout).SetServerSelectionTimeout(cfg.ConnectTimeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "connect to mongodb")
	}

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrapf(err, "ping %s", cfg.URI)
	}

	return &MongoStore{client: client, db: client.Database(cfg.Database)}, nil
}

// Collection returns a handle on a collection of the configured database.
func (s *MongoStore) Collection(name string) Collection {
	return &mongoCollection{coll: s.db.Collection(name)}
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return errors.Wrap(err, "disconnect from mongodb")
	}
	return nil
}

// =============================================================================
// COLLECTION
// =============================================================================

type mongoCollection struct {
	coll *mongo.Collection
}

func (c *mongoCollection) Name() string {
	return c.coll.Name()
}

func (c *mongoCollection) Count(ctx context.Context) (int64, error) {
	n, err := c.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, errors.Wrapf(err, "count %s", c.Name())
	}
	return n, nil
}

func (c *mongoCollection) InsertMany(ctx context.Context, docs []bson.D) (*BulkResult, error) {
	if len(docs) == 0 {
		return &BulkResult{}, nil
	}

	batch := make([]interface{}, len(docs))
	for i, doc := range docs {
		batch[i] = doc
	}

	_, err := c.coll.InsertMany(ctx, batch, options.InsertMany().SetOrdered(false))
	if err == nil {
		return &BulkResult{Inserted: int64(len(docs))}, nil
	}

	failures, ok := writeFailures(err)
	if !ok {
		return nil, errors.Wrapf(err, "insert into %s", c.Name())
	}
	return &BulkResult{
		Inserted: int64(len(docs) - len(failures)),
		Failures: failures,
	}, nil
}

func (c *mongoCollection) ReplaceMany(ctx context.Context, idField string, docs []bson.D) (*BulkResult, error) {
	if len(docs) == 0 {
		return &BulkResult{}, nil
	}

	models := make([]mongo.WriteModel, len(docs))
	for i, doc := range docs {
		id, ok := lookupID(doc, idField)
		if !ok {
			models[i] = mongo.NewInsertOneModel().SetDocument(doc)
			continue
		}
		models[i] = mongo.NewReplaceOneModel().
			SetFilter(bson.D{{Key: idField, Value: id}}).
			SetReplacement(doc).
			SetUpsert(true)
	}

	res, err := c.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	out := &BulkResult{}
	if res != nil {
		out.Inserted = res.InsertedCount
		out.Upserted = res.UpsertedCount
		out.Matched = res.MatchedCount
		out.Modified = res.ModifiedCount
	}
	if err == nil {
		return out, nil
	}

	failures, ok := writeFailures(err)
	if !ok {
		return nil, errors.Wrapf(err, "bulk write to %s", c.Name())
	}
	out.Failures = failures
	return out, nil
}

func (c *mongoCollection) Exists(ctx context.Context, filters ...bson.D) (bool, error) {
	if len(filters) == 0 {
		return false, nil
	}

	alternatives := make(bson.A, len(filters))
	for i, f := range filters {
		alternatives[i] = f
	}

	n, err := c.coll.CountDocuments(ctx, bson.D{{Key: "$or", Value: alternatives}}, options.Count().SetLimit(1))
	if err != nil {
		return false, errors.Wrapf(err, "query %s", c.Name())
	}
	return n > 0, nil
}

func (c *mongoCollection) DeleteAll(ctx context.Context) (int64, error) {
	res, err := c.coll.DeleteMany(ctx, bson.D{})
	if err != nil {
		return 0, errors.Wrapf(err, "delete from %s", c.Name())
	}
	return res.DeletedCount, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// writeFailures translates the per-document errors of a bulk exception.
// It returns false for errors that are not per-document, or that carry a
// write concern error, since those mean the batch as a whole failed.
func writeFailures(err error) ([]WriteFailure, bool) {
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || bwe.WriteConcernError != nil || len(bwe.WriteErrors) == 0 {
		return nil, false
	}

	failures := make([]WriteFailure, 0, len(bwe.WriteErrors))
	for _, we := range bwe.WriteErrors {
		failures = append(failures, WriteFailure{
			Index:     we.Index,
			Duplicate: IsDuplicateKeyCode(we.Code),
			Message:   we.Message,
		})
	}
	return failures, true
}

// lookupID returns the non-empty value stored at idField.
func lookupID(doc bson.D, idField string) (interface{}, bool) {
	value, ok := types.Lookup(doc, idField)
	if !ok || value == nil || value == "" {
		return nil, false
	}
	return value, true
}
