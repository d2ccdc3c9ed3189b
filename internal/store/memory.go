// =============================================================================
// CSV Document Loader - In-Memory Store
// =============================================================================
//
// MemoryStore keeps documents in process memory. It backs the test suite and
// `run --dry-run`. Its semantics follow MongoDB where the loader can tell
// the difference:
//   - every document gets an _id (an ObjectID when none is given)
//   - a second document with the same _id is a duplicate key failure
//   - a replacement that changes nothing counts as matched, not modified
//
// =============================================================================

package store

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ginjaninja78/csvload/internal/types"
)

// MemoryStore is a Store that keeps documents in memory.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]*memoryCollection
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

// Collection returns the named collection, creating it on first use.
func (s *MemoryStore) Collection(name string) Collection {
	return s.collection(name)
}

func (s *MemoryStore) collection(name string) *memoryCollection {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		c = &memoryCollection{name: name, index: make(map[string]int)}
		s.collections[name] = c
	}
	return c
}

// Documents returns copies of the documents of a collection in insertion
// order.
func (s *MemoryStore) Documents(name string) []bson.D {
	c := s.collection(name)
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]bson.D, len(c.docs))
	for i, doc := range c.docs {
		out[i] = types.Clone(doc)
	}
	return out
}

// Close is a no-op.
func (s *MemoryStore) Close(context.Context) error {
	return nil
}

// =============================================================================
// COLLECTION
// =============================================================================

type memoryCollection struct {
	mu   sync.Mutex
	name string
	docs []bson.D

	// index maps the key of each _id to its position in docs.
	index map[string]int
}

func (c *memoryCollection) Name() string {
	return c.name
}

func (c *memoryCollection) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(len(c.docs)), nil
}

func (c *memoryCollection) InsertMany(ctx context.Context, docs []bson.D) (*BulkResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	res := &BulkResult{}
	for i, doc := range docs {
		if failure := c.insert(doc); failure != "" {
			res.Failures = append(res.Failures, WriteFailure{Index: i, Duplicate: true, Message: failure})
			continue
		}
		res.Inserted++
	}
	return res, nil
}

func (c *memoryCollection) ReplaceMany(ctx context.Context, idField string, docs []bson.D) (*BulkResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	res := &BulkResult{}
	for i, doc := range docs {
		id, ok := lookupID(doc, idField)
		if !ok {
			if failure := c.insert(doc); failure != "" {
				res.Failures = append(res.Failures, WriteFailure{Index: i, Duplicate: true, Message: failure})
				continue
			}
			res.Inserted++
			continue
		}

		pos := c.find(idField, id)
		if pos < 0 {
			if failure := c.insert(doc); failure != "" {
				res.Failures = append(res.Failures, WriteFailure{Index: i, Duplicate: true, Message: failure})
				continue
			}
			res.Upserted++
			continue
		}

		res.Matched++
		replacement := types.Clone(doc)
		if _, hasID := types.Lookup(replacement, "_id"); !hasID {
			existingID, _ := types.Lookup(c.docs[pos], "_id")
			replacement = append(bson.D{{Key: "_id", Value: existingID}}, replacement...)
		}
		if sameDocument(c.docs[pos], replacement) {
			continue
		}
		c.docs[pos] = replacement
		res.Modified++
	}
	return res, nil
}

func (c *memoryCollection) Exists(ctx context.Context, filters ...bson.D) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, doc := range c.docs {
		for _, filter := range filters {
			if matches(doc, filter) {
				return true, nil
			}
		}
	}
	return false, nil
}

func (c *memoryCollection) DeleteAll(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	n := int64(len(c.docs))
	c.docs = nil
	c.index = make(map[string]int)
	return n, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// insert stores a copy of doc, giving it an ObjectID when it has no _id.
// It returns a failure message when the _id is already taken.
func (c *memoryCollection) insert(doc bson.D) string {
	stored := types.Clone(doc)
	id, ok := types.Lookup(stored, "_id")
	if !ok || id == nil {
		id = primitive.NewObjectID()
		stored = append(bson.D{{Key: "_id", Value: id}}, stored...)
	}

	key := idKey(id)
	if _, taken := c.index[key]; taken {
		return fmt.Sprintf("E11000 duplicate key error collection: %s index: _id_ dup key: { _id: %v }", c.name, id)
	}

	c.index[key] = len(c.docs)
	c.docs = append(c.docs, stored)
	return ""
}

// find returns the position of the first document whose idField holds id,
// or -1.
func (c *memoryCollection) find(idField string, id interface{}) int {
	if idField == "_id" {
		if pos, ok := c.index[idKey(id)]; ok {
			return pos
		}
		return -1
	}
	for i, doc := range c.docs {
		if v, ok := types.Lookup(doc, idField); ok && reflect.DeepEqual(v, id) {
			return i
		}
	}
	return -1
}

func idKey(id interface{}) string {
	return fmt.Sprintf("%T:%v", id, id)
}

func matches(doc bson.D, filter bson.D) bool {
	if len(filter) == 0 {
		return false
	}
	for _, cond := range filter {
		v, ok := types.Lookup(doc, cond.Key)
		if !ok || !reflect.DeepEqual(v, cond.Value) {
			return false
		}
	}
	return true
}

func sameDocument(a, b bson.D) bool {
	ab, errA := bson.Marshal(a)
	bb, errB := bson.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}
