package loader

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/ginjaninja78/csvload/internal/store"
	"github.com/ginjaninja78/csvload/internal/types"
)

func rec(elems ...interface{}) types.Record {
	doc := types.Record{}
	for i := 0; i+1 < len(elems); i += 2 {
		types.Set(&doc, elems[i].(string), elems[i+1])
	}
	return doc
}

func seed(t *testing.T, coll store.Collection, docs ...types.Record) {
	t.Helper()
	res, err := coll.InsertMany(context.Background(), docs)
	require.NoError(t, err)
	require.Empty(t, res.Failures)
}

// failingCollection fails every operation as a whole.
type failingCollection struct {
	store.Collection
	err error
}

func (c *failingCollection) Name() string { return "broken" }
func (c *failingCollection) Count(context.Context) (int64, error) {
	return 0, c.err
}
func (c *failingCollection) InsertMany(context.Context, []bson.D) (*store.BulkResult, error) {
	return nil, c.err
}
func (c *failingCollection) ReplaceMany(context.Context, string, []bson.D) (*store.BulkResult, error) {
	return nil, c.err
}

func TestSelectStrategy(t *testing.T) {
	ctx := context.Background()

	empty := store.NewMemoryStore().Collection("empleados")
	populated := store.NewMemoryStore().Collection("empleados")
	seed(t, populated, rec("_id", "E0"))

	naturalKey := []string{"empleado_id", "periodo.mes"}

	tests := []struct {
		name       string
		coll       store.Collection
		sample     types.Record
		naturalKey []string
		want       Strategy
	}{
		{"empty collection", empty, rec("_id", "E1"), nil, Insert},
		{"empty collection with natural key", empty, rec("_id", "E1"), naturalKey, Insert},
		{"sample with id", populated, rec("_id", "E1"), nil, UpsertByID},
		{"sample with id and natural key", populated, rec("_id", "E1"), naturalKey, InsertIgnoreDuplicates},
		{"sample with null id", populated, rec("_id", nil, "nombre", "Ana"), nil, InsertIgnoreDuplicates},
		{"sample without id", populated, rec("nombre", "Ana"), nil, InsertIgnoreDuplicates},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectStrategy(ctx, tt.coll, tt.sample, "_id", tt.naturalKey)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectStrategyCountFailure(t *testing.T) {
	boom := errors.New("connection reset")
	_, err := SelectStrategy(context.Background(), &failingCollection{err: boom}, rec("_id", "x"), "_id", nil)

	var we *WriteError
	require.ErrorAs(t, err, &we)
	assert.ErrorIs(t, err, boom)
}

func TestConfigured(t *testing.T) {
	s, ok := Configured("upsert")
	assert.True(t, ok)
	assert.Equal(t, UpsertByID, s)

	s, ok = Configured("insert_ignore_duplicates")
	assert.True(t, ok)
	assert.Equal(t, InsertIgnoreDuplicates, s)

	_, ok = Configured("auto")
	assert.False(t, ok)
	_, ok = Configured("")
	assert.False(t, ok)

	assert.Equal(t, "upsert", UpsertByID.String())
}

func TestInsertIgnoreDuplicates(t *testing.T) {
	ctx := context.Background()
	coll := store.NewMemoryStore().Collection("empleados")
	seed(t, coll, rec("_id", "E2", "nombre", "Existente"))

	w := &Writer{IDField: "_id"}
	outcome, err := w.Write(ctx, coll, []types.Record{
		rec("_id", "E1", "nombre", "Ana"),
		rec("_id", "E2", "nombre", "Luis"),
		rec("_id", "E3", "nombre", "Eva"),
	}, InsertIgnoreDuplicates)
	require.NoError(t, err)

	assert.Equal(t, 2, outcome.Inserted)
	assert.Equal(t, 1, outcome.Duplicates)
	assert.Empty(t, outcome.Errors)
}

func TestInsertReportsDuplicatesAsErrors(t *testing.T) {
	ctx := context.Background()
	coll := store.NewMemoryStore().Collection("empleados")

	outcome, err := (&Writer{}).Write(ctx, coll, []types.Record{
		rec("_id", "E1"),
		rec("_id", "E1"),
		rec("_id", "E2"),
	}, Insert)
	require.NoError(t, err)

	assert.Equal(t, 2, outcome.Inserted)
	assert.Zero(t, outcome.Duplicates)
	require.Len(t, outcome.Errors, 1)
	assert.Contains(t, outcome.Errors[0], "record 2 (_id E1)")
	assert.Contains(t, outcome.Errors[0], "duplicate key")
}

func TestUpsertCounts(t *testing.T) {
	ctx := context.Background()
	coll := store.NewMemoryStore().Collection("contratos")
	seed(t, coll,
		rec("_id", "C1", "salario", 100.0),
		rec("_id", "C2", "salario", 200.0),
	)

	outcome, err := (&Writer{IDField: "_id"}).Write(ctx, coll, []types.Record{
		rec("_id", "C1", "salario", 100.0),
		rec("_id", "C2", "salario", 210.0),
		rec("_id", "C3", "salario", 300.0),
	}, UpsertByID)
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.Inserted)
	assert.Equal(t, 1, outcome.Modified)
	assert.Equal(t, 1, outcome.Duplicates)
	assert.Empty(t, outcome.Errors)
}

func TestNaturalKeyPrecheck(t *testing.T) {
	ctx := context.Background()
	coll := store.NewMemoryStore().Collection("nominas")
	seed(t, coll, rec("_id", "N1", "empleado_id", "E1", "periodo.mes", 3.0, "periodo.año", 2024.0))

	w := &Writer{IDField: "_id", NaturalKey: []string{"empleado_id", "periodo.mes", "periodo.año"}}
	outcome, err := w.Write(ctx, coll, []types.Record{
		rec("_id", "N9", "empleado_id", "E1", "periodo.mes", 3.0, "periodo.año", 2024.0),
		rec("_id", "N1", "empleado_id", "E7", "periodo.mes", 1.0, "periodo.año", 2024.0),
		rec("_id", "N2", "empleado_id", "E1", "periodo.mes", 4.0, "periodo.año", 2024.0),
		rec("empleado_id", "E2", "periodo.mes", 3.0),
	}, InsertIgnoreDuplicates)
	require.NoError(t, err)

	assert.Equal(t, 2, outcome.Inserted)
	assert.Equal(t, 2, outcome.Duplicates)
	assert.Empty(t, outcome.Errors)

	n, err := coll.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestWriteBatchFailure(t *testing.T) {
	boom := errors.New("server selection timeout")
	coll := &failingCollection{err: boom}

	for _, strategy := range []Strategy{Insert, UpsertByID, InsertIgnoreDuplicates} {
		_, err := (&Writer{}).Write(context.Background(), coll, []types.Record{rec("_id", "x")}, strategy)

		var we *WriteError
		require.ErrorAs(t, err, &we, strategy.String())
		assert.Equal(t, "broken", we.Collection)
		assert.Equal(t, strategy.String(), we.Strategy)
		assert.ErrorIs(t, err, boom)
	}
}

func TestWriteNothing(t *testing.T) {
	outcome, err := (&Writer{}).Write(context.Background(), &failingCollection{err: errors.New("unused")}, nil, Insert)
	require.NoError(t, err)
	assert.Equal(t, &types.LoadOutcome{}, outcome)
}
