package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestSetBuildsNestedDocuments(t *testing.T) {
	var doc Record
	Set(&doc, "a.b.c", float64(5))

	assert.Equal(t, Record{{Key: "a", Value: bson.D{{Key: "b", Value: bson.D{{Key: "c", Value: float64(5)}}}}}}, doc)
}

func TestSetKeepsHeaderOrderAndSharesParents(t *testing.T) {
	var doc Record
	Set(&doc, "_id", "n1")
	Set(&doc, "periodo.mes", float64(3))
	Set(&doc, "estado", "pagada")
	Set(&doc, "periodo.año", float64(2024))

	want := Record{
		{Key: "_id", Value: "n1"},
		{Key: "periodo", Value: bson.D{{Key: "mes", Value: float64(3)}, {Key: "año", Value: float64(2024)}}},
		{Key: "estado", Value: "pagada"},
	}
	assert.Equal(t, want, doc)
}

func TestSetLastWriteWins(t *testing.T) {
	var scalarFirst Record
	Set(&scalarFirst, "a", float64(1))
	Set(&scalarFirst, "a.b", float64(2))
	assert.Equal(t, Record{{Key: "a", Value: bson.D{{Key: "b", Value: float64(2)}}}}, scalarFirst)

	var nestedFirst Record
	Set(&nestedFirst, "a.b", float64(2))
	Set(&nestedFirst, "a", float64(1))
	assert.Equal(t, Record{{Key: "a", Value: float64(1)}}, nestedFirst)

	var repeated Record
	Set(&repeated, "x", "first")
	Set(&repeated, "x", "second")
	assert.Equal(t, Record{{Key: "x", Value: "second"}}, repeated)
}

func TestLookup(t *testing.T) {
	var doc Record
	Set(&doc, "periodo.mes", float64(3))
	Set(&doc, "nulo", nil)

	v, ok := Lookup(doc, "periodo.mes")
	assert.True(t, ok)
	assert.Equal(t, float64(3), v)

	v, ok = Lookup(doc, "nulo")
	assert.True(t, ok)
	assert.Nil(t, v)

	_, ok = Lookup(doc, "periodo.año")
	assert.False(t, ok)

	_, ok = Lookup(doc, "periodo.mes.x")
	assert.False(t, ok)
}

func TestDeleteAndClone(t *testing.T) {
	doc := Record{{Key: "a", Value: 1}, {Key: "b", Value: 2}, {Key: "c", Value: 3}}
	clone := Clone(doc)

	assert.Equal(t, 1, Delete(&clone, "b"))
	assert.Equal(t, -1, Delete(&clone, "z"))
	assert.Equal(t, Record{{Key: "a", Value: 1}, {Key: "c", Value: 3}}, clone)
	assert.Len(t, doc, 3)
}

func TestCloneCopiesNestedDocuments(t *testing.T) {
	doc := Record{}
	Set(&doc, "periodo.mes", 3.0)

	clone := Clone(doc)
	Set(&clone, "periodo.mes", 4.0)

	v, _ := Lookup(doc, "periodo.mes")
	assert.Equal(t, 3.0, v)
}

func TestLoadOutcomeMerge(t *testing.T) {
	total := LoadOutcome{Inserted: 1, Errors: []string{"a"}}
	total.Merge(LoadOutcome{Inserted: 2, Modified: 1, Duplicates: 3, Errors: []string{"b"}})

	assert.Equal(t, 3, total.Inserted)
	assert.Equal(t, 1, total.Modified)
	assert.Equal(t, 3, total.Duplicates)
	assert.Equal(t, []string{"a", "b"}, total.Errors)
}
