// =============================================================================
// CSV Document Loader - Consolidation Engine
// =============================================================================
//
// Some exports repeat an entity once per sub-item: a payroll record appears
// on one line per concept and per novelty. Consolidation merges those lines
// back into one document per entity.
//
// ALGORITHM:
//   1. Compute each record's group key (value at group_by). A record with
//      no key gets a random one and forms its own group.
//   2. The first record of a group is the base document.
//   3. For every configured array field, a record whose sub-object has a
//      non-empty discriminant contributes one item, shaped to the array's
//      field list.
//   4. Identical items (same BSON encoding) are kept once.
//
// EXAMPLE (group_by: _id, array conceptos / codigo_concepto):
//
//   _id,empleado_id,conceptos.codigo_concepto,conceptos.valor
//   N1,E1,C1,100
//   N1,E1,C2,200
//   N1,E1,C1,100
//
//   -> {_id: N1, empleado_id: E1,
//       conceptos: [{codigo_concepto: C1, valor: 100},
//                   {codigo_concepto: C2, valor: 200}]}
//
// Groups are returned in order of first appearance.
//
// =============================================================================

package converter

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ginjaninja78/csvload/internal/coerce"
	"github.com/ginjaninja78/csvload/internal/config"
	"github.com/ginjaninja78/csvload/internal/types"
)

// ConsolidationError reports a group key that could not be computed or
// synthesized, or an item that could not be encoded.
type ConsolidationError struct {
	Err error
}

func (e *ConsolidationError) Error() string {
	return fmt.Sprintf("consolidation failed: %v", e.Err)
}

func (e *ConsolidationError) Unwrap() error {
	return e.Err
}

// =============================================================================
// GROUPS
// =============================================================================

// group accumulates the records of one entity.
type group struct {
	key   string
	base  types.Record
	items map[string]bson.A
	seen  map[string]map[string]bool
}

func newGroup(key string, first types.Record, arrays []config.ArrayField) *group {
	g := &group{
		key:   key,
		base:  types.Clone(first),
		items: make(map[string]bson.A, len(arrays)),
		seen:  make(map[string]map[string]bool, len(arrays)),
	}
	for _, a := range arrays {
		g.items[a.Name] = bson.A{}
		g.seen[a.Name] = make(map[string]bool)
	}
	return g
}

// add appends item unless an identical one is already present.
func (g *group) add(array string, item bson.D) error {
	encoded, err := bson.Marshal(item)
	if err != nil {
		return &ConsolidationError{Err: fmt.Errorf("group %s: %s item: %w", g.key, array, err)}
	}
	fingerprint := string(encoded)
	if g.seen[array][fingerprint] {
		return nil
	}
	g.seen[array][fingerprint] = true
	g.items[array] = append(g.items[array], item)
	return nil
}

// record returns the consolidated document. Array fields take the place of
// the base record's sub-object, or are appended when it had none.
func (g *group) record(arrays []config.ArrayField) types.Record {
	for _, a := range arrays {
		types.Set(&g.base, a.Name, g.items[a.Name])
	}
	return g.base
}

// =============================================================================
// CONSOLIDATION
// =============================================================================

// Consolidate merges records that share a group key.
//
// PARAMETERS:
//   - records: The file's records in file order.
//   - spec: The collection's consolidation settings.
//   - strict: Fail on the first item that cannot be conformed to its field
//             types. When false, such items are skipped and reported.
//
// RETURNS:
//   - One record per group, in order of first appearance.
//   - Item errors that were skipped (lenient mode).
//   - A fatal error: a *ConsolidationError, or the first item error in
//     strict mode.
func Consolidate(records []types.Record, spec *config.Consolidation, strict bool) ([]types.Record, []error, error) {
	groups := make(map[string]*group)
	var order []*group
	var issues []error

	for _, rec := range records {
		key, err := groupKey(rec, spec.GroupBy)
		if err != nil {
			return nil, nil, err
		}

		g, exists := groups[key]
		if !exists {
			g = newGroup(key, rec, spec.Arrays)
			groups[key] = g
			order = append(order, g)
		}

		for _, array := range spec.Arrays {
			item, ok, err := extractItem(rec, array)
			if err != nil {
				err = fmt.Errorf("%s '%s': %w", spec.GroupBy, groupLabel(rec, spec.GroupBy), err)
				if strict {
					return nil, nil, err
				}
				issues = append(issues, err)
				continue
			}
			if !ok {
				continue
			}
			if err := g.add(array.Name, item); err != nil {
				return nil, nil, err
			}
		}
	}

	out := make([]types.Record, 0, len(order))
	for _, g := range order {
		out = append(out, g.record(spec.Arrays))
	}
	return out, issues, nil
}

// groupKey returns the grouping key of a record. Identifiers of different
// types never collide because the type is part of the key.
func groupKey(rec types.Record, path string) (string, error) {
	value, ok := types.Lookup(rec, path)
	if ok && value != nil && value != "" {
		switch v := value.(type) {
		case primitive.ObjectID:
			return "oid:" + v.Hex(), nil
		case string:
			return "str:" + v, nil
		default:
			return fmt.Sprintf("%T:%v", v, v), nil
		}
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return "", &ConsolidationError{Err: fmt.Errorf("record without %s: %w", path, err)}
	}
	return "synthetic:" + id.String(), nil
}

func groupLabel(rec types.Record, path string) string {
	value, _ := types.Lookup(rec, path)
	if id, ok := value.(primitive.ObjectID); ok {
		return id.Hex()
	}
	return fmt.Sprint(value)
}

// =============================================================================
// ITEMS
// =============================================================================

// extractItem returns the array item a record contributes, if any.
func extractItem(rec types.Record, array config.ArrayField) (bson.D, bool, error) {
	raw, ok := types.Lookup(rec, array.Name)
	if !ok {
		return nil, false, nil
	}
	sub, ok := raw.(bson.D)
	if !ok {
		return nil, false, nil
	}

	discriminant, _ := types.Lookup(sub, array.Discriminant)
	if discriminant == nil || discriminant == "" {
		return nil, false, nil
	}

	if len(array.Fields) == 0 {
		return sub, true, nil
	}

	item := make(bson.D, 0, len(array.Fields))
	for _, field := range array.Fields {
		value, _ := types.Lookup(sub, field.Name)
		conformed, err := conform(array.Name+"."+field.Name, value, field)
		if err != nil {
			return nil, false, err
		}
		item = append(item, bson.E{Key: field.Name, Value: conformed})
	}
	return item, true, nil
}

// conform converts an already typed value to the item field's type. Nil
// takes the field default.
func conform(path string, value interface{}, field config.ItemField) (interface{}, error) {
	if value == nil {
		if field.Default == nil {
			return nil, nil
		}
		value = field.Default
	}

	switch field.Type {
	case coerce.Number:
		if f, ok := toFloat(value); ok {
			return f, nil
		}
		if s, ok := value.(string); ok {
			if s == "" {
				return nil, nil
			}
			if f, ok := coerce.ParseNumber(s); ok {
				return f, nil
			}
		}
		return nil, &coerce.FieldError{Path: path, Raw: fmt.Sprint(value), Err: coerce.ErrInvalidNumber}

	case coerce.String:
		return toString(value), nil

	case coerce.Auto:
		if f, ok := toFloat(value); ok {
			return f, nil
		}
		return value, nil

	default:
		if s, ok := value.(string); ok {
			return coerce.As(path, s, field.Type)
		}
		return value, nil
	}
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func toString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case primitive.ObjectID:
		return v.Hex()
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}
