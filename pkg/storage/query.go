package storage

import (
	"cmp"
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strings"

	"github.com/spf13/cast"

	"github.com/papercomputeco/yearbook/pkg/record"
)

// Query selects records from a collection. Both parts are optional; there
// are no compound predicates.
type Query struct {
	Equals  *Equals
	OrderBy *OrderBy
}

// Equals is a single equality predicate on one field.
type Equals struct {
	Field string
	Value any
}

// OrderBy orders by one field.
type OrderBy struct {
	Field     string
	Ascending bool
}

// Eq is shorthand for an equality predicate.
func Eq(field string, value any) *Equals {
	return &Equals{Field: field, Value: value}
}

// Asc orders by field ascending.
func Asc(field string) *OrderBy {
	return &OrderBy{Field: field, Ascending: true}
}

// Desc orders by field descending.
func Desc(field string) *OrderBy {
	return &OrderBy{Field: field}
}

// DefaultOrder is used when a Query has no OrderBy: newest first.
var DefaultOrder = OrderBy{Field: record.FieldCreatedAt}

// Order returns the effective ordering of q.
func (q Query) Order() OrderBy {
	if q.OrderBy == nil {
		return DefaultOrder
	}
	return *q.OrderBy
}

var fieldNameRE = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ValidateField rejects field and collection names that can't be safely
// embedded in a remote query.
func ValidateField(name string) error {
	if !fieldNameRE.MatchString(name) {
		return fmt.Errorf("invalid field name %q", name)
	}
	return nil
}

// Validate checks every name referenced by q.
func (q Query) Validate() error {
	if q.Equals != nil {
		if err := ValidateField(q.Equals.Field); err != nil {
			return err
		}
	}
	if q.OrderBy != nil {
		if err := ValidateField(q.OrderBy.Field); err != nil {
			return err
		}
	}
	return nil
}

// Matches reports whether fields satisfies the equality predicate. A nil
// predicate matches everything.
func Matches(fields record.Fields, eq *Equals) bool {
	if eq == nil {
		return true
	}

	v, ok := fields[eq.Field]
	if !ok {
		return eq.Value == nil
	}
	return Equal(v, eq.Value)
}

// Equal compares two raw field values. A number equals a string holding the
// same number, so year_number 1 matches "1".
func Equal(a, b any) bool {
	a, b = Normalize(a), Normalize(b)
	if isNumber(a) || isNumber(b) {
		fa, errA := cast.ToFloat64E(a)
		fb, errB := cast.ToFloat64E(b)
		if errA == nil && errB == nil {
			return fa == fb
		}
		return false
	}
	return Compare(a, b) == 0
}

// Compare orders two raw field values: nulls lowest, then booleans, numbers
// (numerically) and strings (lexicographically). Other values compare by
// their string form.
func Compare(a, b any) int {
	a, b = Normalize(a), Normalize(b)
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}

	switch ra {
	case rankNull:
		return 0
	case rankBool:
		return cmp.Compare(cast.ToInt(a), cast.ToInt(b))
	case rankNumber:
		return cmp.Compare(cast.ToFloat64(a), cast.ToFloat64(b))
	case rankString:
		return strings.Compare(a.(string), b.(string))
	default:
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
}

// Sort orders rows in place by o. The sort is stable so equal keys keep
// their insertion order.
func Sort(rows []record.Fields, o OrderBy) {
	slices.SortStableFunc(rows, func(x, y record.Fields) int {
		c := Compare(x[o.Field], y[o.Field])
		if !o.Ascending {
			c = -c
		}
		return c
	})
}

// Normalize reduces values of named types to their underlying kind, so
// record.TypeVideo compares and renders exactly like "video". Other values
// are returned unchanged.
func Normalize(v any) any {
	switch v.(type) {
	case nil, bool, string, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	}
	return v
}

const (
	rankNull = iota
	rankBool
	rankNumber
	rankString
	rankOther
)

func rank(v any) int {
	switch v.(type) {
	case nil:
		return rankNull
	case bool:
		return rankBool
	case string:
		return rankString
	}
	if isNumber(v) {
		return rankNumber
	}
	return rankOther
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return true
	}
	return false
}
