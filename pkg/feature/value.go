package feature

import (
	"fmt"
	"math"
	"strconv"
)

// Kind is the type of a feature value.
type Kind uint8

const (
	KindNumber Kind = iota + 1
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	default:
		return "invalid"
	}
}

// Value is a single typed feature cell. Numbers may be NaN, which marks a
// missing value.
type Value struct {
	kind Kind
	num  float64
	str  string
}

func Number(v float64) Value {
	return Value{kind: KindNumber, num: v}
}

func String(v string) Value {
	return Value{kind: KindString, str: v}
}

// Missing returns a numeric value that has no data.
func Missing() Value {
	return Number(math.NaN())
}

func (v Value) Kind() Kind {
	return v.kind
}

// Float returns the numeric value and whether the value is a number.
func (v Value) Float() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Str returns the string value and whether the value is a string.
func (v Value) Str() (string, bool) {
	return v.str, v.kind == KindString
}

// IsMissing reports whether the value is a NaN number.
func (v Value) IsMissing() bool {
	return v.kind == KindNumber && math.IsNaN(v.num)
}

func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindString:
		return v.str
	default:
		return fmt.Sprintf("<%s>", v.kind)
	}
}

// Record is a named set of feature values.
type Record map[string]Value

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	c := make(Record, len(r)+3)
	for k, v := range r {
		c[k] = v
	}
	return c
}
