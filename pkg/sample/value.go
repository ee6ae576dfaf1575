package sample

import (
	"math"
	"strconv"
)

// Value is a derived quantity that may be undefined.
// The zero Value is undefined; NaN and ±Inf are never stored as defined values.
type Value struct {
	v  float64
	ok bool
}

// Undefined is the absent Value.
var Undefined = Value{}

// Some wraps v. Non-finite inputs yield Undefined.
func Some(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Undefined
	}
	return Value{v: v, ok: true}
}

// Get returns the value and whether it is defined.
func (x Value) Get() (float64, bool) {
	return x.v, x.ok
}

// Defined reports whether x holds a value.
func (x Value) Defined() bool {
	return x.ok
}

// Or returns the value, or def when undefined.
func (x Value) Or(def float64) float64 {
	if !x.ok {
		return def
	}
	return x.v
}

// String formats the value for tabular output; undefined values are empty.
func (x Value) String() string {
	if !x.ok {
		return ""
	}
	return strconv.FormatFloat(x.v, 'g', -1, 64)
}
