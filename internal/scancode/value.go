package scancode

import (
	"encoding/json"
	"strconv"
)

type Kind int

const (
	KindString Kind = iota
	KindBool
	KindNumber
)

// Value is a closed string|bool|number variant for decoded fields.
type Value struct {
	kind Kind
	str  string
	b    bool
	num  float64
}

func StringValue(s string) Value  { return Value{kind: KindString, str: s} }
func BoolValue(b bool) Value      { return Value{kind: KindBool, b: b} }
func NumberValue(f float64) Value { return Value{kind: KindNumber, num: f} }

func (v Value) Kind() Kind      { return v.kind }
func (v Value) String() string  { return v.str }
func (v Value) Bool() bool      { return v.b }
func (v Value) Number() float64 { return v.num }

// Text renders the value the way it appears in URLs and request bodies:
// integral numbers print without a decimal point.
func (v Value) Text() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	default:
		return v.str
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		return json.Marshal(v.num)
	default:
		return json.Marshal(v.str)
	}
}
