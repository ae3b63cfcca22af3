// Package scancode decodes the TronClass rollcall QR payload format.
//
// The format packs key/value terms into a single string: terms are joined
// with "!", key and value inside a term are joined with "~". Keys are the
// base-36 index of the field in a fixed dictionary. Values carry a leading
// control byte selecting the decoder branch: SUB (0x1A) for booleans and
// enum names, DLE (0x10) for base-36 numbers, anything else is a literal
// string with US (0x1F) standing for "~" and RS (0x1E) standing for "!".
package scancode

import (
	"strconv"
	"strings"
)

const (
	escBang  = "\x1e" // RS, escaped "!"
	escTilde = "\x1f" // US, escaped "~"
	subByte  = "\x1a" // SUB, boolean/enum sentinel
	dleByte  = "\x10" // DLE, numeric sentinel

	boolTrue  = subByte + "1"
	boolFalse = subByte + "0"
)

// Well-known field names, in dictionary order.
const (
	KeyCourseID            = "courseId"
	KeyActivityID          = "activityId"
	KeyActivityType        = "activityType"
	KeyData                = "data"
	KeyRollcallID          = "rollcallId"
	KeyGroupSetID          = "groupSetId"
	KeyAccessCode          = "accessCode"
	KeyAction              = "action"
	KeyEnableGroupRollcall = "enableGroupRollcall"
	KeyCreateUser          = "createUser"
	KeyJoinCourse          = "joinCourse"
)

// keyDict maps base-36 key tokens ("0".."a") to field names.
var keyDict = map[string]string{}

// enumDict maps SUB-prefixed tokens to enum value names.
var enumDict = map[string]string{
	subByte + toBase36(2): "classroom-exam",
	subByte + toBase36(3): "feedback",
	subByte + toBase36(4): "vote",
}

func init() {
	names := []string{
		KeyCourseID, KeyActivityID, KeyActivityType, KeyData,
		KeyRollcallID, KeyGroupSetID, KeyAccessCode, KeyAction,
		KeyEnableGroupRollcall, KeyCreateUser, KeyJoinCourse,
	}
	for i, name := range names {
		keyDict[toBase36(i)] = name
	}
}

func toBase36(n int) string {
	return strconv.FormatInt(int64(n), 36)
}

// Payload is the decoded field set. Unknown key tokens are kept verbatim.
type Payload map[string]Value

// Text returns the string rendering of a field, and whether it is present.
func (p Payload) Text(key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	return v.Text(), true
}

// Decode parses a raw scan string into a Payload. It never fails: malformed
// or empty input yields an empty payload, unparseable values fall back to
// their raw token.
func Decode(raw string) Payload {
	out := Payload{}
	for _, term := range strings.Split(raw, "!") {
		if term == "" {
			continue
		}
		kv := strings.SplitN(term, "~", 2)
		if len(kv) < 2 {
			continue
		}
		key := kv[0]
		if name, ok := keyDict[key]; ok {
			key = name
		}
		out[key] = decodeValue(kv[1])
	}
	return out
}

func decodeValue(tok string) Value {
	switch {
	case strings.HasPrefix(tok, subByte):
		return decodeSub(tok)
	case strings.HasPrefix(tok, dleByte):
		return decodeNumber(tok)
	default:
		s := strings.ReplaceAll(tok, escTilde, "~")
		s = strings.ReplaceAll(s, escBang, "!")
		return StringValue(s)
	}
}

func decodeSub(tok string) Value {
	switch tok {
	case boolTrue:
		return BoolValue(true)
	case boolFalse:
		return BoolValue(false)
	}
	if name, ok := enumDict[tok]; ok {
		return StringValue(name)
	}
	return StringValue(tok)
}

// decodeNumber parses a DLE-prefixed token as one or two base-36 pieces.
// Two pieces are concatenated as decimal digits around a "." and parsed as
// a float: pieces 1 and 2 yield 1.2, not one half. This mirrors the
// upstream encoder exactly and must not be "fixed" into real fractions.
func decodeNumber(tok string) Value {
	pieces := strings.Split(tok[len(dleByte):], ".")
	nums := make([]int64, 0, len(pieces))
	for _, p := range pieces {
		n, err := strconv.ParseInt(p, 36, 64)
		if err != nil {
			return StringValue(tok)
		}
		nums = append(nums, n)
	}
	switch {
	case len(nums) > 1:
		f, err := strconv.ParseFloat(
			strconv.FormatInt(nums[0], 10)+"."+strconv.FormatInt(nums[1], 10), 64)
		if err != nil {
			return StringValue(tok)
		}
		return NumberValue(f)
	case len(nums) == 1:
		return NumberValue(float64(nums[0]))
	default:
		return StringValue(tok)
	}
}
