package rips

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type kind uint8

const (
	kindText kind = iota
	kindNumber
	kindBool
	kindNull
)

// Value is a scalar claims field. It remembers the JSON kind it was read as
// so that untouched fields are written back the same way. A nil *Value is
// an absent field; an explicit null is a Value of its own (see Null).
type Value struct {
	text string
	kind kind
}

// NewText returns a string-valued field.
func NewText(s string) *Value { return &Value{text: s} }

// NewNumber returns a numeric field. s must be a JSON number literal.
func NewNumber(s string) *Value { return &Value{text: s, kind: kindNumber} }

// NewBool returns a boolean field.
func NewBool(b bool) *Value { return &Value{text: strconv.FormatBool(b), kind: kindBool} }

// Null returns an explicit JSON null.
func Null() *Value { return &Value{kind: kindNull} }

// String returns the field text; nil and null yield "".
func (v *Value) String() string {
	if v == nil {
		return ""
	}
	return v.text
}

// IsNumber reports whether the field is encoded as a JSON number.
func (v *Value) IsNumber() bool { return v != nil && v.kind == kindNumber }

// IsBool reports whether the field is encoded as a JSON boolean.
func (v *Value) IsBool() bool { return v != nil && v.kind == kindBool }

// IsNull reports whether the field is present and null.
func (v *Value) IsNull() bool { return v != nil && v.kind == kindNull }

// Blank reports whether the field is absent, null or whitespace only.
func (v *Value) Blank() bool {
	return v == nil || v.kind == kindNull || strings.TrimSpace(v.text) == ""
}

// Clone returns a copy of v.
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Equal compares text and kind.
func (v *Value) Equal(o *Value) bool {
	if v == nil || o == nil {
		return v == nil && o == nil
	}
	return v.text == o.text && v.kind == o.kind
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindNull:
		return []byte("null"), nil
	case kindBool:
		return []byte(v.text), nil
	case kindNumber:
		if json.Valid([]byte(v.text)) {
			return []byte(v.text), nil
		}
	}
	return marshalNoEscape(v.text)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0:
		return fmt.Errorf("empty scalar")
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = Value{text: s}
	case b[0] == '{' || b[0] == '[':
		return fmt.Errorf("expected scalar, got %s", string(b))
	case bytes.Equal(b, []byte("null")):
		*v = Value{kind: kindNull}
	case bytes.Equal(b, []byte("true")) || bytes.Equal(b, []byte("false")):
		*v = Value{text: string(b), kind: kindBool}
	default:
		*v = Value{text: string(b), kind: kindNumber}
	}
	return nil
}

// valueFromAny converts a decoded JSON scalar (or spreadsheet cell) to a
// Value. nil becomes an explicit null.
func valueFromAny(x any) *Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case *Value:
		return t.Clone()
	case Value:
		return t.Clone()
	case string:
		return NewText(t)
	case json.Number:
		return NewNumber(t.String())
	case float64:
		return NewNumber(strconv.FormatFloat(t, 'f', -1, 64))
	case int:
		return NewNumber(strconv.Itoa(t))
	case int64:
		return NewNumber(strconv.FormatInt(t, 10))
	case bool:
		return NewBool(t)
	default:
		return NewText(fmt.Sprint(t))
	}
}

// ValueOf converts a scalar to a Value.
func ValueOf(x any) *Value { return valueFromAny(x) }

func decodeValue(raw json.RawMessage) (*Value, error) {
	v := &Value{}
	if err := v.UnmarshalJSON(raw); err != nil {
		return nil, err
	}
	return v, nil
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
