package inertiavalue

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-json-experiment/json/jsontext"
)

var (
	errUnexpectedToken = errors.New("inertiavalue: unexpected JSON token")
	errTrailingData    = errors.New("inertiavalue: trailing data after JSON value")
)

// Parse decodes a single JSON value.
func Parse(b []byte) (Value, error) {
	dec := jsontext.NewDecoder(bytes.NewReader(b))

	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, fmt.Errorf("inertiavalue: failed to parse JSON: %w", err)
	}

	if _, err := dec.ReadToken(); !errors.Is(err, io.EOF) {
		return Value{}, errTrailingData
	}

	return v, nil
}

// MarshalJSON encodes v preserving mapping key order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	enc := jsontext.NewEncoder(&buf)
	if err := encodeValue(enc, v); err != nil {
		return nil, fmt.Errorf("inertiavalue: failed to encode JSON: %w", err)
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON decodes a JSON value into v.
func (v *Value) UnmarshalJSON(b []byte) error {
	parsed, err := Parse(b)
	if err != nil {
		return err
	}

	*v = parsed

	return nil
}

// MarshalJSON encodes m as a JSON object. A nil Map encodes as {}.
func (m *Map) MarshalJSON() ([]byte, error) {
	return Mapping(m).MarshalJSON()
}

// UnmarshalJSON decodes a JSON object into m. A JSON null leaves m empty.
func (m *Map) UnmarshalJSON(b []byte) error {
	v, err := Parse(b)
	if err != nil {
		return err
	}

	switch v.kind {
	case KindNull:
		*m = *NewMap()
	case KindMapping:
		*m = *v.m
	default:
		return fmt.Errorf("inertiavalue: cannot decode JSON %s into a mapping", v.kind)
	}

	return nil
}

func decodeValue(dec *jsontext.Decoder) (Value, error) {
	tok, err := dec.ReadToken()
	if err != nil {
		return Value{}, err //nolint:wrapcheck
	}

	switch tok.Kind() {
	case 'n':
		return Null(), nil
	case 't', 'f':
		return Bool(tok.Bool()), nil
	case '"':
		return String(tok.String()), nil
	case '0':
		return Number(tok.Float()), nil
	case '[':
		items := []Value{}

		for dec.PeekKind() != ']' {
			item, err := decodeValue(dec)
			if err != nil {
				return Value{}, err
			}

			items = append(items, item)
		}

		if _, err := dec.ReadToken(); err != nil {
			return Value{}, err //nolint:wrapcheck
		}

		return Sequence(items...), nil
	case '{':
		m := NewMap()

		for dec.PeekKind() != '}' {
			tok, err := dec.ReadToken()
			if err != nil {
				return Value{}, err //nolint:wrapcheck
			}

			// tok is invalidated by the next read.
			key := tok.String()

			item, err := decodeValue(dec)
			if err != nil {
				return Value{}, err
			}

			m.Set(key, item)
		}

		if _, err := dec.ReadToken(); err != nil {
			return Value{}, err //nolint:wrapcheck
		}

		return Mapping(m), nil
	default:
		return Value{}, errUnexpectedToken
	}
}

func encodeValue(enc *jsontext.Encoder, v Value) error {
	switch v.kind {
	case KindNull:
		return enc.WriteToken(jsontext.Null) //nolint:wrapcheck
	case KindBool:
		return enc.WriteToken(jsontext.Bool(v.b)) //nolint:wrapcheck
	case KindNumber:
		return enc.WriteToken(jsontext.Float(v.n)) //nolint:wrapcheck
	case KindString:
		return enc.WriteToken(jsontext.String(v.s)) //nolint:wrapcheck
	case KindSequence:
		if err := enc.WriteToken(jsontext.BeginArray); err != nil {
			return err //nolint:wrapcheck
		}

		for _, item := range v.seq {
			if err := encodeValue(enc, item); err != nil {
				return err
			}
		}

		return enc.WriteToken(jsontext.EndArray) //nolint:wrapcheck
	case KindMapping:
		if err := enc.WriteToken(jsontext.BeginObject); err != nil {
			return err //nolint:wrapcheck
		}

		for k, item := range v.m.All() {
			if err := enc.WriteToken(jsontext.String(k)); err != nil {
				return err //nolint:wrapcheck
			}

			if err := encodeValue(enc, item); err != nil {
				return err
			}
		}

		return enc.WriteToken(jsontext.EndObject) //nolint:wrapcheck
	}

	return errUnexpectedToken
}
