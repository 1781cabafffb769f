// Package graph models catalog payloads as a generic JSON tree and finds the
// links that connect catalog documents to each other.
package graph

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Value is one node of a decoded JSON document. The concrete types are
// String, Number, Bool, Null, Array and *Object.
type Value interface {
	isValue()
}

type (
	String string
	Number json.Number
	Bool   bool
	Null   struct{}
	Array  []Value
)

// Object keeps members in the order they appeared in the source payload.
type Object struct {
	Keys   []string
	Values map[string]Value
}

func (String) isValue()  {}
func (Number) isValue()  {}
func (Bool) isValue()    {}
func (Null) isValue()    {}
func (Array) isValue()   {}
func (*Object) isValue() {}

// Get returns the member stored under key.
func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.Values[key]
	return v, ok
}

func (o *Object) set(key string, v Value) {
	if _, exists := o.Values[key]; !exists {
		o.Keys = append(o.Keys, key)
	}
	o.Values[key] = v
}

// Decode parses a JSON document into a Value tree.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := &Object{Values: make(map[string]Value)}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T, not string", keyTok)
				}
				member, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				obj.set(key, member)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := Array{}
			for dec.More() {
				elem, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, elem)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t)
		}
	case string:
		return String(t), nil
	case json.Number:
		return Number(t), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null{}, nil
	default:
		return nil, fmt.Errorf("unexpected token %T", tok)
	}
}

// WalkFunc is called for every value in a tree. key is the member name the
// value was stored under, or "" for array elements and the root.
type WalkFunc func(key string, v Value)

// Walk visits v and its descendants depth-first in source order.
func Walk(v Value, fn WalkFunc) {
	walk("", v, fn)
}

func walk(key string, v Value, fn WalkFunc) {
	fn(key, v)
	switch t := v.(type) {
	case Array:
		for _, elem := range t {
			walk("", elem, fn)
		}
	case *Object:
		for _, k := range t.Keys {
			walk(k, t.Values[k], fn)
		}
	}
}
