package model

import (
	"bytes"
	"encoding/json"
)

// Optional distinguishes the three states a JSON field can be in:
// omitted (Set == false), explicitly null (Set && Null) and present
// (Set && !Null, Value holds the decoded payload).
type Optional[T any] struct {
	Value T
	Set   bool
	Null  bool
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] { return Optional[T]{Value: v, Set: true} }

// Null returns an Optional that was explicitly set to null.
func Null[T any]() Optional[T] { return Optional[T]{Set: true, Null: true} }

// Present reports whether the field was supplied with a non-null value.
func (o Optional[T]) Present() bool { return o.Set && !o.Null }

// UnmarshalJSON is only invoked by encoding/json when the key exists in the
// object, which is what makes the omitted state observable.
func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		var zero T
		o.Value, o.Null = zero, true
		return nil
	}
	o.Null = false
	return json.Unmarshal(b, &o.Value)
}

// Ptr converts the Optional into the nullable column representation used by
// the models: nil for null, a pointer to the value otherwise.
func (o Optional[T]) Ptr() *T {
	if !o.Present() {
		return nil
	}
	v := o.Value
	return &v
}
