package core

import (
	"bytes"
	"encoding/json"

	"github.com/volatiletech/null/v8"
)

var jsonNull = []byte("null")

// OptionalString is a string field of a partial update.
// Absent: Present is false. Explicit null: Present is true and Value is invalid.
type OptionalString struct {
	Value   null.String
	Present bool
}

func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Present = true
	if bytes.Equal(data, jsonNull) {
		o.Value = null.String{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = null.StringFrom(s)
	return nil
}

func (o OptionalString) MarshalJSON() ([]byte, error) {
	if !o.Present {
		return jsonNull, nil
	}
	return o.Value.MarshalJSON()
}

// Cleared reports whether the field was explicitly set to null.
func (o OptionalString) Cleared() bool {
	return o.Present && !o.Value.Valid
}

// Clean trims the provided value.
func (o *OptionalString) Clean() {
	if o.Present && o.Value.Valid {
		o.Value.String = CleanString(o.Value.String)
	}
}

// Apply returns the new value of a field currently holding curr.
func (o OptionalString) Apply(curr null.String) null.String {
	if !o.Present {
		return curr
	}
	return o.Value
}

func SomeString(s string) OptionalString {
	return OptionalString{Value: null.StringFrom(s), Present: true}
}

func NullString() OptionalString {
	return OptionalString{Present: true}
}
