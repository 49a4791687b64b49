package directory

import "encoding/json"

// Optional distinguishes the three states a field can take in a
// partial update payload: absent (leave as is), explicit null (clear),
// or a value. The zero Optional is the absent state, so a request
// struct needs no constructor.
type Optional[T any] struct {
	Present bool
	Valid   bool
	Value   T
}

func Some[T any](value T) Optional[T] {
	return Optional[T]{Present: true, Valid: true, Value: value}
}

func Null[T any]() Optional[T] {
	return Optional[T]{Present: true}
}

// UnmarshalJSON is only invoked for keys present in the payload, which
// is what makes the absent state representable.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Present = true
	if string(data) == "null" {
		o.Valid = false
		var zero T
		o.Value = zero
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Present || !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}
