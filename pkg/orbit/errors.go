package orbit

import "fmt"

// MissingFieldError reports a record lacking a required field.
type MissingFieldError struct {
	Field string
	Index int
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("record %d: missing field %q", e.Index, e.Field)
}

// MalformedTimestampError reports an EPOCH value that is not a valid timestamp.
type MalformedTimestampError struct {
	Index int
	Value any
	Err   error
}

func (e *MalformedTimestampError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("record %d: malformed %s %v: %v", e.Index, FieldEpoch, e.Value, e.Err)
	}
	return fmt.Sprintf("record %d: malformed %s %v", e.Index, FieldEpoch, e.Value)
}

func (e *MalformedTimestampError) Unwrap() error { return e.Err }

// MalformedNumberError reports a numeric field that could not be parsed as a
// float.
type MalformedNumberError struct {
	Field string
	Index int
	Value any
	Err   error
}

func (e *MalformedNumberError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("record %d: malformed number in %q (%v): %v", e.Index, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("record %d: malformed number in %q (%v)", e.Index, e.Field, e.Value)
}

func (e *MalformedNumberError) Unwrap() error { return e.Err }

// UnknownFeatureError is returned by ParseFeature for names outside the
// known feature set.
type UnknownFeatureError struct {
	Name string
}

func (e *UnknownFeatureError) Error() string {
	return fmt.Sprintf("unknown feature %q", e.Name)
}
