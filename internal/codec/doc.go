// Package codec decodes raw values into typed values, and encodes them
// back, by walking a type graph and the Transformations attached to it.
//
// It is the reference consumer of the transformer IR: a renderer that
// generates code does what Codec does at run time. A type with a
// Transformation is decoded by its decode tree and encoded by the reverse
// tree; every other type is handled by its structure.
//
// Decoded values:
//
//	null                      nil
//	bool                      bool
//	integer                   int64
//	double                    float64
//	string, enum              string
//	date-time, date, time     time.Time
//	uuid                      uuid.UUID
//	uri                       *url.URL
//	array                     []any
//	class, map, object        map[string]any
//	nullable union            nil or the member's value
//	other union               Union
//	any                       raw.Value
package codec
