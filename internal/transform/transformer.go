package transform

import (
	"github.com/roach88/typeshape/internal/typegraph"
)

// Transformer is a sealed interface over the transformer variants. Only
// the types in this file implement it.
type Transformer interface {
	// Kind names the variant.
	Kind() string
	// SourceType is the type of the value the transformer consumes. For
	// decoding variants it is the type of the raw token read.
	SourceType() typegraph.TypeRef
	transformer()
}

// Decoding reads a raw token as Source and hands the value to Consumer.
// Without a consumer the raw token is decoded as the target type.
type Decoding struct {
	Source   typegraph.TypeRef
	Consumer Transformer
}

// DecodingChoice dispatches on the kind of the raw token. Each branch is
// optional; a token kind without a branch reaches the cannot-decode path.
type DecodingChoice struct {
	Source  typegraph.TypeRef
	Null    Transformer
	Integer Transformer
	Double  Transformer
	Bool    Transformer
	String  Transformer
	Object  Transformer
	Array   Transformer
}

// ArrayDecoding decodes every element of a raw array with ItemTransformer
// into a value of ItemTargetType and finishes with the sequence.
type ArrayDecoding struct {
	Source          typegraph.TypeRef
	ItemTargetType  typegraph.TypeRef
	ItemTransformer Transformer
}

// ArrayEncoding writes a sequence, encoding every element with
// ItemTransformer.
type ArrayEncoding struct {
	Source          typegraph.TypeRef
	ItemTargetType  typegraph.TypeRef
	ItemTransformer Transformer
}

// Choice tries its members in order; the first that matches wins.
type Choice struct {
	Source       typegraph.TypeRef
	Transformers []Transformer
}

// StringMatch matches exactly one string case and hands the value to
// Transformer.
type StringMatch struct {
	Source      typegraph.TypeRef
	Transformer Transformer
	Case        string
}

// StringProducer replaces its input with the literal Result.
type StringProducer struct {
	Source   typegraph.TypeRef
	Consumer Transformer
	Result   string
}

// UnionMemberMatch tests whether a union value holds Member and hands the
// unwrapped member value to Transformer. Source is the union type.
type UnionMemberMatch struct {
	Source      typegraph.TypeRef
	Transformer Transformer
	Member      typegraph.TypeRef
}

// UnionInstantiation wraps a value of the member type Source into the
// target union. For a nullable union the value is passed as is.
type UnionInstantiation struct {
	Source typegraph.TypeRef
}

// ParseString parses a string into the kind its consumer (or the target)
// expects. An unparseable string does not match.
type ParseString struct {
	Source   typegraph.TypeRef
	Consumer Transformer
}

// Stringify formats a value of kind Source as a string.
type Stringify struct {
	Source   typegraph.TypeRef
	Consumer Transformer
}

// MinMaxLengthCheck passes strings whose length in runes lies in Range.
type MinMaxLengthCheck struct {
	Source   typegraph.TypeRef
	Consumer Transformer
	Range    typegraph.MinMax
}

// MinMaxValueCheck passes numbers that lie in Range.
type MinMaxValueCheck struct {
	Source   typegraph.TypeRef
	Consumer Transformer
	Range    typegraph.MinMax
}

// Encoding writes a value of Source as a raw token.
type Encoding struct {
	Source typegraph.TypeRef
}

func (Decoding) transformer()           {}
func (DecodingChoice) transformer()     {}
func (ArrayDecoding) transformer()      {}
func (ArrayEncoding) transformer()      {}
func (Choice) transformer()             {}
func (StringMatch) transformer()        {}
func (StringProducer) transformer()     {}
func (UnionMemberMatch) transformer()   {}
func (UnionInstantiation) transformer() {}
func (ParseString) transformer()        {}
func (Stringify) transformer()          {}
func (MinMaxLengthCheck) transformer()  {}
func (MinMaxValueCheck) transformer()   {}
func (Encoding) transformer()           {}

func (Decoding) Kind() string           { return "decoding" }
func (DecodingChoice) Kind() string     { return "decoding-choice" }
func (ArrayDecoding) Kind() string      { return "array-decoding" }
func (ArrayEncoding) Kind() string      { return "array-encoding" }
func (Choice) Kind() string             { return "choice" }
func (StringMatch) Kind() string        { return "string-match" }
func (StringProducer) Kind() string     { return "string-producer" }
func (UnionMemberMatch) Kind() string   { return "union-member-match" }
func (UnionInstantiation) Kind() string { return "union-instantiation" }
func (ParseString) Kind() string        { return "parse-string" }
func (Stringify) Kind() string          { return "stringify" }
func (MinMaxLengthCheck) Kind() string  { return "min-max-length-check" }
func (MinMaxValueCheck) Kind() string   { return "min-max-value-check" }
func (Encoding) Kind() string           { return "encoding" }

func (x Decoding) SourceType() typegraph.TypeRef           { return x.Source }
func (x DecodingChoice) SourceType() typegraph.TypeRef     { return x.Source }
func (x ArrayDecoding) SourceType() typegraph.TypeRef      { return x.Source }
func (x ArrayEncoding) SourceType() typegraph.TypeRef      { return x.Source }
func (x Choice) SourceType() typegraph.TypeRef             { return x.Source }
func (x StringMatch) SourceType() typegraph.TypeRef        { return x.Source }
func (x StringProducer) SourceType() typegraph.TypeRef     { return x.Source }
func (x UnionMemberMatch) SourceType() typegraph.TypeRef   { return x.Source }
func (x UnionInstantiation) SourceType() typegraph.TypeRef { return x.Source }
func (x ParseString) SourceType() typegraph.TypeRef        { return x.Source }
func (x Stringify) SourceType() typegraph.TypeRef          { return x.Source }
func (x MinMaxLengthCheck) SourceType() typegraph.TypeRef  { return x.Source }
func (x MinMaxValueCheck) SourceType() typegraph.TypeRef   { return x.Source }
func (x Encoding) SourceType() typegraph.TypeRef           { return x.Source }
