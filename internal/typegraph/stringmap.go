package typegraph

import (
	"fmt"
	"slices"
)

// StringTypeMapping says how each transformed string subkind is represented:
// as itself, as another transformed kind (date and time folded into
// date-time), or as a plain string when the subkind is inactive. Kinds
// missing from the mapping are plain strings.
type StringTypeMapping map[Kind]Kind

// AllStringTypes keeps every transformed subkind as itself.
func AllStringTypes() StringTypeMapping {
	m := StringTypeMapping{}
	for _, k := range TransformedStringKinds {
		m[k] = k
	}
	return m
}

// DefaultStringTypeMapping folds date and time into date-time and keeps
// uuid, uri, integer-string and bool-string.
func DefaultStringTypeMapping() StringTypeMapping {
	return StringTypeMapping{
		KindDate:          KindDateTime,
		KindTime:          KindDateTime,
		KindDateTime:      KindDateTime,
		KindUUID:          KindUUID,
		KindURI:           KindURI,
		KindIntegerString: KindIntegerString,
		KindBoolString:    KindBoolString,
	}
}

// StringTypeMappingFor activates exactly the given subkinds.
func StringTypeMappingFor(active ...Kind) (StringTypeMapping, error) {
	m := StringTypeMapping{}
	for _, k := range active {
		if !k.IsTransformedString() {
			return nil, fmt.Errorf("%s is not a transformed string kind", k)
		}
		m[k] = k
	}
	return m, nil
}

// Resolve returns the kind k is represented as. Non-string kinds map to
// themselves.
func (m StringTypeMapping) Resolve(k Kind) Kind {
	if !k.IsTransformedString() {
		return k
	}
	if to, ok := m[k]; ok {
		return to
	}
	return KindString
}

// Active reports whether k survives the mapping as a transformed kind.
func (m StringTypeMapping) Active(k Kind) bool {
	return m.Resolve(k) != KindString
}

// ActiveKinds lists the transformed kinds the mapping produces, sorted.
func (m StringTypeMapping) ActiveKinds() []Kind {
	var out []Kind
	for _, k := range TransformedStringKinds {
		if r := m.Resolve(k); r != KindString {
			out = append(out, r)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
