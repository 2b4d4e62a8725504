package codec

import (
	"fmt"

	"github.com/roach88/typeshape/internal/typegraph"
)

// Union is the decoded value of a union that is not merely nullable:
// which member matched, and that member's value.
type Union struct {
	Member typegraph.TypeRef
	Value  any
}

func (u Union) String() string {
	return fmt.Sprintf("%s(%v)", u.Member, u.Value)
}
