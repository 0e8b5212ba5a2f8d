package ir

import (
	"fmt"
	"strings"
)

// structKey is the hash-consing key for a structural (non-nominal) Def:
// kind, type identity, operand identities, and payload (section 3 invariant
// 2, section 9). Two Defs with equal keys are, by construction, the same
// object in a World.
type structKey string

func makeStructKey(kind Kind, typeGID GID, ops []Def, payload string) structKey {
	var b strings.Builder
	fmt.Fprintf(&b, "%d|%d|", kind, typeGID)
	for _, op := range ops {
		fmt.Fprintf(&b, "%d,", op.GID())
	}
	b.WriteByte('|')
	b.WriteString(payload)
	return structKey(b.String())
}

func typeGID(t Type) GID {
	if t == nil {
		return invalidGID
	}
	return t.GID()
}

// payloadOf renders the kind-specific fields that participate in structural
// equality but are not operands (enum selectors, literal bits, tuple
// indices, pointer address-space/device/count, primitive kind).
func payloadOf(d Def) string {
	switch v := d.(type) {
	case *PrimType:
		return fmt.Sprintf("prim:%d", v.Prim)
	case *SigmaType:
		return fmt.Sprintf("named:%v", v.Named)
	case *PtrType:
		return fmt.Sprintf("as:%d,dev:%d,cnt:%d", v.AddrSpace, v.Device, v.Count)
	case *Literal:
		return fmt.Sprintf("bits:%d", v.Val.Bits)
	case *ArithOp:
		return fmt.Sprintf("op:%d", v.OpKind)
	case *RelOp:
		return fmt.Sprintf("op:%d", v.OpKind)
	case *ConvOp:
		return fmt.Sprintf("op:%d", v.OpKind)
	case *Extract:
		return fmt.Sprintf("idx:%d", v.Index)
	case *Insert:
		return fmt.Sprintf("idx:%d", v.Index)
	default:
		return ""
	}
}
