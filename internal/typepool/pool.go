// Package typepool defines the contract the ARC core consumes from the
// compiler's shared type pool, plus a small in-memory implementation for
// tests, fixtures, and the standalone CLI.
//
// The real type pool lives in the type checker, outside this repo's scope
// (spec.md §1 treats it as an external collaborator). ARC code is written
// against the Pool interface so any conforming implementation can be
// substituted.
package typepool

import "fmt"

// Idx is an opaque index into the type pool. The ARC core never interprets
// its bit pattern; it is a lookup key into Pool.
type Idx uint32

// Tag classifies the structural shape of a type, used to drive §4.A
// classification.
type Tag int

const (
	TagInt Tag = iota
	TagFloat
	TagBool
	TagChar
	TagByte
	TagUnit
	TagNever
	TagDuration
	TagSize
	TagOrdering
	TagString
	TagList
	TagMap
	TagSet
	TagChannel
	TagClosure
	TagTuple
	TagStruct
	TagEnum
	TagVar // unresolved type variable (pre-monomorphization)
)

func (t Tag) String() string {
	switch t {
	case TagInt:
		return "Int"
	case TagFloat:
		return "Float"
	case TagBool:
		return "Bool"
	case TagChar:
		return "Char"
	case TagByte:
		return "Byte"
	case TagUnit:
		return "Unit"
	case TagNever:
		return "Never"
	case TagDuration:
		return "Duration"
	case TagSize:
		return "Size"
	case TagOrdering:
		return "Ordering"
	case TagString:
		return "String"
	case TagList:
		return "List"
	case TagMap:
		return "Map"
	case TagSet:
		return "Set"
	case TagChannel:
		return "Channel"
	case TagClosure:
		return "Closure"
	case TagTuple:
		return "Tuple"
	case TagStruct:
		return "Struct"
	case TagEnum:
		return "Enum"
	case TagVar:
		return "Var"
	default:
		return fmt.Sprintf("Tag(%d)", int(t))
	}
}

// Field describes one structural field of a Struct/Enum-variant type.
type Field struct {
	Name string
	Type Idx
}

// Pool is the read-only type-pool contract the ARC core consumes.
//
// Implementations must be safe for concurrent reads: spec.md §5 runs
// per-function pipelines concurrently, all sharing one Pool.
type Pool interface {
	// Tag returns the structural tag for idx.
	Tag(idx Idx) Tag
	// Resolve follows a type alias to its underlying definition. Returns
	// idx unchanged if it is not an alias.
	Resolve(idx Idx) Idx
	// StructFieldCount returns the number of fields for a Struct or Enum
	// variant type. Zero for any other tag.
	StructFieldCount(idx Idx) int
	// StructField returns the i'th field of a Struct/Enum-variant type.
	StructField(idx Idx, i int) Field
	// ElementType returns the element type of a List/Set/Channel, or the
	// value type of a Map. Returns (0, false) for any other tag.
	ElementType(idx Idx) (Idx, bool)
}

// Well-known indices shared by tests and fixtures, mirroring the
// Idx::INT / Idx::STR constants the reference implementation exposes.
const (
	IdxInt  Idx = 0
	IdxStr  Idx = 1
	IdxBool Idx = 2
	IdxUnit Idx = 3
)

// StaticPool is a simple in-memory Pool backed by slices, built by
// registering types up front. It is used by tests, CLI fixtures, and
// anywhere a full type-checker Pool is unavailable.
type StaticPool struct {
	tags     []Tag
	fields   [][]Field
	elements []elementEntry
	aliases  []Idx // aliases[i] == i when idx i is not an alias
}

type elementEntry struct {
	idx Idx
	ok  bool
}

// NewStaticPool creates a pool pre-seeded with the well-known scalar and
// string indices (Idx int/bool/str/unit).
func NewStaticPool() *StaticPool {
	p := &StaticPool{}
	p.add(TagInt, nil, elementEntry{})    // IdxInt
	p.add(TagString, nil, elementEntry{}) // IdxStr
	p.add(TagBool, nil, elementEntry{})   // IdxBool
	p.add(TagUnit, nil, elementEntry{})   // IdxUnit
	return p
}

func (p *StaticPool) add(tag Tag, fields []Field, elem elementEntry) Idx {
	idx := Idx(len(p.tags))
	p.tags = append(p.tags, tag)
	p.fields = append(p.fields, fields)
	p.elements = append(p.elements, elem)
	p.aliases = append(p.aliases, idx)
	return idx
}

// DefineScalar registers a new scalar type (no fields, never needs RC).
func (p *StaticPool) DefineScalar(tag Tag) Idx {
	return p.add(tag, nil, elementEntry{})
}

// DefineStruct registers a struct (or enum-variant) type with the given
// fields.
func (p *StaticPool) DefineStruct(tag Tag, fields []Field) Idx {
	return p.add(tag, fields, elementEntry{})
}

// DefineCollection registers a List/Set/Channel/Map-like type with the
// given element (or map value) type.
func (p *StaticPool) DefineCollection(tag Tag, elem Idx) Idx {
	return p.add(tag, nil, elementEntry{idx: elem, ok: true})
}

// DefineAlias registers idx as an alias that resolves to target.
func (p *StaticPool) DefineAlias(target Idx) Idx {
	idx := Idx(len(p.tags))
	p.tags = append(p.tags, p.tags[target])
	p.fields = append(p.fields, p.fields[target])
	p.elements = append(p.elements, p.elements[target])
	p.aliases = append(p.aliases, target)
	return idx
}

func (p *StaticPool) Tag(idx Idx) Tag {
	if int(idx) >= len(p.tags) {
		return TagVar
	}
	return p.tags[idx]
}

func (p *StaticPool) Resolve(idx Idx) Idx {
	if int(idx) >= len(p.aliases) {
		return idx
	}
	return p.aliases[idx]
}

func (p *StaticPool) StructFieldCount(idx Idx) int {
	idx = p.Resolve(idx)
	if int(idx) >= len(p.fields) {
		return 0
	}
	return len(p.fields[idx])
}

func (p *StaticPool) StructField(idx Idx, i int) Field {
	idx = p.Resolve(idx)
	return p.fields[idx][i]
}

func (p *StaticPool) ElementType(idx Idx) (Idx, bool) {
	idx = p.Resolve(idx)
	if int(idx) >= len(p.elements) {
		return 0, false
	}
	e := p.elements[idx]
	return e.idx, e.ok
}
