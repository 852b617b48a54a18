package clamtype

import "fmt"

// Tid is a type identifier interned in a TypeDefs table. It is minted once
// per structurally-distinct entry and is stable for the remainder of a
// translation (see spec §3.4, §5).
type Tid uint32

// Kind enumerates the Clam low-level type lattice (spec §3.2, §4.4).
type Kind int

const (
	I32Bool Kind = iota
	I32Unit
	I32
	I64
	F32
	F64
	Ref
	RefLazyInit
	RefNullable
	RefBytes
	RefString
	RefFunc
	RefExtern
	RefAny
)

func (k Kind) String() string {
	switch k {
	case I32Bool:
		return "i32_bool"
	case I32Unit:
		return "i32_unit"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case Ref:
		return "ref"
	case RefLazyInit:
		return "ref_lazy_init"
	case RefNullable:
		return "ref_nullable"
	case RefBytes:
		return "ref_bytes"
	case RefString:
		return "ref_string"
	case RefFunc:
		return "ref_func"
	case RefExtern:
		return "ref_extern"
	case RefAny:
		return "ref_any"
	default:
		return "kind(?)"
	}
}

// Type is a fully-lowered Clam type. Unboxed kinds carry no Tid; the Ref*
// kinds carry a Tid into a TypeDefs table.
type Type struct {
	Kind Kind
	Tid  Tid // valid iff Kind is one of Ref, RefLazyInit, RefNullable
}

func (t Type) String() string {
	switch t.Kind {
	case Ref, RefLazyInit, RefNullable:
		return fmt.Sprintf("%s{%d}", t.Kind, t.Tid)
	default:
		return t.Kind.String()
	}
}

func Unboxed(k Kind) Type { return Type{Kind: k} }
func RefTo(k Kind, tid Tid) Type {
	return Type{Kind: k, Tid: tid}
}

// FnSig is a structural function signature: the unit of interning for
// abstract closure types. Two FnSigs with equal Params/Ret are the same
// signature and must share one abstract-closure Tid (spec §4.4).
type FnSig struct {
	Params []Type
	Ret    Type
}

func (s FnSig) key() string {
	k := "("
	for _, p := range s.Params {
		k += p.String() + ","
	}
	return k + ")->" + s.Ret.String()
}

// TypeDefEntry is one row of the program's type_defs table (spec §3.2,
// §4.4). Kind selects which of the fields below are meaningful.
type TypeDefEntry struct {
	Kind TypeDefKind

	// RefClosureAbstract, RefClosure
	FnSig FnSig

	// RefClosure: captures recorded as (field name placeholder, type)
	// pairs in declaration order — order is semantically load-bearing
	// (spec §3.3 "Lclosure captures list order matches the corresponding
	// capture struct field order bit-for-bit").
	Fields []Field

	// RefConcreteObject
	AbstractObjTid Tid
	SelfTid        Tid

	// Enum / constructor derivation
	EnumTid    Tid
	ConstrTag  int
	ConstrName string
}

type TypeDefKind int

const (
	DefClosureAbstract TypeDefKind = iota
	DefClosure
	DefLateInitStruct
	DefConcreteObject
	DefStruct
	DefEnum
	DefConstructor
)

type Field struct {
	Name string
	Ty   Type
}

// TypeDefs is the monotonically-growing table of interned structural
// types. It never removes or mutates an entry once assigned a Tid — see
// spec §3.4 "type_defs accumulates monotonically."
type TypeDefs struct {
	entries []TypeDefEntry
	// sigToAbstractTid memoizes FnSig -> abstract-closure Tid so each
	// distinct signature is materialized at most once (spec §4.4).
	sigToAbstractTid map[string]Tid
}

func NewTypeDefs() *TypeDefs {
	return &TypeDefs{sigToAbstractTid: make(map[string]Tid)}
}

func (d *TypeDefs) push(e TypeDefEntry) Tid {
	tid := Tid(len(d.entries))
	d.entries = append(d.entries, e)
	return tid
}

// InternAbstractClosure returns the tid for sig's abstract closure type,
// materializing it on first use (spec §4.4: "each signature is
// materialized at most once and bound in type_defs as
// Ref_closure_abstract{fn_sig}").
func (d *TypeDefs) InternAbstractClosure(sig FnSig) Tid {
	key := sig.key()
	if tid, ok := d.sigToAbstractTid[key]; ok {
		return tid
	}
	tid := d.push(TypeDefEntry{Kind: DefClosureAbstract, FnSig: sig})
	d.sigToAbstractTid[key] = tid
	return tid
}

// NewClosure always materializes a fresh concrete capture tid: unlike the
// abstract signature, two call sites with structurally-equal capture lists
// are not deduplicated, because they are lowered from distinct binding
// sites (spec §4.8 mints "a concrete capture tid" per escaping function).
func (d *TypeDefs) NewClosure(sig FnSig, fields []Field) Tid {
	return d.push(TypeDefEntry{Kind: DefClosure, FnSig: sig, Fields: fields})
}

func (d *TypeDefs) NewLateInitStruct(fields []Field) Tid {
	return d.push(TypeDefEntry{Kind: DefLateInitStruct, Fields: fields})
}

func (d *TypeDefs) NewStruct(fields []Field) Tid {
	return d.push(TypeDefEntry{Kind: DefStruct, Fields: fields})
}

func (d *TypeDefs) NewConcreteObject(abstractObj, self Tid) Tid {
	return d.push(TypeDefEntry{Kind: DefConcreteObject, AbstractObjTid: abstractObj, SelfTid: self})
}

func (d *TypeDefs) NewEnum(fields []Field) Tid {
	return d.push(TypeDefEntry{Kind: DefEnum, Fields: fields})
}

func (d *TypeDefs) NewConstructor(enumTid Tid, tag int, name string) Tid {
	return d.push(TypeDefEntry{Kind: DefConstructor, EnumTid: enumTid, ConstrTag: tag, ConstrName: name})
}

func (d *TypeDefs) Entry(tid Tid) TypeDefEntry { return d.entries[tid] }
func (d *TypeDefs) Len() int                   { return len(d.entries) }
func (d *TypeDefs) All() []TypeDefEntry        { return d.entries }
