package lower

import (
	"golang.org/x/text/unicode/norm"

	"github.com/moonbitlang/moonbit-compiler/internal/clamtype"
	"github.com/moonbitlang/moonbit-compiler/internal/globalenv"
)

// TypeLowering is spec §4.4: maps source types to Clam low-level types,
// interns structural function-signature types, and allocates tids for
// closure captures and object witnesses. It owns the single TypeDefs table
// shared by the whole translation (spec §3.4 "tid]s are interned ... and
// survive the life of the program").
type TypeLowering struct {
	Defs     *clamtype.TypeDefs
	Env      globalenv.Env
	namedTid map[string]clamtype.Tid
	ctorTid  map[ctorKey]clamtype.Tid
}

// ctorKey memoizes NewConstructor by (enumTid, tag), mirroring
// InternAbstractClosure's memoization of abstract closures (spec §3.3
// "Lallocate{kind=Enum{tag}} uses the same tid as the constructor type
// derived from the tag and the constructor's owning enum" — two lowerings
// of the same tag on the same enum must return the same tid).
type ctorKey struct {
	enum clamtype.Tid
	tag  int
}

func NewTypeLowering(env globalenv.Env) *TypeLowering {
	return &TypeLowering{
		Defs:     clamtype.NewTypeDefs(),
		Env:      env,
		namedTid: make(map[string]clamtype.Tid),
		ctorTid:  make(map[ctorKey]clamtype.Tid),
	}
}

// Lower maps a single source type to its lowered Clam type (spec §4.4).
func (tl *TypeLowering) Lower(st clamtype.SourceType) clamtype.Type {
	switch t := st.(type) {
	case clamtype.Prim:
		switch t.Name {
		case "Bool":
			return clamtype.Unboxed(clamtype.I32Bool)
		case "Unit":
			return clamtype.Unboxed(clamtype.I32Unit)
		case "Int", "Byte", "Char":
			return clamtype.Unboxed(clamtype.I32)
		case "Int64", "UInt64":
			return clamtype.Unboxed(clamtype.I64)
		case "Float":
			return clamtype.Unboxed(clamtype.F32)
		case "Double":
			return clamtype.Unboxed(clamtype.F64)
		default:
			invariant("TypeLowering.Lower", "unknown primitive type %q", t.Name)
		}

	case clamtype.StringT:
		return clamtype.Unboxed(clamtype.RefString)

	case clamtype.BytesView:
		return clamtype.Unboxed(clamtype.RefBytes)

	case clamtype.Func:
		sig := tl.LowerFnSig(t)
		tid := tl.Defs.InternAbstractClosure(sig)
		return clamtype.RefTo(clamtype.Ref, tid)

	case clamtype.Array, clamtype.FixedArray, clamtype.ArrayView:
		return clamtype.RefTo(clamtype.Ref, tl.internContainer(t))

	case clamtype.Named:
		return clamtype.RefTo(clamtype.Ref, tl.internNamed(t))

	case clamtype.Tuple:
		return clamtype.RefTo(clamtype.Ref, tl.internContainer(t))

	case clamtype.Option:
		inner := tl.Lower(t.Elem)
		if inner.Kind == clamtype.Ref {
			return clamtype.RefTo(clamtype.RefNullable, inner.Tid)
		}
		// Non-ref option payloads are represented the same as their
		// underlying unboxed type plus an external nullability tag the
		// backend understands; for this core's purposes the lowered Type
		// is unchanged.
		return inner

	case clamtype.Result:
		// Result<T,E> is lowered as a two-variant enum entry (Ok, Err),
		// memoized like a Named type; ReturnXfm is the only consumer that
		// needs its shape explicitly (wrap_ok / wrap_err), so it has no
		// dedicated Kind.
		okTy := tl.Lower(t.Ok)
		errTy := tl.Lower(t.Err)
		key := "Result<" + t.Ok.String() + "," + t.Err.String() + ">"
		if tid, ok := tl.namedTid[key]; ok {
			return clamtype.RefTo(clamtype.Ref, tid)
		}
		tid := tl.Defs.NewEnum([]clamtype.Field{{Name: "Ok", Ty: okTy}, {Name: "Err", Ty: errTy}})
		tl.namedTid[key] = tid
		return clamtype.RefTo(clamtype.Ref, tid)

	default:
		invariant("TypeLowering.Lower", "unhandled source type %T", st)
	}
	panic("unreachable")
}

// LowerFnSig lowers a source function type into a structural FnSig, the
// unit of abstract-closure interning (spec §4.4).
func (tl *TypeLowering) LowerFnSig(fn clamtype.Func) clamtype.FnSig {
	params := make([]clamtype.Type, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = tl.Lower(p)
	}
	return clamtype.FnSig{Params: params, Ret: tl.Lower(fn.Ret)}
}

func (tl *TypeLowering) internContainer(st clamtype.SourceType) clamtype.Tid {
	key := norm.NFC.String(st.String())
	if tid, ok := tl.namedTid[key]; ok {
		return tid
	}
	var fields []clamtype.Field
	switch st.(type) {
	case clamtype.Array:
		fields = []clamtype.Field{{Name: "buf", Ty: clamtype.Unboxed(clamtype.RefAny)}, {Name: "len", Ty: clamtype.Unboxed(clamtype.I32)}}
	case clamtype.FixedArray:
		fields = []clamtype.Field{{Name: "len", Ty: clamtype.Unboxed(clamtype.I32)}}
	case clamtype.ArrayView:
		fields = []clamtype.Field{{Name: "buf", Ty: clamtype.Unboxed(clamtype.RefAny)}, {Name: "start", Ty: clamtype.Unboxed(clamtype.I32)}, {Name: "len", Ty: clamtype.Unboxed(clamtype.I32)}}
	case clamtype.Tuple:
		tup := st.(clamtype.Tuple)
		fields = make([]clamtype.Field, len(tup.Elems))
		for i, e := range tup.Elems {
			fields[i] = clamtype.Field{Ty: tl.Lower(e)}
		}
	}
	tid := tl.Defs.NewStruct(fields)
	tl.namedTid[key] = tid
	return tid
}

// internNamed resolves a user-defined enum/struct type through GlobalEnv on
// first use and caches the resulting tid (spec §4.4; §6.1 GlobalEnv
// collaborator). This is the single cache for a given path: ordinary Named
// lowering, Constr's owning-enum lookup, and SwitchConstr's scrutinee type
// all resolve through here, so the same path never mints two different
// tids for what spec §3.3 treats as one type.
func (tl *TypeLowering) internNamed(n clamtype.Named) clamtype.Tid {
	return tl.resolveNamedTid(norm.NFC.String(n.String()), n.Path)
}

func (tl *TypeLowering) resolveNamedTid(cacheKey, path string) clamtype.Tid {
	if tid, ok := tl.namedTid[cacheKey]; ok {
		return tid
	}
	info, ok := tl.Env.FindAllTypeByPath(path)
	if !ok {
		invariant("TypeLowering.internNamed", "unknown type path %q", path)
	}
	var tid clamtype.Tid
	if info.IsEnum {
		tid = tl.Defs.NewEnum(info.Fields)
	} else {
		tid = tl.Defs.NewStruct(info.Fields)
	}
	tl.namedTid[cacheKey] = tid
	return tid
}

// ConstructorTid derives a constructor's tid from its owning enum's
// lowered type and a discriminant tag (spec §4.4, §3.3 "Lallocate{kind =
// Enum{tag}} uses the same tid as the constructor type derived from the
// tag and the constructor's owning enum"). The owning enum's tid comes
// from the same per-path cache as every other Named lookup, and the
// constructor tid itself is memoized by (enum, tag) so two lowerings of
// the same constructor return the same tid instead of minting a fresh one
// each time.
func (tl *TypeLowering) ConstructorTid(enumPath string, tag int, name string) clamtype.Tid {
	enumTid := tl.resolveNamedTid(norm.NFC.String(enumPath), enumPath)
	key := ctorKey{enum: enumTid, tag: tag}
	if tid, ok := tl.ctorTid[key]; ok {
		return tid
	}
	tid := tl.Defs.NewConstructor(enumTid, tag, name)
	tl.ctorTid[key] = tid
	return tid
}
