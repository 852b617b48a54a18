package lower_test

import (
	"testing"

	"github.com/moonbitlang/moonbit-compiler/internal/clamtype"
	"github.com/moonbitlang/moonbit-compiler/internal/globalenv"
	"github.com/moonbitlang/moonbit-compiler/internal/lower"
)

// A user-defined enum must resolve to exactly one tid no matter which path
// reaches it: an ordinary Named type reference, and a constructor lowering
// for one of its variants both have to land on the same DefEnum entry
// (spec §3.3 "Lallocate{kind=Enum{tag}} uses the same tid as the
// constructor type derived from the tag and the constructor's owning
// enum").
func TestTypeLowering_NamedAndConstructorShareEnumTid(t *testing.T) {
	const enumPath = "MyEnum"
	env := globalenv.NewStatic()
	env.AddType(enumPath, globalenv.TypeInfo{
		Path: enumPath,
		Fields: []clamtype.Field{
			{Name: "Some", Ty: clamtype.Unboxed(clamtype.I32)},
			{Name: "None", Ty: clamtype.Unboxed(clamtype.I32Unit)},
		},
		IsEnum: true,
	})
	tl := lower.NewTypeLowering(env)

	namedTid := tl.Lower(clamtype.Named{Path: enumPath}).Tid
	ctorTid := tl.ConstructorTid(enumPath, 0, "Some")

	entry := tl.Defs.Entry(ctorTid)
	if entry.Kind != clamtype.DefConstructor {
		t.Fatalf("expected a DefConstructor entry, got kind %v", entry.Kind)
	}
	if entry.EnumTid != namedTid {
		t.Errorf("constructor's owning enum tid (%d) must match the enum's own Named-lowering tid (%d)", entry.EnumTid, namedTid)
	}

	enumEntry := tl.Defs.Entry(namedTid)
	if enumEntry.Kind != clamtype.DefEnum {
		t.Errorf("expected the enum path to resolve to a DefEnum entry, got kind %v", enumEntry.Kind)
	}
}

// Two lowerings of the same (enum, tag) constructor must return the same
// tid, the same way InternAbstractClosure memoizes a repeated signature.
func TestTypeLowering_ConstructorTidMemoized(t *testing.T) {
	const enumPath = "MyEnum"
	env := globalenv.NewStatic()
	env.AddType(enumPath, globalenv.TypeInfo{
		Path: enumPath,
		Fields: []clamtype.Field{
			{Name: "Some", Ty: clamtype.Unboxed(clamtype.I32)},
			{Name: "None", Ty: clamtype.Unboxed(clamtype.I32Unit)},
		},
		IsEnum: true,
	})
	tl := lower.NewTypeLowering(env)

	first := tl.ConstructorTid(enumPath, 0, "Some")
	second := tl.ConstructorTid(enumPath, 0, "Some")
	if first != second {
		t.Errorf("two lowerings of the same constructor produced different tids: %d vs %d", first, second)
	}

	other := tl.ConstructorTid(enumPath, 1, "None")
	if other == first {
		t.Errorf("distinct tags on the same enum must not collapse to the same tid")
	}

	before := tl.Defs.Len()
	tl.ConstructorTid(enumPath, 0, "Some")
	if tl.Defs.Len() != before {
		t.Errorf("a memoized constructor lookup must not grow type_defs")
	}
}
