package clam

import (
	"bytes"
	"fmt"
	"strconv"
)

// Printer renders a Prog (or any sub-Expr) as an S-expression, the stable
// observable contract between components described in spec §6.2: location
// sub-trees are omitted unless ShowLoc is set, and runs of Llet and of
// Lsequence are collapsed into a single flattened form for readability.
// With ShowLoc set, each Levent prints its own form; nested Levents are not
// merged.
type Printer struct {
	ShowLoc bool
}

func (p Printer) Sprint(e Expr) string {
	var buf bytes.Buffer
	p.write(&buf, e)
	return buf.String()
}

func (p Printer) SprintProg(prog *Prog) string {
	var buf bytes.Buffer
	buf.WriteString("(prog\n")
	for _, fn := range prog.Fns {
		p.writeTopFunc(&buf, fn)
		buf.WriteByte('\n')
	}
	if prog.Main != nil {
		buf.WriteString("  (main ")
		p.writeFnSig(&buf, *prog.Main)
		buf.WriteString(")\n")
	}
	buf.WriteString("  (init ")
	p.write(&buf, prog.Init)
	buf.WriteString(")\n")
	buf.WriteString("  (globals")
	for _, g := range prog.Globals {
		buf.WriteString(" (")
		buf.WriteString(atom(g.Name.Name))
		if g.Const != nil {
			buf.WriteByte(' ')
			p.write(&buf, *g.Const)
		}
		buf.WriteByte(')')
	}
	buf.WriteString("))\n")
	return buf.String()
}

func (p Printer) writeTopFunc(buf *bytes.Buffer, fn TopFuncItem) {
	kind := "priv"
	if fn.Kind == TopPub {
		kind = "pub:" + fn.ExportName
	}
	fmt.Fprintf(buf, "  (fn %s %s ", addrAtom(fn.Binder), kind)
	p.writeFnSig(buf, fn.Fn)
	buf.WriteByte(')')
}

func (p Printer) writeFnSig(buf *bytes.Buffer, sig FnSig) {
	buf.WriteByte('(')
	for i, prm := range sig.Params {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(atom(prm.Name))
	}
	buf.WriteString(") ")
	p.write(buf, sig.Body)
}

// write is the generic recursive-descent printer; every Expr variant must
// be handled exhaustively (spec §9 "the contract is exhaustive handling of
// every variant").
func (p Printer) write(buf *bytes.Buffer, e Expr) {
	switch n := e.(type) {
	case Levent:
		if !p.ShowLoc {
			p.write(buf, n.E)
			return
		}
		fmt.Fprintf(buf, "(event %q ", n.Loc)
		p.write(buf, n.E)
		buf.WriteByte(')')

	case Const:
		writeConst(buf, n.Value)

	case LVar:
		buf.WriteString(atom(n.V.Name))

	case LAssign:
		fmt.Fprintf(buf, "(assign %s ", atom(n.V.Name))
		p.write(buf, n.E)
		buf.WriteByte(')')

	case Llet:
		p.writeLetChain(buf, n)

	case Lletrec:
		buf.WriteString("(letrec (")
		for i, name := range n.Names {
			if i > 0 {
				buf.WriteByte(' ')
			}
			fmt.Fprintf(buf, "(%s ", atom(name.Name))
			p.writeClosure(buf, n.Fns[i])
			buf.WriteByte(')')
		}
		buf.WriteString(") ")
		p.write(buf, n.Body)
		buf.WriteByte(')')

	case Lsequence:
		p.writeSequenceChain(buf, n)

	case Lif:
		buf.WriteString("(if ")
		p.write(buf, n.Pred)
		buf.WriteByte(' ')
		p.write(buf, n.Ifso)
		buf.WriteByte(' ')
		if n.Ifnot != nil {
			p.write(buf, n.Ifnot)
		} else {
			buf.WriteString("()")
		}
		buf.WriteByte(')')

	case Lloop:
		fmt.Fprintf(buf, "(loop %s (", n.Label)
		for i, prm := range n.Params {
			if i > 0 {
				buf.WriteByte(' ')
			}
			buf.WriteString(atom(prm.Name))
		}
		buf.WriteString(") ")
		p.write(buf, n.Body)
		buf.WriteString(" (")
		for i, a := range n.Args {
			if i > 0 {
				buf.WriteByte(' ')
			}
			p.write(buf, a)
		}
		buf.WriteString("))")

	case Lbreak:
		fmt.Fprintf(buf, "(break %s", n.Label)
		if n.Arg != nil {
			buf.WriteByte(' ')
			p.write(buf, n.Arg)
		}
		buf.WriteByte(')')

	case Lcontinue:
		fmt.Fprintf(buf, "(continue %s", n.Label)
		for _, a := range n.Args {
			buf.WriteByte(' ')
			p.write(buf, a)
		}
		buf.WriteByte(')')

	case Ljoinlet:
		tag := "joinlet"
		if n.Kind == NontailJoin {
			tag = "joinlet_nontail"
		}
		fmt.Fprintf(buf, "(%s %s (", tag, n.Name)
		for i, prm := range n.Params {
			if i > 0 {
				buf.WriteByte(' ')
			}
			buf.WriteString(atom(prm.Name))
		}
		buf.WriteString(") ")
		p.write(buf, n.E)
		buf.WriteByte(' ')
		p.write(buf, n.Body)
		buf.WriteByte(')')

	case Ljoinapply:
		fmt.Fprintf(buf, "(joinapply %s", n.Name)
		for _, a := range n.Args {
			buf.WriteByte(' ')
			p.write(buf, a)
		}
		buf.WriteByte(')')

	case Lswitch:
		fmt.Fprintf(buf, "(switch %s", atom(n.Obj.Name))
		for _, c := range n.Cases {
			fmt.Fprintf(buf, " (%d ", c.Tag)
			p.write(buf, c.E)
			buf.WriteByte(')')
		}
		if n.Default != nil {
			buf.WriteString(" (default ")
			p.write(buf, n.Default)
			buf.WriteByte(')')
		}
		buf.WriteByte(')')

	case Lswitchint:
		buf.WriteString("(switchint ")
		p.write(buf, n.Obj)
		for _, c := range n.Cases {
			fmt.Fprintf(buf, " (%d ", c.Value)
			p.write(buf, c.E)
			buf.WriteByte(')')
		}
		if n.Default != nil {
			buf.WriteString(" (default ")
			p.write(buf, n.Default)
			buf.WriteByte(')')
		}
		buf.WriteByte(')')

	case Lswitchstring:
		buf.WriteString("(switchstring ")
		p.write(buf, n.Obj)
		for _, c := range n.Cases {
			fmt.Fprintf(buf, " (%q ", c.Value)
			p.write(buf, c.E)
			buf.WriteByte(')')
		}
		if n.Default != nil {
			buf.WriteString(" (default ")
			p.write(buf, n.Default)
			buf.WriteByte(')')
		}
		buf.WriteByte(')')

	case Lapply:
		buf.WriteString("(apply ")
		p.writeCallTarget(buf, n.Fn)
		if n.Prim != "" {
			fmt.Fprintf(buf, " #%s", n.Prim)
		}
		for _, a := range n.Args {
			buf.WriteByte(' ')
			p.write(buf, a)
		}
		buf.WriteByte(')')

	case LstubCall:
		fmt.Fprintf(buf, "(stub_call %s", addrAtom(n.Fn))
		for _, a := range n.Args {
			buf.WriteByte(' ')
			p.write(buf, a)
		}
		buf.WriteByte(')')

	case Lallocate:
		fmt.Fprintf(buf, "(allocate %s %d", allocKindName(n.Kind), n.Tid)
		if n.Kind == AllocEnum {
			fmt.Fprintf(buf, " tag=%d", n.Tag)
		}
		for _, f := range n.Fields {
			buf.WriteByte(' ')
			p.write(buf, f)
		}
		buf.WriteByte(')')

	case *Closure:
		p.writeClosure(buf, n)

	case LgetRawFunc:
		fmt.Fprintf(buf, "(get_raw_func %s)", addrAtom(n.Addr))

	case LgetField:
		fmt.Fprintf(buf, "(get_field %s %d ", getFieldKindName(n.Kind), n.Index)
		p.write(buf, n.Obj)
		buf.WriteByte(')')

	case LsetField:
		fmt.Fprintf(buf, "(set_field %s %d ", setFieldKindName(n.Kind), n.Index)
		p.write(buf, n.Obj)
		buf.WriteByte(' ')
		p.write(buf, n.Val)
		buf.WriteByte(')')

	case LclosureField:
		fmt.Fprintf(buf, "(closure_field %d ", n.Index)
		p.write(buf, n.Obj)
		buf.WriteByte(')')

	case LmakeArray:
		buf.WriteString("(make_array")
		for _, el := range n.Elems {
			buf.WriteByte(' ')
			p.write(buf, el)
		}
		buf.WriteByte(')')

	case LarrayGetItem:
		fmt.Fprintf(buf, "(array_get_item %s ", accessKindName(n.Access))
		p.write(buf, n.Arr)
		buf.WriteByte(' ')
		p.write(buf, n.Idx)
		buf.WriteByte(')')

	case LarraySetItem:
		fmt.Fprintf(buf, "(array_set_item %s ", accessKindName(n.Access))
		p.write(buf, n.Arr)
		buf.WriteByte(' ')
		p.write(buf, n.Idx)
		buf.WriteByte(' ')
		p.write(buf, n.Val)
		buf.WriteByte(')')

	case Lcast:
		buf.WriteString("(cast ")
		p.write(buf, n.E)
		fmt.Fprintf(buf, " %s)", n.TargetType)

	case Lcatch:
		buf.WriteString("(catch ")
		p.write(buf, n.Body)
		buf.WriteByte(' ')
		p.write(buf, n.OnException)
		buf.WriteByte(')')

	case Lreturn:
		buf.WriteString("(return ")
		p.write(buf, n.E)
		buf.WriteByte(')')

	default:
		panic(fmt.Sprintf("clam.Printer: unhandled expr %T", e))
	}
}

// writeLetChain collapses a run of nested Llet nodes into one flattened
// (let ((a e1) (b e2) ...) body) form (spec §6.2 "consecutive Llet ...
// nodes are collapsed for readability").
func (p Printer) writeLetChain(buf *bytes.Buffer, n Llet) {
	buf.WriteString("(let (")
	first := true
	cur := Expr(n)
	for {
		l, ok := cur.(Llet)
		if !ok {
			break
		}
		if !first {
			buf.WriteByte(' ')
		}
		first = false
		fmt.Fprintf(buf, "(%s ", atom(l.Name.Name))
		p.write(buf, l.E)
		buf.WriteByte(')')
		cur = l.Body
	}
	buf.WriteString(") ")
	p.write(buf, cur)
	buf.WriteByte(')')
}

// writeSequenceChain collapses adjacent Lsequence nodes the same way: the
// items of a nested Lsequence are written inline in one (seq ...) form.
func (p Printer) writeSequenceChain(buf *bytes.Buffer, n Lsequence) {
	buf.WriteString("(seq")
	p.writeSequenceItems(buf, n)
	buf.WriteByte(')')
}

func (p Printer) writeSequenceItems(buf *bytes.Buffer, n Lsequence) {
	items := append(append([]Expr{}, n.Exprs...), n.LastExpr)
	for _, e := range items {
		if inner, ok := e.(Lsequence); ok {
			p.writeSequenceItems(buf, inner)
			continue
		}
		buf.WriteByte(' ')
		p.write(buf, e)
	}
}

func (p Printer) writeClosure(buf *bytes.Buffer, c *Closure) {
	addr := "well_known_mut_rec"
	if c.Address.Kind == NormalAddr {
		addr = addrAtom(c.Address.Addr)
	}
	fmt.Fprintf(buf, "(closure %s %d (", addr, c.Tid)
	for i, v := range c.Captures {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(atom(v.Name))
	}
	buf.WriteString("))")
}

func (p Printer) writeCallTarget(buf *bytes.Buffer, t CallTarget) {
	switch t.Kind {
	case Dynamic:
		fmt.Fprintf(buf, "(dynamic %s)", atom(t.Var.Name))
	case StaticFn:
		fmt.Fprintf(buf, "(static %s)", addrAtom(t.Addr))
	case Object:
		buf.WriteString("(object ")
		p.write(buf, t.Obj)
		fmt.Fprintf(buf, " %d)", t.MethodIdx)
	}
}

func writeConst(buf *bytes.Buffer, v any) {
	switch x := v.(type) {
	case string:
		buf.WriteString(strconv.Quote(x))
	case nil:
		buf.WriteString("()")
	default:
		fmt.Fprintf(buf, "%v", x)
	}
}

// atom renders a bound-variable name as an opaque atom (spec §6.2
// "variables render as opaque atoms"): no structure beyond the raw name is
// exposed, callers must not parse it for meaning beyond equality.
func atom(name string) string { return name }

func addrAtom(a Address) string { return fmt.Sprintf("$%d", uint32(a)) }

func allocKindName(k AllocKind) string {
	switch k {
	case AllocTuple:
		return "tuple"
	case AllocStruct:
		return "struct"
	case AllocEnum:
		return "enum"
	case AllocObject:
		return "object"
	default:
		return "?"
	}
}

func getFieldKindName(k GetFieldKind) string {
	switch k {
	case GetTuple:
		return "tuple"
	case GetStruct:
		return "struct"
	case GetEnum:
		return "enum"
	case GetObject:
		return "object"
	default:
		return "?"
	}
}

func setFieldKindName(k SetFieldKind) string {
	switch k {
	case SetStruct:
		return "struct"
	case SetEnum:
		return "enum"
	default:
		return "?"
	}
}

func accessKindName(k ArrayAccessKind) string {
	switch k {
	case Safe:
		return "safe"
	case Unsafe:
		return "unsafe"
	case RevUnsafe:
		return "rev_unsafe"
	default:
		return "?"
	}
}
