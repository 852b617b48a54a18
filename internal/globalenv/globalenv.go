// Package globalenv models the Global_env collaborator (spec §6.1),
// consulted by IntrinsicRewriter for op_as_view, length, and polymorphic
// record field access rewrites.
package globalenv

import "github.com/moonbitlang/moonbit-compiler/internal/clamtype"

type MethodInfo struct {
	Owner      string
	Name       string
	Sig        clamtype.FnSig
	Intrinsic  string // "" if not intrinsic-tagged
}

type TypeInfo struct {
	Path   string
	Fields []clamtype.Field
	IsEnum bool
}

// Env is the interface consumed from the front-end (spec §6.1).
type Env interface {
	FindDotMethod(typeName, methodName string) []MethodInfo
	FindAllTypeByPath(typePath string) (TypeInfo, bool)
}

// Static is a minimal in-memory Env, a test double standing in for the
// real type-checker's global symbol table (spec §10).
type Static struct {
	Methods map[[2]string][]MethodInfo
	Types   map[string]TypeInfo
}

func NewStatic() *Static {
	return &Static{
		Methods: make(map[[2]string][]MethodInfo),
		Types:   make(map[string]TypeInfo),
	}
}

func (s *Static) AddMethod(typeName, methodName string, info MethodInfo) {
	key := [2]string{typeName, methodName}
	s.Methods[key] = append(s.Methods[key], info)
}

func (s *Static) AddType(path string, info TypeInfo) { s.Types[path] = info }

func (s *Static) FindDotMethod(typeName, methodName string) []MethodInfo {
	return s.Methods[[2]string{typeName, methodName}]
}

func (s *Static) FindAllTypeByPath(typePath string) (TypeInfo, bool) {
	info, ok := s.Types[typePath]
	return info, ok
}
