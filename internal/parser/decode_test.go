package parser

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"github.com/mckib2/cythonator/internal/decl"
	"github.com/mckib2/cythonator/internal/emitter"
	"github.com/mckib2/cythonator/internal/typemap"
)

const fixtureMain = "/src/simple.hpp"

func loadFixture(t testing.TB, name string) map[string][]byte {
	t.Helper()
	ar, err := txtar.ParseFile("testdata/" + name)
	require.NoError(t, err)
	files := make(map[string][]byte, len(ar.Files))
	for _, f := range ar.Files {
		files[f.Name] = f.Data
	}
	return files
}

func decodeFixture(t *testing.T, withSource bool) *decl.Header {
	t.Helper()
	files := loadFixture(t, "simple.txtar")
	var src []byte
	if withSource {
		src = files["simple.hpp"]
	}
	h, err := Decode(bytes.NewReader(files["ast.json"]), fixtureMain, src)
	require.NoError(t, err)
	return h
}

func names(decls []decl.Decl) []string {
	out := make([]string, len(decls))
	for i, d := range decls {
		out[i] = string(d.Kind()) + ":" + d.DeclName()
	}
	return out
}

func TestDecode_DeclarationOrder(t *testing.T) {
	h := decodeFixture(t, true)

	assert.Equal(t, fixtureMain, h.Path)
	assert.Equal(t, []string{
		"function:dep_function",
		"function:is_ready",
		"function:unsigned_short_int_function_void",
		"function:unsigned_short_int_ref_function_void",
		"function:void_function_int",
		"function:printf_like",
		"aggregate:myStruct",
		"aggregate:myClass",
		"aggregate:",
		"typedef:Status",
		"typedef:myInt",
		"template:templated_int_function",
		"namespace:geometry",
		"function:void_function_int",
	}, names(h.Decls))
}

func TestDecode_WrittenSpellings(t *testing.T) {
	h := decodeFixture(t, true)

	usi := h.Decls[2].(*decl.Function)
	assert.Equal(t, "unsigned short int", usi.ReturnType.Spelling)
	assert.Empty(t, usi.Params)

	ref := h.Decls[3].(*decl.Function)
	assert.Equal(t, "unsigned short int&", ref.ReturnType.Spelling)
	assert.True(t, ref.ReturnType.IsReference)

	ready := h.Decls[1].(*decl.Function)
	assert.Equal(t, "_Bool", ready.ReturnType.Spelling)
	require.Len(t, ready.Params, 2)
	assert.Equal(t, decl.Parameter{Type: decl.NewNativeType("int", ""), Name: "timeout"}, ready.Params[0])
	assert.Equal(t, "_Bool", ready.Params[1].Type.Spelling)
	assert.Empty(t, ready.Params[1].Name)
}

func TestDecode_CanonicalSpellingsWithoutSource(t *testing.T) {
	h := decodeFixture(t, false)

	assert.Equal(t, "unsigned short", h.Decls[2].(*decl.Function).ReturnType.Spelling)
	assert.Equal(t, "unsigned short &", h.Decls[3].(*decl.Function).ReturnType.Spelling)
	ready := h.Decls[1].(*decl.Function)
	assert.Equal(t, "bool", ready.ReturnType.Spelling)
	assert.Equal(t, "bool", ready.Params[1].Type.Spelling)
}

func TestDecode_Functions(t *testing.T) {
	h := decodeFixture(t, true)

	dep := h.Decls[0].(*decl.Function)
	assert.Equal(t, decl.Source{File: "/src/dep.h", Line: 2, Included: true}, dep.Source)
	assert.Equal(t, fixtureMain, dep.Header)

	first := h.Decls[4].(*decl.Function)
	assert.False(t, first.Redeclaration)
	assert.Equal(t, decl.Source{File: fixtureMain, Line: 9}, first.Source)
	assert.Equal(t, []decl.Parameter{{Type: decl.NewNativeType("int", ""), Name: "a"}}, first.Params)

	again := h.Decls[13].(*decl.Function)
	assert.True(t, again.Redeclaration)
	assert.Equal(t, 37, again.Source.Line)

	printf := h.Decls[5].(*decl.Function)
	assert.True(t, printf.Variadic)
	require.Len(t, printf.Params, 1)
	assert.Equal(t, "const char *", printf.Params[0].Type.Spelling)
	assert.True(t, printf.Params[0].Type.IsPointer)
	assert.True(t, printf.Params[0].Type.IsConst)
}

func TestDecode_Records(t *testing.T) {
	h := decodeFixture(t, true)

	myStruct := h.Decls[6].(*decl.Aggregate)
	assert.True(t, myStruct.Complete, "definition completes the forward declaration")
	assert.Equal(t, decl.TagStruct, myStruct.Tag)
	assert.Equal(t, []decl.Field{
		{Name: "intField", Type: decl.NewNativeType("int", "")},
		{Name: "dblField", Type: decl.NewNativeType("double", "")},
	}, myStruct.Fields)
	assert.Equal(t, 12, myStruct.Source.Line)

	myClass := h.Decls[7].(*decl.Aggregate)
	assert.Equal(t, decl.TagClass, myClass.Tag)
	assert.Equal(t, []decl.Field{{Name: "visible", Type: decl.NewNativeType("float", "")}}, myClass.Fields)

	anon := h.Decls[8].(*decl.Aggregate)
	assert.Empty(t, anon.Name)
	assert.Equal(t, []decl.Field{{Name: "code", Type: decl.NewNativeType("int", "")}}, anon.Fields)
}

func TestDecode_Typedefs(t *testing.T) {
	h := decodeFixture(t, true)

	status := h.Decls[9].(*decl.Typedef)
	assert.Equal(t, "Status", status.Alias)
	assert.Same(t, h.Decls[8].(*decl.Aggregate), status.Aggregate)
	assert.True(t, status.Underlying.IsPrimitiveAlias)

	myInt := h.Decls[10].(*decl.Typedef)
	assert.Nil(t, myInt.Aggregate)
	assert.Equal(t, "int", myInt.Underlying.Spelling)
}

func TestDecode_TemplatesAndNamespaces(t *testing.T) {
	h := decodeFixture(t, true)

	tmpl := h.Decls[11].(*decl.Template)
	assert.Equal(t, "FunctionTemplateDecl", tmpl.NodeKind)
	assert.Equal(t, []string{"T"}, tmpl.Params)

	ns := h.Decls[12].(*decl.Namespace)
	assert.Equal(t, "geometry", ns.Name)
	require.Len(t, ns.Decls, 1)
	area := ns.Decls[0].(*decl.Function)
	assert.Equal(t, "double", area.ReturnType.Spelling)
	assert.Equal(t, []string{"width", "height"}, []string{area.Params[0].Name, area.Params[1].Name})
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "malformed", input: `{"kind": "TranslationUnitDecl", "inner": [`, want: "decode clang AST"},
		{name: "empty", input: ``, want: "decode clang AST"},
		{name: "wrong root", input: `{"kind": "FunctionDecl"}`, want: "TranslationUnitDecl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input), fixtureMain, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDecode_SkipsImplicitAndUnknownKinds(t *testing.T) {
	input := `{"kind": "TranslationUnitDecl", "inner": [
		{"id": "0x1", "kind": "TypedefDecl", "isImplicit": true, "name": "__builtin_va_list", "loc": {}},
		{"id": "0x2", "kind": "VarDecl", "name": "counter", "loc": {"file": "/src/a.h", "line": 1}},
		{"id": "0x3", "kind": "EnumDecl", "name": "Color", "loc": {"line": 2}},
		{"id": "0x4", "kind": "FunctionDecl", "name": "f", "type": {"qualType": "void (int, ...)"}, "loc": {"line": 3},
		 "inner": [{"id": "0x5", "kind": "ParmVarDecl", "type": {"qualType": "int"}, "loc": {}}]}
	]}`

	h, err := Decode(strings.NewReader(input), "/src/a.h", nil)
	require.NoError(t, err)
	require.Len(t, h.Decls, 1)

	f := h.Decls[0].(*decl.Function)
	assert.True(t, f.Variadic, "ellipsis in the type marks the function variadic")
	assert.Equal(t, "void", f.ReturnType.Spelling)
	assert.Equal(t, decl.Source{File: "/src/a.h", Line: 3}, f.Source)
	require.Len(t, f.Params, 1)
	assert.Equal(t, "int", f.Params[0].Type.Spelling)
}

func TestLocTracker_Decompresses(t *testing.T) {
	inc := &fileRef{File: "/src/main.h"}
	locs := []*loc{
		{File: "/src/dep.h", Line: 4, IncludedFrom: inc},
		{Col: 3},
		{Line: 9},
		{},
		{File: "/src/main.h", Line: 1},
		{ExpansionLoc: &loc{Line: 5}, SpellingLoc: &loc{File: "/src/macros.h", Line: 20}},
		{Col: 1},
	}

	tr := &locTracker{}
	for _, l := range locs {
		tr.fill(l)
	}

	assert.Equal(t, "/src/dep.h", locs[1].File)
	assert.Equal(t, uint(4), locs[1].Line)
	assert.Same(t, inc, locs[1].IncludedFrom)
	assert.Equal(t, "/src/dep.h", locs[2].File)
	assert.Equal(t, uint(9), locs[2].Line)
	assert.True(t, locs[3].empty(), "invalid locations stay empty")
	assert.Nil(t, locs[4].IncludedFrom)
	assert.Equal(t, "/src/macros.h", locs[5].ExpansionLoc.File)
	assert.Equal(t, "/src/macros.h", locs[6].File)
	assert.Equal(t, uint(5), locs[6].Line)
}

const stdboolSource = "#include <stdbool.h>\nconst bool f(const bool flag);\nstatic bool g(void);\n"

const stdboolAST = `{
 "kind": "TranslationUnitDecl",
 "inner": [
  {
   "id": "0x10", "kind": "FunctionDecl", "name": "f",
   "loc": {"offset": 32, "file": "/src/p.h", "line": 2, "col": 12, "tokLen": 1},
   "range": {"begin": {"offset": 21, "col": 1, "tokLen": 5}, "end": {"offset": 49, "col": 29, "tokLen": 1}},
   "type": {"qualType": "const _Bool (const _Bool)"},
   "inner": [
    {
     "id": "0x11", "kind": "ParmVarDecl", "name": "flag",
     "loc": {"offset": 45, "col": 25, "tokLen": 4},
     "range": {"begin": {"offset": 34, "col": 14, "tokLen": 5}, "end": {"offset": 45, "col": 25, "tokLen": 4}},
     "type": {"qualType": "const _Bool"}
    }
   ]
  },
  {
   "id": "0x20", "kind": "FunctionDecl", "name": "g", "storageClass": "static",
   "loc": {"offset": 64, "line": 3, "col": 13, "tokLen": 1},
   "range": {"begin": {"offset": 52, "col": 1, "tokLen": 6}, "end": {"offset": 70, "col": 19, "tokLen": 1}},
   "type": {"qualType": "_Bool (void)"}
  }
 ]
}`

func TestDecode_StdboolKeepsCanonicalBool(t *testing.T) {
	h, err := Decode(strings.NewReader(stdboolAST), "/src/p.h", []byte(stdboolSource))
	require.NoError(t, err)
	require.Len(t, h.Decls, 2)

	f := h.Decls[0].(*decl.Function)
	assert.Equal(t, "const _Bool", f.ReturnType.Spelling)
	require.Len(t, f.Params, 1)
	assert.Equal(t, "const _Bool", f.Params[0].Type.Spelling)
	assert.Equal(t, "_Bool", h.Decls[1].(*decl.Function).ReturnType.Spelling)

	res := emitter.New(typemap.New(typemap.DefaultRules()...), emitter.Options{}).Emit(h, "")
	assert.Equal(t, []string{typemap.BoolImport}, res.Imports)
	assert.Equal(t,
		"cdef extern from \"/src/p.h\" nogil:\n"+
			"    const bool f(const bool flag)\n"+
			"cdef extern from \"/src/p.h\" nogil:\n"+
			"    bool g()\n",
		res.Decls)
}
