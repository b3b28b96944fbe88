package symbols

import "testing"

func TestDeepFindWalksOutward(t *testing.T) {
	root := NewScope("module", nil)
	root.IsModule = true
	inner := NewScope("block", root)

	must(t, root.Define(&Symbol{Name: "x", Kind: SymVariable, VarKind: VarSelf}))

	sym, err := inner.DeepFind("x")
	if err != nil {
		t.Fatalf("expected to find x via outer scope: %v", err)
	}
	if sym.VarKind != VarSelf {
		t.Fatalf("wrong symbol found")
	}
}

func TestDeepFindConsultsModuleImportsLast(t *testing.T) {
	imported := NewScope("other", nil)
	must(t, imported.Define(&Symbol{Name: "shared", Kind: SymVariable, VarKind: VarSelf}))

	root := NewScope("module", nil)
	root.IsModule = true
	root.Imports = append(root.Imports, imported)

	if _, err := root.DeepFind("shared"); err != nil {
		t.Fatalf("expected import lookup to succeed: %v", err)
	}
	// A name local to the module shadows the same name in an import.
	must(t, root.Define(&Symbol{Name: "shared", Kind: SymVariable, VarKind: VarLocal}))
	sym, _ := root.DeepFind("shared")
	if sym.VarKind != VarLocal {
		t.Fatal("module-local definition should shadow the imported one")
	}
}

func TestDuplicateDefinition(t *testing.T) {
	s := NewScope("s", nil)
	must(t, s.Define(&Symbol{Name: "a", Kind: SymVariable}))
	if err := s.Define(&Symbol{Name: "a", Kind: SymVariable}); err == nil {
		t.Fatal("expected Duplicate error")
	} else if _, ok := err.(*Duplicate); !ok {
		t.Fatalf("wrong error type: %T", err)
	}
}

func TestUnknownIdent(t *testing.T) {
	s := NewScope("s", nil)
	if _, err := s.DeepFind("nope"); err == nil {
		t.Fatal("expected UnknownIdent error")
	} else if _, ok := err.(*UnknownIdent); !ok {
		t.Fatalf("wrong error type: %T", err)
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
