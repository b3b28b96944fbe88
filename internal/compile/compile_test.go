package compile

import (
	"os"
	"path/filepath"
	"testing"

	"shannon/internal/context"
	"shannon/internal/variant"
)

// writeSource creates name under dir (appending sourceExt unless already
// present) and returns its full path.
func writeSource(t *testing.T, dir, name, body string) string {
	t.Helper()
	if filepath.Ext(name) == "" {
		name += sourceExt
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writeSource(%s): %v", name, err)
	}
	return path
}

// Grounded on the teacher's internal/vm/module_loader_test.go style of
// round-tripping a small source tree through the full loader, here
// compile -> context.Execute end to end.

func TestCompileAndExecuteSingleModule(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "main", `queenBee.result = 7;`)

	comp := New([]string{dir})
	ctx := context.NewContext(comp)
	comp.AttachContext(ctx)

	result, err := ctx.Execute(path)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Kind() != variant.KindOrd || result.Ord() != 7 {
		t.Fatalf("expected result ord 7, got %v %v", result.Kind(), result.Ord())
	}
}

// A module importing another module's function must resolve and run it
// across the file boundary, and the imported module must end up
// registered in the context even though nothing ever calls
// ctx.GetModule for it directly (the nested-import registration gap
// AttachContext closes).
func TestCompileAndExecuteWithImport(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "lib", `
fn triple(x: int): int {
	return x * 3;
}
`)
	mainPath := writeSource(t, dir, "main", `
import "lib";
queenBee.result = triple(4);
`)

	comp := New([]string{dir})
	ctx := context.NewContext(comp)
	comp.AttachContext(ctx)

	result, err := ctx.Execute(mainPath)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Kind() != variant.KindOrd || result.Ord() != 12 {
		t.Fatalf("expected result ord 12, got %v %v", result.Kind(), result.Ord())
	}

	mod, err := ctx.GetModule("lib")
	if err != nil {
		t.Fatalf("GetModule(lib): %v", err)
	}
	if mod.Name != "lib" {
		t.Fatalf("GetModule(lib): got module named %q", mod.Name)
	}
}

func TestReadSourceMissingFileFails(t *testing.T) {
	comp := New([]string{t.TempDir()})
	if _, err := comp.Load("does-not-exist"); err == nil {
		t.Fatalf("Load: expected an error for a missing file")
	}
}

func TestModuleNameStripsExtension(t *testing.T) {
	if got := moduleName("/a/b/main.sn"); got != "main" {
		t.Fatalf("moduleName: got %q, want %q", got, "main")
	}
}

func TestCandidatePathsAppendsSourceExt(t *testing.T) {
	comp := New([]string{"/root", "/other"})
	got := comp.candidatePaths("lib")
	want := []string{
		filepath.Join("/root", "lib"), filepath.Join("/root", "lib"+sourceExt),
		filepath.Join("/other", "lib"), filepath.Join("/other", "lib"+sourceExt),
	}
	if len(got) != len(want) {
		t.Fatalf("candidatePaths: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("candidatePaths[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
}
