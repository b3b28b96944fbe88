// Command shannon is the CLI front end for the Shannon interpreter
// (spec.md §6's "CLI surface (out of core)"): it compiles and runs one
// source file, then exits with the integer or string carried by the
// program's conventional queenBee.result variable.
//
// Grounded on the teacher's cmd/sentra/main.go: flag-free, single
// positional source-path argument, errors printed to stderr via
// log.New-backed diagnostics rather than a logging library (see
// DESIGN.md's ambient-stack section for why).
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"shannon/internal/compile"
	"shannon/internal/context"
	"shannon/internal/errors"
	"shannon/internal/stdlib"
	"shannon/internal/variant"
)

var diag = log.New(os.Stderr, "", 0)

func main() {
	if len(os.Args) != 2 {
		diag.Printf("usage: %s <source-file>", filepath.Base(os.Args[0]))
		os.Exit(103)
	}
	os.Exit(run(os.Args[1]))
}

// run compiles and executes path, returning the process exit code per
// spec.md §6: 0 for a void result, the ordinal value for an ordinal
// result, 102 (string printed to stderr first) for a string result, 103
// for anything else, 101 on an uncaught runtime error. An `exit` statement
// in the source overrides all of this with its own explicit code.
func run(path string) int {
	comp := compile.New([]string{".", filepath.Dir(path)})
	ctx := context.NewContext(comp)
	comp.AttachContext(ctx)
	ctx.RegisterModule(stdlib.DBModule())
	ctx.RegisterModule(stdlib.NetModule())

	result, err := ctx.Execute(path)
	if err != nil {
		if exit, ok := err.(*errors.Exit); ok {
			return exit.Code
		}
		diag.Printf("Error: %s", err.Error())
		return 101
	}

	switch result.Kind() {
	case variant.KindVoid:
		return 0
	case variant.KindOrd:
		return int(result.Ord())
	case variant.KindStr:
		fmt.Fprintln(os.Stderr, string(result.Bytes()))
		return 102
	default:
		return 103
	}
}
