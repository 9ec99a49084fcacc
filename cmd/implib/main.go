// Package main provides the implib CLI tool.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ZacharyZcR/implib"
	"github.com/ZacharyZcR/implib/internal/cli"
	"github.com/ZacharyZcR/implib/internal/verify"
	"github.com/fatih/color"
)

var (
	defPath       = flag.String("def", "", "path to the input .DEF module-definition file (required)")
	outPath       = flag.String("out", "", "path to write the generated import library (required)")
	machineFlag   = flag.String("machine", "amd64", "target machine: i386, armnt, amd64, arm64")
	flavorFlag    = flag.String("flavor", "msvc", "output flavor: msvc, gnu")
	deterministic = flag.Bool("deterministic", false, "zero member mtime/uid/gid for reproducible output")
	verbose       = flag.Bool("v", false, "list every exported symbol per member in the summary")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		red := color.New(color.FgRed, color.Bold)
		_, _ = red.Fprintf(os.Stderr, "\nerror: %v\n\n", err)
		os.Exit(1)
	}
}

func run() error {
	if *defPath == "" || *outPath == "" {
		printUsage()
		return fmt.Errorf("both -def and -out are required")
	}

	m, err := parseMachine(*machineFlag)
	if err != nil {
		return err
	}
	flavor, err := parseFlavor(*flavorFlag)
	if err != nil {
		return err
	}

	defText, err := os.ReadFile(*defPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", *defPath, err)
	}

	out, err := os.Create(*outPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", *outPath, err)
	}
	defer func() { _ = out.Close() }()

	importName, err := implib.Generate(string(defText), m, flavor, out, implib.Options{Deterministic: *deterministic})
	if err != nil {
		return fmt.Errorf("generating %s: %w", *outPath, err)
	}

	printSummary(importName, flavor, m, *outPath)
	return nil
}

func printSummary(importName string, flavor implib.Flavor, m implib.Machine, outPath string) {
	data, err := os.ReadFile(outPath)
	if err != nil {
		return
	}
	members, err := verify.ParseArchive(data)
	if err != nil {
		return
	}

	reporter := cli.NewReporter(importName, flavor.String(), m.String(), members)
	reporter.SetVerbose(*verbose)
	reporter.Print()
}

func parseMachine(s string) (implib.Machine, error) {
	switch strings.ToLower(s) {
	case "i386", "x86":
		return implib.I386, nil
	case "armnt", "arm":
		return implib.ARMNT, nil
	case "amd64", "x64", "x86_64":
		return implib.AMD64, nil
	case "arm64", "aarch64":
		return implib.ARM64, nil
	default:
		return 0, fmt.Errorf("unknown -machine %q (want i386, armnt, amd64, arm64)", s)
	}
}

func parseFlavor(s string) (implib.Flavor, error) {
	switch strings.ToLower(s) {
	case "msvc":
		return implib.MSVC, nil
	case "gnu":
		return implib.GNU, nil
	default:
		return 0, fmt.Errorf("unknown -flavor %q (want msvc, gnu)", s)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan, color.Bold)
	_, _ = cyan.Println("\nimplib - Windows import-library generator")

	fmt.Println("\nusage:")
	fmt.Println("  implib -def <file.def> -out <file.lib> [options]")
	fmt.Println("\noptions:")
	fmt.Println("  -def <path>          input .DEF module-definition file (required)")
	fmt.Println("  -out <path>          output import-library path (required)")
	fmt.Println("  -machine <name>      target machine: i386, armnt, amd64, arm64 (default amd64)")
	fmt.Println("  -flavor <name>       output flavor: msvc, gnu (default msvc)")
	fmt.Println("  -deterministic       zero member mtime/uid/gid for reproducible output")
	fmt.Println("  -v                   list every exported symbol per member in the summary")

	fmt.Println("\nexamples:")
	fmt.Println("  implib -def foo.def -out foo.lib")
	fmt.Println("  implib -def foo.def -out libfoo.dll.a -flavor gnu -machine i386")
	fmt.Println("  implib -def foo.def -out foo.lib -deterministic -v")
	fmt.Println()
}
