// Package cli formats and prints a summary of a generated import-library
// archive.
package cli

import (
	"fmt"
	"strings"

	"github.com/ZacharyZcR/implib/internal/verify"
	"github.com/fatih/color"
)

// Reporter formats and prints an import-library archive summary.
type Reporter struct {
	importName string
	flavor     string
	machine    string
	members    []verify.ArchiveMember
	verbose    bool
}

// NewReporter creates a reporter for an archive's parsed members.
func NewReporter(importName, flavor, machine string, members []verify.ArchiveMember) *Reporter {
	return &Reporter{importName: importName, flavor: flavor, machine: machine, members: members}
}

// SetVerbose enables verbose mode (list every exported symbol per member,
// not just the first one).
func (r *Reporter) SetVerbose(verbose bool) {
	r.verbose = verbose
}

// Print outputs the complete archive summary.
func (r *Reporter) Print() {
	r.printHeader()
	r.printBasicInfo()
	r.printMembers()
}

func (r *Reporter) printHeader() {
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Println("\n╔════════════════════════════════════════╗")
	cyan.Println("║         implib archive report           ║")
	cyan.Println("╚════════════════════════════════════════╝")
}

func (r *Reporter) printBasicInfo() {
	yellow := color.New(color.FgYellow, color.Bold)
	yellow.Println("\n[basic info]")
	fmt.Printf("  %-14s: %s\n", "import name", r.importName)
	fmt.Printf("  %-14s: %s\n", "flavor", r.flavor)
	fmt.Printf("  %-14s: %s\n", "machine", r.machine)
	fmt.Printf("  %-14s: %d\n", "members", len(r.members))
}

func (r *Reporter) printMembers() {
	yellow := color.New(color.FgYellow, color.Bold)
	yellow.Printf("\n[members] (%d total)\n", len(r.members))

	if len(r.members) == 0 {
		fmt.Println("  no members")
		return
	}

	fmt.Println(strings.Repeat("-", 80))
	fmt.Printf("  %-3s %-32s %-10s %s\n", "#", "name", "size", "symbols")
	fmt.Println(strings.Repeat("-", 80))

	for i, m := range r.members {
		summary, err := verify.ParseObject(m.Data)
		var symbolCount int
		var firstSymbol string
		var names []string
		if err == nil {
			for _, s := range summary.Symbols {
				if s.StorageClass == 2 { // IMAGE_SYM_CLASS_EXTERNAL
					symbolCount++
					names = append(names, s.Name)
					if firstSymbol == "" {
						firstSymbol = s.Name
					}
				}
			}
		}

		green := color.New(color.FgGreen)
		green.Printf("  %3d. %-32s %-10d", i+1, m.Name, len(m.Data))
		if symbolCount == 0 {
			fmt.Println(" (no external symbols)")
			continue
		}
		if r.verbose {
			fmt.Printf(" %s\n", strings.Join(names, ", "))
		} else if symbolCount == 1 {
			fmt.Printf(" %s\n", firstSymbol)
		} else {
			fmt.Printf(" %s (+%d more)\n", firstSymbol, symbolCount-1)
		}
	}
	fmt.Println(strings.Repeat("-", 80))
}
