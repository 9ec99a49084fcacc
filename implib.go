// Package implib generates Windows import libraries from textual .DEF
// (module-definition) input: a GNU ar archive of PE/COFF object members that
// a linker consumes to resolve a DLL's exports, in either the MSVC
// short-import format or the GNU binutils/MinGW long-form stub format.
package implib

import (
	"fmt"
	"io"
	"time"

	"github.com/ZacharyZcR/implib/internal/arwriter"
	"github.com/ZacharyZcR/implib/internal/def"
	"github.com/ZacharyZcR/implib/internal/gnu"
	"github.com/ZacharyZcR/implib/internal/machine"
	"github.com/ZacharyZcR/implib/internal/msvc"
)

// Flavor selects which object factory produces the archive's members.
type Flavor int

const (
	// MSVC emits the short-import format consumed by link.exe: a single
	// import-descriptor object, a null-descriptor/null-thunk terminator
	// pair, and one short-import record per export.
	MSVC Flavor = iota
	// GNU emits the long-form stub-and-thunk format consumed by GNU ld:
	// a head and tail member bracketing one jump-stub object per export.
	GNU
)

// String returns the flavor's name as used in CLI flags and error messages.
func (f Flavor) String() string {
	switch f {
	case MSVC:
		return "msvc"
	case GNU:
		return "gnu"
	default:
		return fmt.Sprintf("flavor(%d)", int(f))
	}
}

// Machine re-exports the supported target architectures so that callers
// never need to import internal/machine directly.
type Machine = machine.Type

// Supported machine types.
const (
	I386  = machine.I386
	ARMNT = machine.ARMNT
	AMD64 = machine.AMD64
	ARM64 = machine.ARM64
)

// Options configures output determinism independent of flavor or machine.
type Options struct {
	// Deterministic zeroes every member header's mtime/uid/gid so that
	// identical input produces byte-identical output across runs.
	Deterministic bool
}

// Generate parses defText as .DEF module-definition text, builds the
// archive for the requested machine and flavor, and writes it to w, which
// must be positioned at offset 0 and support both sequential writes and
// random-access seeks (the writer back-patches symbol-table offsets as
// members are appended). It returns the parsed import name (the DLL
// filename named by the LIBRARY or NAME directive).
func Generate(defText string, m machine.Type, flavor Flavor, w io.WriteSeeker, opts Options) (string, error) {
	d, err := def.Parse([]byte(defText), m)
	if err != nil {
		return "", fmt.Errorf("implib: parse: %w", err)
	}
	return GenerateFromModuleDef(d, m, flavor, w, opts)
}

// GenerateFromModuleDef drives the same pipeline as Generate starting from
// an already-parsed ModuleDef, for callers that build or mutate one
// programmatically rather than from .DEF text. d is normalized in place
// (every ShortExport.ExtName is moved into Name and cleared) before the
// selected factory consumes it.
func GenerateFromModuleDef(d *def.ModuleDef, m machine.Type, flavor Flavor, w io.WriteSeeker, opts Options) (string, error) {
	if !m.Valid() {
		return "", fmt.Errorf("implib: unsupported machine type %v", m)
	}

	d.NormalizeExtNames()

	members, err := buildMembers(d, m, flavor)
	if err != nil {
		return "", err
	}

	arOpts := arwriter.Options{Deterministic: opts.Deterministic}
	if !opts.Deterministic {
		arOpts.ModTime = time.Now().Unix()
	}
	if err := arwriter.Write(w, members, arOpts); err != nil {
		return "", fmt.Errorf("implib: write archive: %w", err)
	}
	return d.ImportName, nil
}

func buildMembers(d *def.ModuleDef, m machine.Type, flavor Flavor) ([]arwriter.Member, error) {
	switch flavor {
	case MSVC:
		members, err := msvc.BuildMembers(d, m)
		if err != nil {
			return nil, fmt.Errorf("implib: msvc: %w", err)
		}
		return members, nil
	case GNU:
		members, err := gnu.BuildMembers(d, m)
		if err != nil {
			return nil, fmt.Errorf("implib: gnu: %w", err)
		}
		return members, nil
	default:
		return nil, fmt.Errorf("implib: unknown flavor %v", flavor)
	}
}
