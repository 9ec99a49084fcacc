package def

import (
	"errors"
	"testing"

	"github.com/ZacharyZcR/implib/internal/machine"
)

func TestParseEmpty(t *testing.T) {
	got, err := Parse([]byte(""), machine.AMD64)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := &ModuleDef{}
	if len(got.Exports) != 0 || got.ImportName != "" || got.ImageBase != 0 {
		t.Fatalf("Parse(\"\") = %+v, want zero value %+v", got, want)
	}
}

func TestParseCommentHasNoEffect(t *testing.T) {
	withComment, err := Parse([]byte(" ; leading\nLIBRARY foo.dll\n; trailing\n"), machine.AMD64)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	without, err := Parse([]byte("LIBRARY foo.dll\n"), machine.AMD64)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if withComment.ImportName != without.ImportName {
		t.Fatalf("comment affected result: %q vs %q", withComment.ImportName, without.ImportName)
	}
}

func TestLibraryAndNameEquivalent(t *testing.T) {
	lib, err := Parse([]byte("LIBRARY x"), machine.AMD64)
	if err != nil {
		t.Fatalf("Parse(LIBRARY) error = %v", err)
	}
	name, err := Parse([]byte("NAME x"), machine.AMD64)
	if err != nil {
		t.Fatalf("Parse(NAME) error = %v", err)
	}
	if lib.ImportName != "x" || name.ImportName != "x" {
		t.Fatalf("ImportName = %q / %q, want \"x\" both", lib.ImportName, name.ImportName)
	}
}

func TestParseExportsDataFlag(t *testing.T) {
	def, err := Parse([]byte("EXPORTS\n foo\n bar DATA"), machine.AMD64)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(def.Exports) != 2 {
		t.Fatalf("len(Exports) = %d, want 2", len(def.Exports))
	}
	if def.Exports[0].Name != "foo" || def.Exports[0].Data {
		t.Errorf("foo = %+v, want Name=foo Data=false", def.Exports[0])
	}
	if def.Exports[1].Name != "bar" || !def.Exports[1].Data {
		t.Errorf("bar = %+v, want Name=bar Data=true", def.Exports[1])
	}
}

func TestI386Decoration(t *testing.T) {
	tests := []struct {
		def  string
		want string
	}{
		{"EXPORTS\nfoo", "_foo"},
		{"EXPORTS\n@bar", "@bar"},
	}
	for _, tt := range tests {
		got, err := Parse([]byte(tt.def), machine.I386)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", tt.def, err)
		}
		if len(got.Exports) != 1 || got.Exports[0].Name != tt.want {
			t.Errorf("Parse(%q) exports = %+v, want Name=%q", tt.def, got.Exports, tt.want)
		}
	}
}

func TestParseOrdinalAndNoname(t *testing.T) {
	def, err := Parse([]byte("LIBRARY k.dll\nEXPORTS\nx @ 7 NONAME\n"), machine.AMD64)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(def.Exports) != 1 {
		t.Fatalf("len(Exports) = %d, want 1", len(def.Exports))
	}
	e := def.Exports[0]
	if e.Ordinal != 7 || !e.NoName {
		t.Errorf("export = %+v, want Ordinal=7 NoName=true", e)
	}
}

func TestParseAlias(t *testing.T) {
	def, err := Parse([]byte("EXPORTS\n alpha == beta\n"), machine.AMD64)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(def.Exports) != 1 || def.Exports[0].AliasTarget != "beta" {
		t.Fatalf("exports = %+v, want one export with AliasTarget=beta", def.Exports)
	}
}

func TestParseExtName(t *testing.T) {
	def, err := Parse([]byte("EXPORTS\n pub = internal\n"), machine.AMD64)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	e := def.Exports[0]
	if e.Name != "internal" || e.ExtName != "pub" {
		t.Fatalf("export = %+v, want Name=internal ExtName=pub", e)
	}
	def.NormalizeExtNames()
	e = def.Exports[0]
	if e.Name != "pub" || e.ExtName != "" {
		t.Fatalf("after normalize: export = %+v, want Name=pub ExtName=\"\"", e)
	}
}

func TestParseHeapStackSize(t *testing.T) {
	def, err := Parse([]byte("HEAPSIZE 100, 50\nSTACKSIZE 200\n"), machine.AMD64)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if def.HeapReserve != 100 || def.HeapCommit != 50 {
		t.Errorf("heap = %d/%d, want 100/50", def.HeapReserve, def.HeapCommit)
	}
	if def.StackReserve != 200 || def.StackCommit != 0 {
		t.Errorf("stack = %d/%d, want 200/0", def.StackReserve, def.StackCommit)
	}
}

func TestParseVersion(t *testing.T) {
	def, err := Parse([]byte("VERSION 3.14\n"), machine.AMD64)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if def.MajorImageVersion != 3 || def.MinorImageVersion != 14 {
		t.Errorf("version = %d.%d, want 3.14", def.MajorImageVersion, def.MinorImageVersion)
	}

	def, err = Parse([]byte("VERSION 5\n"), machine.AMD64)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if def.MajorImageVersion != 5 || def.MinorImageVersion != 0 {
		t.Errorf("version = %d.%d, want 5.0", def.MajorImageVersion, def.MinorImageVersion)
	}
}

func TestParseLibraryWithBase(t *testing.T) {
	def, err := Parse([]byte("LIBRARY foo.dll BASE=268435456\n"), machine.AMD64)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if def.ImportName != "foo.dll" || def.ImageBase != 268435456 {
		t.Fatalf("def = %+v, want ImportName=foo.dll ImageBase=268435456", def)
	}
}

func TestParseUnknownDirective(t *testing.T) {
	_, err := Parse([]byte("BOGUS foo\n"), machine.AMD64)
	if !errors.Is(err, ErrUnknownDirective) {
		t.Fatalf("Parse() error = %v, want ErrUnknownDirective", err)
	}
}
