package gnu

import (
	"bytes"
	"debug/pe"
	"strings"
	"testing"

	"github.com/ZacharyZcR/implib/internal/def"
	"github.com/ZacharyZcR/implib/internal/machine"
)

func sampleDef() *def.ModuleDef {
	return &def.ModuleDef{
		ImportName: "foo.dll",
		Exports: []def.ShortExport{
			{Name: "PlainFunc"},
			{Name: "DataVar", Data: true},
			{Name: "hidden", Private: true},
		},
	}
}

func TestMemberCountMatchesNPlusTwo(t *testing.T) {
	d := sampleDef()
	members, err := BuildMembers(d, machine.AMD64)
	if err != nil {
		t.Fatalf("BuildMembers() error = %v", err)
	}
	// non-private exports: PlainFunc, DataVar -> N=2; + head + tail
	want := 2 + 2
	if len(members) != want {
		t.Fatalf("len(members) = %d, want %d", len(members), want)
	}
}

func TestMemberOrderIsHeadThenStubsThenTail(t *testing.T) {
	d := sampleDef()
	members, err := BuildMembers(d, machine.AMD64)
	if err != nil {
		t.Fatalf("BuildMembers() error = %v", err)
	}
	if !strings.HasSuffix(members[0].Name, "_h.o") {
		t.Errorf("members[0].Name = %q, want head (*_h.o)", members[0].Name)
	}
	if !strings.HasSuffix(members[1].Name, "_s00000.o") {
		t.Errorf("members[1].Name = %q, want stub seq 0", members[1].Name)
	}
	if !strings.HasSuffix(members[2].Name, "_s00001.o") {
		t.Errorf("members[2].Name = %q, want stub seq 1", members[2].Name)
	}
	if !strings.HasSuffix(members[3].Name, "_t.o") {
		t.Errorf("members[3].Name = %q, want tail (*_t.o)", members[3].Name)
	}
}

func TestMangledFilenameHasNoDotAInfix(t *testing.T) {
	d := sampleDef()
	members, err := BuildMembers(d, machine.AMD64)
	if err != nil {
		t.Fatalf("BuildMembers() error = %v", err)
	}
	want := "foo_dll_h.o"
	if members[0].Name != want {
		t.Errorf("head member name = %q, want %q", members[0].Name, want)
	}
}

func TestStubObjectParsesAsCOFF(t *testing.T) {
	exp := &def.ShortExport{Name: "PlainFunc"}
	member, err := buildStub(exp, "foo_dll", 0, machine.AMD64)
	if err != nil {
		t.Fatalf("buildStub() error = %v", err)
	}
	f, err := pe.NewFile(bytes.NewReader(member.Data))
	if err != nil {
		t.Fatalf("debug/pe could not parse generated stub: %v", err)
	}
	defer f.Close()
	if len(member.Symbols) != 2 || member.Symbols[0] != "PlainFunc" || member.Symbols[1] != "__imp_PlainFunc" {
		t.Errorf("exposed symbols = %v", member.Symbols)
	}
}

func TestStubJumpTemplateBytes(t *testing.T) {
	exp := &def.ShortExport{Name: "PlainFunc"}
	member, err := buildStub(exp, "foo_dll", 0, machine.AMD64)
	if err != nil {
		t.Fatalf("buildStub() error = %v", err)
	}
	f, err := pe.NewFile(bytes.NewReader(member.Data))
	if err != nil {
		t.Fatalf("debug/pe could not parse generated stub: %v", err)
	}
	defer f.Close()
	text, err := f.Section(".text").Data()
	if err != nil {
		t.Fatalf(".text data: %v", err)
	}
	want := []byte{0xff, 0x25, 0, 0, 0, 0, 0x90, 0x90}
	if !bytes.Equal(text, want) {
		t.Errorf(".text = % x, want % x", text, want)
	}
}

func TestStubDataExportHasNoCodeSymbol(t *testing.T) {
	exp := &def.ShortExport{Name: "DataVar", Data: true}
	member, err := buildStub(exp, "foo_dll", 0, machine.AMD64)
	if err != nil {
		t.Fatalf("buildStub() error = %v", err)
	}
	if len(member.Symbols) != 1 || member.Symbols[0] != "__imp_DataVar" {
		t.Errorf("exposed symbols = %v, want just __imp_DataVar", member.Symbols)
	}
}

func TestHeadObjectParsesAsCOFF(t *testing.T) {
	member, err := buildHead("foo_dll", machine.AMD64)
	if err != nil {
		t.Fatalf("buildHead() error = %v", err)
	}
	f, err := pe.NewFile(bytes.NewReader(member.Data))
	if err != nil {
		t.Fatalf("debug/pe could not parse generated head object: %v", err)
	}
	defer f.Close()
	if len(member.Symbols) != 1 || member.Symbols[0] != "_head_foo_dll" {
		t.Errorf("exposed symbols = %v", member.Symbols)
	}
}

func TestTailObjectParsesAsCOFF(t *testing.T) {
	member, err := buildTail("foo_dll", "foo.dll", machine.AMD64)
	if err != nil {
		t.Fatalf("buildTail() error = %v", err)
	}
	f, err := pe.NewFile(bytes.NewReader(member.Data))
	if err != nil {
		t.Fatalf("debug/pe could not parse generated tail object: %v", err)
	}
	defer f.Close()
	if len(member.Symbols) != 1 || member.Symbols[0] != "foo_dll_iname" {
		t.Errorf("exposed symbols = %v", member.Symbols)
	}
}

func TestHeadObjectIdataThunkSectionsAreEmpty(t *testing.T) {
	member, err := buildHead("foo_dll", machine.AMD64)
	if err != nil {
		t.Fatalf("buildHead() error = %v", err)
	}
	f, err := pe.NewFile(bytes.NewReader(member.Data))
	if err != nil {
		t.Fatalf("debug/pe could not parse generated head object: %v", err)
	}
	defer f.Close()

	for _, name := range []string{".idata$5", ".idata$4"} {
		sec := f.Section(name)
		if sec == nil {
			t.Fatalf("section %s not found", name)
		}
		if sec.Size != 0 {
			t.Errorf("section %s size = %d, want 0 (terminator lives only in the tail)", name, sec.Size)
		}
	}
}

func TestStubNoNameStillEmitsIdata6Section(t *testing.T) {
	exp := &def.ShortExport{Name: "PlainFunc", Ordinal: 7, NoName: true}
	member, err := buildStub(exp, "foo_dll", 0, machine.AMD64)
	if err != nil {
		t.Fatalf("buildStub() error = %v", err)
	}
	f, err := pe.NewFile(bytes.NewReader(member.Data))
	if err != nil {
		t.Fatalf("debug/pe could not parse generated stub: %v", err)
	}
	defer f.Close()

	sec := f.Section(".idata$6")
	if sec == nil {
		t.Fatal(".idata$6 section missing for a NONAME export")
	}
	if sec.Size != 0 {
		t.Errorf(".idata$6 size = %d, want 0 for a NONAME export", sec.Size)
	}

	found := false
	for _, sym := range f.COFFSymbols {
		if name, err := sym.FullName(f.StringTable); err == nil && name == ".idata$6" {
			found = true
		}
	}
	if !found {
		t.Error(".idata$6 section symbol missing for a NONAME export")
	}
}

func TestStubIdata6PayloadHasNoAlignmentPadding(t *testing.T) {
	exp := &def.ShortExport{Name: "Four", Ordinal: 1} // 2 + len("Four") + 1 = 7, odd
	member, err := buildStub(exp, "foo_dll", 0, machine.AMD64)
	if err != nil {
		t.Fatalf("buildStub() error = %v", err)
	}
	f, err := pe.NewFile(bytes.NewReader(member.Data))
	if err != nil {
		t.Fatalf("debug/pe could not parse generated stub: %v", err)
	}
	defer f.Close()

	sec := f.Section(".idata$6")
	if sec == nil {
		t.Fatal(".idata$6 section missing")
	}
	want := uint32(2 + len("Four") + 1)
	if sec.Size != want {
		t.Errorf(".idata$6 SizeOfRawData = %d, want %d (no extra alignment byte)", sec.Size, want)
	}
}

func TestValidateNamesRejectsNUL(t *testing.T) {
	d := &def.ModuleDef{ImportName: "foo.dll", Exports: []def.ShortExport{{Name: "a\x00b"}}}
	if _, err := BuildMembers(d, machine.AMD64); err == nil {
		t.Fatal("expected error for NUL byte in export name, got nil")
	}
}
