package def

import (
	"testing"

	"github.com/ZacharyZcR/implib/internal/machine"
)

func TestImportType(t *testing.T) {
	tests := []struct {
		name string
		e    ShortExport
		want ImportType
	}{
		{"code by default", ShortExport{Name: "foo"}, ImportCode},
		{"data wins", ShortExport{Name: "foo", Data: true, Constant: true}, ImportData},
		{"constant", ShortExport{Name: "foo", Constant: true}, ImportConst},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.e.ImportType(); got != tt.want {
				t.Errorf("ImportType() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestImportNameType(t *testing.T) {
	tests := []struct {
		name string
		e    ShortExport
		m    machine.Type
		want ImportNameType
	}{
		{"no_name forces ordinal", ShortExport{Name: "foo", NoName: true}, machine.AMD64, NameTypeOrdinal},
		{"stdcall-decorated external name", ShortExport{Name: "_foo@4"}, machine.I386, NameTypeName},
		{"symbol_name differs from external name", ShortExport{Name: "foo", SymbolName: "_foo_impl"}, machine.AMD64, NameTypeUndecorate},
		{"i386 underscore prefix, no symbol_name override", ShortExport{Name: "_foo"}, machine.I386, NameTypeNoPrefix},
		{"amd64 plain name", ShortExport{Name: "foo"}, machine.AMD64, NameTypeName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.e.ImportNameType(tt.m); got != tt.want {
				t.Errorf("ImportNameType() = %v, want %v", got, tt.want)
			}
		})
	}
}
