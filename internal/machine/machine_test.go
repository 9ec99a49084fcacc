package machine

import "testing"

func TestIs32Bit(t *testing.T) {
	tests := []struct {
		m    Type
		want bool
	}{
		{I386, true},
		{ARMNT, true},
		{AMD64, false},
		{ARM64, false},
	}
	for _, tt := range tests {
		if got := tt.m.Is32Bit(); got != tt.want {
			t.Errorf("%v.Is32Bit() = %v, want %v", tt.m, got, tt.want)
		}
	}
}

func TestRelocationsKnownForAllSupportedMachines(t *testing.T) {
	for _, m := range []Type{I386, ARMNT, AMD64, ARM64} {
		if _, err := m.ImageRelRelocation(); err != nil {
			t.Errorf("%v.ImageRelRelocation() error = %v", m, err)
		}
		if _, err := m.Rel32Relocation(); err != nil {
			t.Errorf("%v.Rel32Relocation() error = %v", m, err)
		}
		if !m.Valid() {
			t.Errorf("%v.Valid() = false, want true", m)
		}
	}
}

func TestUnsupportedMachine(t *testing.T) {
	var m Type = 0xffff
	if m.Valid() {
		t.Fatalf("Valid() = true for bogus machine")
	}
	if _, err := m.ImageRelRelocation(); err == nil {
		t.Fatalf("ImageRelRelocation() error = nil, want error")
	}
}

func TestPointerSize(t *testing.T) {
	if AMD64.PointerSize() != 8 {
		t.Errorf("AMD64.PointerSize() = %d, want 8", AMD64.PointerSize())
	}
	if I386.PointerSize() != 4 {
		t.Errorf("I386.PointerSize() = %d, want 4", I386.PointerSize())
	}
}
