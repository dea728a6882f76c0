package ledger

import "testing"

func TestParseAddress(t *testing.T) {
	in := "0x00000000000000000000000000000000000000aB"
	a, err := ParseAddress(in)
	if err != nil {
		t.Fatalf("ParseAddress: %v", err)
	}
	if a[AddressLen-1] != 0xab {
		t.Errorf("last byte = %#x, want 0xab", a[AddressLen-1])
	}
	if got := a.String(); got != "0x00000000000000000000000000000000000000ab" {
		t.Errorf("String = %q", got)
	}
}

func TestParseAddressBarePrefix(t *testing.T) {
	a, err := ParseAddress("0000000000000000000000000000000000000001")
	if err != nil {
		t.Fatalf("ParseAddress without 0x: %v", err)
	}
	if a.IsZero() {
		t.Error("expected non-zero address")
	}
}

func TestParseAddressRejectsBadInput(t *testing.T) {
	for _, in := range []string{"", "0x1234", "0xzz00000000000000000000000000000000000000"} {
		if _, err := ParseAddress(in); err == nil {
			t.Errorf("ParseAddress(%q): expected error", in)
		}
	}
}

func TestZeroSentinel(t *testing.T) {
	if !ZeroAddress.IsZero() {
		t.Error("ZeroAddress.IsZero() = false")
	}
	a, _ := ParseAddress("0x0000000000000000000000000000000000000000")
	if !a.IsZero() {
		t.Error("parsed zero address should be the sentinel")
	}
}
