package phone

import "testing"

func TestCanonical_StripsGatewayPrefix(t *testing.T) {
	got := Canonical("whatsapp:+5511999990000")
	if got != "+5511999990000" {
		t.Fatalf("expected +5511999990000, got %q", got)
	}
}

func TestCanonical_StripsBridgeJID(t *testing.T) {
	got := Canonical("5511999990000@s.whatsapp.net")
	if got != "+5511999990000" {
		t.Fatalf("expected +5511999990000, got %q", got)
	}
}

func TestCanonical_SamePhoneFromBothProviders(t *testing.T) {
	a := Canonical("whatsapp:+5511999990000")
	b := Canonical("5511999990000@s.whatsapp.net")
	if a != b {
		t.Fatalf("expected identical canonical forms, got %q and %q", a, b)
	}
}

func TestNormalizeE164_InvalidKeptVerbatim(t *testing.T) {
	got := NormalizeE164("not-a-number")
	if got != "not-a-number" {
		t.Fatalf("expected input returned unchanged, got %q", got)
	}
}

func TestNormalizeE164_NationalFormat(t *testing.T) {
	got := NormalizeE164("(11) 99999-0000")
	if got != "+5511999990000" {
		t.Fatalf("expected +5511999990000, got %q", got)
	}
}
