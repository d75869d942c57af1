package addr

import "testing"

func TestDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"user@example.com", "example.com", true},
		{"User@EXAMPLE.com", "example.com", true},
		{"  user@example.com  ", "example.com", true},
		{"no-at-sign", "", false},
		{"user@", "", false},
		{"a@b@c", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := Domain(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Domain(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestDomainIn(t *testing.T) {
	t.Parallel()

	domains := []string{"vip.example", "partner.example"}

	if !DomainIn("ceo@VIP.example", domains) {
		t.Errorf("DomainIn(vip address) = false, want true")
	}
	if DomainIn("someone@other.example", domains) {
		t.Errorf("DomainIn(other address) = true, want false")
	}
	if DomainIn("garbage", domains) {
		t.Errorf("DomainIn(malformed address) = true, want false")
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	if got := Normalize("  Mixed.Case@Example.COM "); got != "mixed.case@example.com" {
		t.Errorf("Normalize() = %q", got)
	}
}
