package core

import "testing"

func TestParseIAValid(t *testing.T) {
	cases := map[string]IA{
		"1-ff00:0:110": {ISD: 1, AS: 0xff0000000110}, // 0xff00<<32 | 0<<16 | 0x110
		"64-12345":     {ISD: 64, AS: 12345},
	}
	for s, want := range cases {
		got, err := ParseIA(s)
		if err != nil {
			t.Fatalf("ParseIA(%q): %v", s, err)
		}
		if got != want {
			t.Fatalf("ParseIA(%q) = %+v, want %+v", s, got, want)
		}
	}
}

func TestParseIAInvalid(t *testing.T) {
	for _, s := range []string{
		"", "1", "1-2-3", "1- ff00:0:110", " 1-ff00:0:110",
		"70000-1", "1-ffffff:0:110", "1-zzzz",
	} {
		if err := ValidateIA(s); err == nil {
			t.Fatalf("ValidateIA(%q) should have failed", s)
		}
	}
}

func TestFSPath(t *testing.T) {
	if got := FSPath("1-ff00:0:110"); got != "1-ff00_0_110" {
		t.Fatalf("FSPath = %q", got)
	}
}

func TestIPPortRoundTrip(t *testing.T) {
	for _, s := range []string{"192.0.2.1:50000", "[2001:db8::1]:50000"} {
		a, err := ParseIPPort(s)
		if err != nil {
			t.Fatalf("ParseIPPort(%q): %v", s, err)
		}
		if a.String() != s {
			t.Fatalf("round trip mismatch: got %q want %q", a.String(), s)
		}
	}
}

func TestParseIPPortRange(t *testing.T) {
	r, err := ParseIPPortRange("192.0.2.1:50000-50010")
	if err != nil {
		t.Fatalf("ParseIPPortRange: %v", err)
	}
	if r.IP != "192.0.2.1" || r.MinPort != 50000 || r.MaxPort != 50010 {
		t.Fatalf("unexpected range: %+v", r)
	}

	if _, err := ParseIPPortRange("192.0.2.1:50010-50000"); err == nil {
		t.Fatalf("expected error for inverted range")
	}
	if _, err := ParseIPPortRange("192.0.2.1:0-70000"); err == nil {
		t.Fatalf("expected error for out-of-range port")
	}
}

func TestParseIPPortRangeIPv6(t *testing.T) {
	r, err := ParseIPPortRange("[2001:db8::1]:50000-50010")
	if err != nil {
		t.Fatalf("ParseIPPortRange: %v", err)
	}
	if r.IP != "2001:db8::1" {
		t.Fatalf("unexpected IP: %q", r.IP)
	}
}
