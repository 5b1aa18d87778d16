package main

import (
	"testing"

	"golang.org/x/time/rate"
)

func TestParseAllowedOrigins(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"https://example.com", []string{"https://example.com"}},
		{"https://a.com, https://b.com ,", []string{"https://a.com", "https://b.com"}},
		{"HTTPS://Example.COM", []string{"https://example.com"}},
	}
	for _, tt := range tests {
		got := parseAllowedOrigins(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("parseAllowedOrigins(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parseAllowedOrigins(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestIsOriginAllowed(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		allowed []string
		want    bool
	}{
		{"empty list allows everything", "https://evil.example", nil, true},
		{"no origin header passes", "", []string{"https://a.com"}, true},
		{"exact match", "https://a.com", []string{"https://a.com"}, true},
		{"case insensitive", "https://A.COM", []string{"https://a.com"}, true},
		{"host-only entry", "https://a.com:8443", []string{"a.com"}, true},
		{"wildcard", "https://anything.example", []string{"*"}, true},
		{"mismatch rejected", "https://evil.example", []string{"https://a.com"}, false},
		{"scheme matters for full entries", "http://a.com", []string{"https://a.com"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isOriginAllowed(tt.origin, tt.allowed); got != tt.want {
				t.Errorf("isOriginAllowed(%q, %v) = %v, want %v", tt.origin, tt.allowed, got, tt.want)
			}
		})
	}
}

func TestIPLimitersIsolatePerIP(t *testing.T) {
	limiters := newIPLimiters(rate.Limit(1), 2)

	// Burst of 2, then the bucket is empty.
	if !limiters.allow("10.0.0.1") || !limiters.allow("10.0.0.1") {
		t.Fatal("burst requests rejected")
	}
	if limiters.allow("10.0.0.1") {
		t.Fatal("request over burst allowed")
	}

	// A different client has its own bucket.
	if !limiters.allow("10.0.0.2") {
		t.Fatal("fresh client rejected")
	}
}
