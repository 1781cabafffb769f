package validation

import (
	"net"
	"strings"
	"testing"
)

func TestNewAPIURLValidator(t *testing.T) {
	v := NewAPIURLValidator()
	if v.AllowLocalhost {
		t.Error("Expected AllowLocalhost to be false by default")
	}
	if v.AllowPrivateIPs {
		t.Error("Expected AllowPrivateIPs to be false by default")
	}
	if v.MaxLength != 2048 {
		t.Errorf("Expected MaxLength to be 2048, got %d", v.MaxLength)
	}

	p := NewPermissiveAPIURLValidator()
	if !p.AllowLocalhost || !p.AllowPrivateIPs {
		t.Error("Expected permissive validator to allow local hosts")
	}
}

func TestValidateAndNormalize(t *testing.T) {
	v := NewAPIURLValidator()

	tests := []struct {
		name        string
		input       string
		expected    string
		shouldError bool
		errorMsg    string
	}{
		{name: "empty URL", input: "", shouldError: true, errorMsg: "URL cannot be empty"},
		{name: "whitespace-only URL", input: "   ", shouldError: true, errorMsg: "URL cannot be empty"},
		{name: "URL without protocol gets HTTPS", input: "catalog.uni.edu/api", expected: "https://catalog.uni.edu/api"},
		{name: "trailing slash trimmed", input: "https://catalog.uni.edu/api/", expected: "https://catalog.uni.edu/api"},
		{name: "fragment dropped", input: "https://catalog.uni.edu/api#top", expected: "https://catalog.uni.edu/api"},
		{name: "HTTP preserved", input: "http://catalog.uni.edu", expected: "http://catalog.uni.edu"},
		{name: "URL too long", input: "https://catalog.uni.edu/" + strings.Repeat("a", 3000), shouldError: true, errorMsg: "URL too long"},
		{name: "invalid characters", input: "https://catalog.uni.edu/<script>", shouldError: true, errorMsg: "invalid characters"},
		{name: "other scheme rejected", input: "ftp://catalog.uni.edu", shouldError: true, errorMsg: "http or https"},
		{name: "localhost blocked", input: "http://localhost:8080/api", shouldError: true, errorMsg: "localhost URLs are not permitted"},
		{name: "private IP blocked", input: "http://192.168.1.10/api", shouldError: true, errorMsg: "private IP addresses are not permitted"},
		{name: "traversal blocked", input: "https://catalog.uni.edu/api/../etc", shouldError: true, errorMsg: "directory traversal"},
		{name: "no hostname", input: "https:///api", shouldError: true, errorMsg: "valid hostname"},
		{name: "unroutable host", input: "http://0.0.0.0/api", shouldError: true, errorMsg: "unroutable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.ValidateAndNormalize(tt.input)
			if tt.shouldError {
				if err == nil {
					t.Fatalf("expected error containing %q, got %q", tt.errorMsg, got)
				}
				if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errorMsg, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestValidateAndNormalizePermissive(t *testing.T) {
	v := NewPermissiveAPIURLValidator()

	for _, input := range []string{
		"http://localhost:8080/api",
		"http://127.0.0.1:9000",
		"http://10.0.0.5/catalog",
		"http://[::1]:8080/api",
	} {
		if _, err := v.ValidateAndNormalize(input); err != nil {
			t.Errorf("expected %q to be allowed, got %v", input, err)
		}
	}
}

func TestSameOrigin(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		target   string
		expected bool
	}{
		{"same path prefix", "https://uni.edu/api", "https://uni.edu/api/courses/MAT1.json", true},
		{"base itself", "https://uni.edu/api", "https://uni.edu/api", true},
		{"base with trailing slash", "https://uni.edu/api/", "https://uni.edu/api/x.json", true},
		{"host case-insensitive", "https://uni.edu/api", "https://UNI.edu/api/x.json", true},
		{"root base", "https://uni.edu", "https://uni.edu/anything", true},
		{"sibling path prefix", "https://uni.edu/api", "https://uni.edu/apix/a.json", false},
		{"outside base path", "https://uni.edu/api", "https://uni.edu/other/a.json", false},
		{"other host", "https://uni.edu/api", "https://cdn.uni.edu/api/a.json", false},
		{"other scheme", "https://uni.edu/api", "http://uni.edu/api/a.json", false},
		{"other port", "http://127.0.0.1:8080/api", "http://127.0.0.1:9090/api/a.json", false},
		{"relative target", "https://uni.edu/api", "/api/a.json", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameOrigin(tt.base, tt.target); got != tt.expected {
				t.Errorf("SameOrigin(%q, %q) = %v, want %v", tt.base, tt.target, got, tt.expected)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		doc, link, expected string
	}{
		{"https://uni.edu/api/courses.json", "courses/MAT1.json", "https://uni.edu/api/courses/MAT1.json"},
		{"https://uni.edu/api/courses.json", "/api/sections.json", "https://uni.edu/api/sections.json"},
		{"https://uni.edu/api/courses.json", "https://other.edu/x.json#frag", "https://other.edu/x.json"},
		{"https://uni.edu/api/courses/MAT1.json", " ../programs.json ", "https://uni.edu/api/programs.json"},
	}

	for _, tt := range tests {
		got, err := Resolve(tt.doc, tt.link)
		if err != nil {
			t.Fatalf("Resolve(%q, %q): %v", tt.doc, tt.link, err)
		}
		if got != tt.expected {
			t.Errorf("Resolve(%q, %q) = %q, want %q", tt.doc, tt.link, got, tt.expected)
		}
	}
}

func TestIsLocalhost(t *testing.T) {
	for host, want := range map[string]bool{
		"localhost":     true,
		"127.0.0.1":     true,
		"::1":           true,
		"sub.localhost": true,
		"uni.edu":       false,
		"8.8.8.8":       false,
	} {
		if got := isLocalhost(host); got != want {
			t.Errorf("isLocalhost(%q) = %v, want %v", host, got, want)
		}
	}
}

func TestIsPrivateIP(t *testing.T) {
	for ip, want := range map[string]bool{
		"10.0.0.1":             true,
		"172.16.0.1":           true,
		"192.168.1.1":          true,
		"169.254.1.1":          true,
		"127.0.0.1":            true,
		"fd00::1":              true,
		"fe80::1":              true,
		"8.8.8.8":              false,
		"2001:4860:4860::8888": false,
	} {
		if got := isPrivateIP(net.ParseIP(ip)); got != want {
			t.Errorf("isPrivateIP(%q) = %v, want %v", ip, got, want)
		}
	}
}
