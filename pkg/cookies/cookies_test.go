package cookies

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseDropsRecordsWithoutDomain(t *testing.T) {
	raw := `[
		{"name": "auth_token", "value": "abc", "domain": ".x.com"},
		{"name": "orphan", "value": "nope"},
		{"name": "ct0", "value": "def", "domain": ".x.com", "path": "/i"}
	]`

	records := Parse(raw, nil)
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].Name != "auth_token" || records[1].Name != "ct0" {
		t.Errorf("Unexpected record names: %s, %s", records[0].Name, records[1].Name)
	}
}

func TestParseDefaultsAndNormalization(t *testing.T) {
	raw := `[{"name": "auth_token", "value": "abc", "domain": ".x.com", "sameSite": "no_restriction"}]`

	records := Parse(raw, nil)
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if records[0].Path != "/" {
		t.Errorf("Expected default path /, got %q", records[0].Path)
	}
	if records[0].SameSite != "Lax" {
		t.Errorf("Expected SameSite forced to Lax, got %q", records[0].SameSite)
	}
}

func TestParseSkipsMalformedEntries(t *testing.T) {
	raw := `[
		{"name": "good", "value": "v", "domain": ".x.com"},
		"not an object",
		{"name": 42, "value": "v", "domain": ".x.com"}
	]`

	records := Parse(raw, nil)
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if records[0].Name != "good" {
		t.Errorf("Expected surviving record 'good', got %q", records[0].Name)
	}
}

func TestParseGarbageYieldsEmpty(t *testing.T) {
	if records := Parse("this is not json", nil); records != nil {
		t.Errorf("Expected nil for garbage input, got %v", records)
	}
	if records := Parse("", nil); records != nil {
		t.Errorf("Expected nil for empty input, got %v", records)
	}
}

func TestCookieParams(t *testing.T) {
	records := []Record{
		{Name: "auth_token", Value: "abc", Domain: ".x.com", Path: "/", Secure: true, ExpirationDate: 1900000000},
		{Name: "session", Value: "def", Domain: ".x.com", Path: "/"},
	}

	params := CookieParams(records)
	if len(params) != 2 {
		t.Fatalf("Expected 2 params, got %d", len(params))
	}
	if params[0].Expires == nil {
		t.Error("Expected expiry to be set for dated cookie")
	}
	if params[1].Expires != nil {
		t.Error("Expected no expiry for session cookie")
	}
	if !params[0].Secure {
		t.Error("Expected secure flag to carry over")
	}
}

func TestCookieString(t *testing.T) {
	records := []Record{
		{Name: "a", Value: "1", Domain: ".x.com"},
		{Name: "b", Value: "2", Domain: ".x.com"},
	}
	if got := CookieString(records); got != "a=1; b=2" {
		t.Errorf("Expected 'a=1; b=2', got %q", got)
	}
}

func TestRewriteQuarkDomains(t *testing.T) {
	records := []Record{
		{Name: "a", Value: "1", Domain: "pan.quark.cn"},
		{Name: "b", Value: "2", Domain: ".quark.cn"},
		{Name: "c", Value: "3", Domain: ".x.com"},
	}

	rewritten := RewriteQuarkDomains(records)
	if rewritten[0].Domain != ".quark.cn" {
		t.Errorf("Expected pan.quark.cn widened to .quark.cn, got %q", rewritten[0].Domain)
	}
	if rewritten[1].Domain != ".quark.cn" {
		t.Errorf("Expected .quark.cn unchanged, got %q", rewritten[1].Domain)
	}
	if rewritten[2].Domain != ".x.com" {
		t.Errorf("Expected unrelated domain unchanged, got %q", rewritten[2].Domain)
	}
	// The input slice must stay untouched
	if records[0].Domain != "pan.quark.cn" {
		t.Error("Rewrite mutated the input slice")
	}
}

func TestNetscapeLine(t *testing.T) {
	rec := Record{
		Name:           "auth_token",
		Value:          "abc",
		Domain:         ".x.com",
		Path:           "/",
		Secure:         true,
		ExpirationDate: 1900000000.5,
	}
	want := ".x.com\tTRUE\t/\tTRUE\t1900000000\tauth_token\tabc"
	if got := NetscapeLine(rec); got != want {
		t.Errorf("Netscape line mismatch:\ngot:  %q\nwant: %q", got, want)
	}

	hostOnly := Record{Name: "s", Value: "v", Domain: "x.com", Path: "/"}
	if line := NetscapeLine(hostOnly); !strings.HasPrefix(line, "x.com\tFALSE\t") {
		t.Errorf("Expected host-only FALSE flag, got %q", line)
	}
}

func TestWriteNetscapeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")
	records := []Record{
		{Name: "a", Value: "1", Domain: ".x.com", Path: "/"},
	}

	if err := WriteNetscapeFile(records, path); err != nil {
		t.Fatalf("WriteNetscapeFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read cookie file: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "# Netscape HTTP Cookie File\n") {
		t.Error("Missing Netscape header")
	}
	if !strings.Contains(content, ".x.com\tTRUE\t/\tFALSE\t0\ta\t1\n") {
		t.Errorf("Missing cookie line, got:\n%s", content)
	}
}
