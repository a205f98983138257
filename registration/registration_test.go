// Copyright 2026 The Matrix Free Stuff Authors
// SPDX-License-Identifier: Apache-2.0

package registration

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadOrCreateBootstraps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "registration.yaml")

	reg, err := LoadOrCreate(path, slog.Default())
	if err != nil {
		t.Fatalf("LoadOrCreate failed: %v", err)
	}

	if reg.ID != AppserviceID {
		t.Errorf("unexpected id: %s", reg.ID)
	}
	if reg.SenderLocalpart != SenderLocalpart {
		t.Errorf("unexpected sender_localpart: %s", reg.SenderLocalpart)
	}
	if len(reg.ASToken) != tokenLength || len(reg.HSToken) != tokenLength {
		t.Errorf("token lengths: as=%d hs=%d, want %d", len(reg.ASToken), len(reg.HSToken), tokenLength)
	}
	if reg.ASToken == reg.HSToken {
		t.Error("as_token and hs_token must differ")
	}
	for _, token := range []string{reg.ASToken, reg.HSToken} {
		for i := 0; i < len(token); i++ {
			c := token[i]
			if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
				t.Fatalf("non-alphanumeric token character %q", c)
			}
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("registration file not written: %v", err)
	}
	if mode := info.Mode().Perm(); mode != 0o600 {
		t.Errorf("registration file mode: got %o, want 600", mode)
	}

	// A second load must round-trip the same record.
	loaded, err := LoadOrCreate(path, slog.Default())
	if err != nil {
		t.Fatalf("second LoadOrCreate failed: %v", err)
	}
	if loaded.ASToken != reg.ASToken || loaded.HSToken != reg.HSToken {
		t.Error("reloaded registration does not match the created one")
	}
}

func TestRandomTokenCoversAlphabet(t *testing.T) {
	// Long enough that every alphabet character is all but certain to
	// appear under uniform sampling; a skewed or clipped generator
	// would miss characters or fail the length contract.
	const length = 16 * 1024
	token, err := randomToken(length)
	if err != nil {
		t.Fatalf("randomToken failed: %v", err)
	}
	if len(token) != length {
		t.Fatalf("token length: got %d, want %d", len(token), length)
	}
	for i := 0; i < len(tokenAlphabet); i++ {
		if !strings.ContainsRune(token, rune(tokenAlphabet[i])) {
			t.Errorf("alphabet character %q never generated", tokenAlphabet[i])
		}
	}
	for i := 0; i < len(token); i++ {
		if !strings.Contains(tokenAlphabet, string(token[i])) {
			t.Fatalf("token character %q outside the alphabet", token[i])
		}
	}
}

func TestLoadRejectsIncompleteRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registration.yaml")
	if err := os.WriteFile(path, []byte("id: partial\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected validation error for registration without tokens")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registration.yaml")
	if err := os.WriteFile(path, []byte("{not yaml"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadPreservesNamespaces(t *testing.T) {
	const contents = `id: matrix-free-stuff
url: http://bridge:3000
as_token: aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa
hs_token: bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb
sender_localpart: free-stuff
namespaces:
  users:
    - exclusive: true
      regex: "@free-stuff:.*"
`
	path := filepath.Join(t.TempDir(), "registration.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}

	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(reg.Namespaces.Users) != 1 {
		t.Fatalf("expected one user namespace, got %d", len(reg.Namespaces.Users))
	}
	namespace := reg.Namespaces.Users[0]
	if !namespace.Exclusive || namespace.Regex != "@free-stuff:.*" {
		t.Errorf("unexpected namespace: %+v", namespace)
	}
}
