// Copyright 2026 The Matrix Free Stuff Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"strings"
	"testing"
)

func TestReadBody(t *testing.T) {
	data, err := ReadBody(strings.NewReader(`{"ok":true}`))
	if err != nil {
		t.Fatalf("ReadBody failed: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Errorf("unexpected data: %s", data)
	}
}

func TestDecodeBody(t *testing.T) {
	var decoded struct {
		Name string `json:"name"`
	}
	if err := DecodeBody(strings.NewReader(`{"name":"free_games"}`), &decoded); err != nil {
		t.Fatalf("DecodeBody failed: %v", err)
	}
	if decoded.Name != "free_games" {
		t.Errorf("unexpected name: %s", decoded.Name)
	}

	if err := DecodeBody(strings.NewReader("not json"), &decoded); err == nil {
		t.Error("expected error for malformed JSON")
	}
}
