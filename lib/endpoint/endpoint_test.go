// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package endpoint

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  Endpoint
	}{
		{"wss://127.0.0.1:7700/auth", Endpoint{"wss", "127.0.0.1", 7700, "auth"}},
		{"ws://game.example:7702/game/", Endpoint{"ws", "game.example", 7702, "game"}},
		{"tcp://[::1]:9000", Endpoint{"tcp", "::1", 9000, ""}},
	}
	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			got, err := Parse(test.input)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got != test.want {
				t.Fatalf("Parse = %+v, want %+v", got, test.want)
			}
		})
	}
}

func TestParseRejects(t *testing.T) {
	for _, input := range []string{"", "127.0.0.1:7700", "wss://host/auth", "wss://host:notaport/x", "wss://host:70000/x"} {
		if _, err := Parse(input); err == nil {
			t.Errorf("Parse(%q) succeeded", input)
		}
	}
}

func TestCanonicalFormAndEquality(t *testing.T) {
	a := MustParse("WSS://Host.Example:7700/Auth")
	b := MustParse("wss://host.example:7700/auth")
	if a.String() != "wss://Host.Example:7700/Auth" {
		t.Errorf("String = %q", a.String())
	}
	if !a.Equal(b) || a.Key() != b.Key() {
		t.Fatalf("endpoints differing only by case should be equal: %q vs %q", a.Key(), b.Key())
	}
	if a.Equal(MustParse("wss://host.example:7701/auth")) {
		t.Fatal("different ports compared equal")
	}
	if got := a.URL(); got != "wss://Host.Example:7700/Auth" {
		t.Errorf("URL = %q", got)
	}
	if got := MustParse("tcp://h:1/game").URL(); got != "ws://h:1/game" {
		t.Errorf("URL = %q", got)
	}
}

func TestTextRoundtrip(t *testing.T) {
	original := MustParse("ws://localhost:7701/jump")
	text, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	var decoded Endpoint
	if err := decoded.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if decoded != original {
		t.Fatalf("decoded = %+v", decoded)
	}
}
