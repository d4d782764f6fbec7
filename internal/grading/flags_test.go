package grading

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cyberdefenders/cybergrader/internal/content"
)

func TestFlagGrader(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "artifacts"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "artifacts", "dump.pcap"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	g := NewFlagGrader(root)

	cases := []struct {
		name       string
		flag       content.FlagDefinition
		submission string
		want       bool
	}{
		{"exact match", content.FlagDefinition{Validator: "exact", Value: "FLAG{abc}"}, "FLAG{abc}", true},
		{"exact trims whitespace", content.FlagDefinition{Validator: "exact", Value: "FLAG{abc}"}, "  FLAG{abc}\n", true},
		{"exact wrong value", content.FlagDefinition{Validator: "exact", Value: "FLAG{abc}"}, "FLAG{abd}", false},
		{"exact case sensitive", content.FlagDefinition{Validator: "exact", Value: "FLAG{abc}"}, "flag{abc}", false},

		{"regex full match", content.FlagDefinition{Validator: "regex", Pattern: `FLAG\{[0-9a-f]{4}\}`}, "FLAG{1a2b}", true},
		{"regex rejects substring", content.FlagDefinition{Validator: "regex", Pattern: `FLAG\{[0-9a-f]{4}\}`}, "prefix FLAG{1a2b}", false},
		{"regex trims submission", content.FlagDefinition{Validator: "regex", Pattern: `FLAG\{[0-9a-f]{4}\}`}, " FLAG{1a2b} ", true},
		{"regex empty pattern", content.FlagDefinition{Validator: "regex"}, "anything", false},
		{"regex bad pattern fails closed", content.FlagDefinition{Validator: "regex", Pattern: `FLAG\{[`}, "FLAG{", false},

		{"file exists", content.FlagDefinition{Validator: "file_exists"}, "artifacts/dump.pcap", true},
		{"file missing", content.FlagDefinition{Validator: "file_exists"}, "artifacts/nope.pcap", false},

		{"unknown validator fails closed", content.FlagDefinition{Validator: "md5"}, "anything", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := g.Check(tc.flag, tc.submission); got != tc.want {
				t.Fatalf("Check(%+v, %q) = %v, want %v", tc.flag, tc.submission, got, tc.want)
			}
		})
	}
}
