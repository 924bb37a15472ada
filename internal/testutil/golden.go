package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// EnvGoldenUpdate rewrites golden files instead of comparing when set.
const EnvGoldenUpdate = "QUICKTASKS_GOLDEN_UPDATE"

// GoldenString compares rendered output against testdata/<name>.golden and
// reports the first line that differs.
func GoldenString(t *testing.T, name string, got string) {
	t.Helper()

	path := filepath.Join("testdata", name+".golden")
	if os.Getenv(EnvGoldenUpdate) != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("create testdata: %v", err)
		}
		if err := os.WriteFile(path, []byte(got), 0644); err != nil {
			t.Fatalf("update %s: %v", path, err)
		}
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v\ngot:\n%s", path, err, got)
	}
	want := string(data)
	if got == want {
		return
	}

	gotLines := strings.Split(got, "\n")
	wantLines := strings.Split(want, "\n")
	for i := 0; i < len(gotLines) || i < len(wantLines); i++ {
		var g, w string
		if i < len(gotLines) {
			g = gotLines[i]
		}
		if i < len(wantLines) {
			w = wantLines[i]
		}
		if g != w {
			t.Errorf("%s: line %d differs\nwant: %q\n got: %q", path, i+1, w, g)
			return
		}
	}
	t.Errorf("%s: want %d lines, got %d", path, len(wantLines), len(gotLines))
}
