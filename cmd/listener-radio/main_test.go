package main

import (
	"bytes"
	"os"
	"testing"
)

func TestRunVersionFlagPrintsAndExitsZero(t *testing.T) {
	if code := run([]string{"--version"}); code != 0 {
		t.Fatalf("want exit code 0 for --version, got %d", code)
	}
}

func TestRunMissingDatabaseURLExitsNonZero(t *testing.T) {
	if code := run([]string{"--private-key", "0xabc"}); code == 0 {
		t.Fatal("want non-zero exit when database-url is missing")
	}
}

func TestRunMissingCredentialsExitsNonZero(t *testing.T) {
	if code := run([]string{"--database-url", "postgres://x"}); code == 0 {
		t.Fatal("want non-zero exit when neither private-key nor mnemonic is set")
	}
}

// captureStderr is a small helper mirroring the teacher's CLI tests, which
// assert on exit codes rather than parsing stderr text.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	old := os.Stderr
	os.Stderr = w
	defer func() { os.Stderr = old }()

	fn()

	w.Close()
	var buf bytes.Buffer
	buf.ReadFrom(r)
	return buf.String()
}

func TestRunMissingDatabaseURLReportsError(t *testing.T) {
	out := captureStderr(t, func() {
		run([]string{"--private-key", "0xabc"})
	})
	if out == "" {
		t.Fatal("want an error message on stderr")
	}
}
