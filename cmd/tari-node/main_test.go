package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunDryRunSucceeds(t *testing.T) {
	var stdout, stderr bytes.Buffer
	dataDir := filepath.Join(t.TempDir(), "data")

	code := run([]string{
		"-network", "devnet",
		"-datadir", dataDir,
		"-dry-run",
	}, &stdout, &stderr)

	if code != 0 {
		t.Fatalf("run() = %d, stderr = %q", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "configuration OK") {
		t.Fatalf("stdout = %q, want configuration OK message", stdout.String())
	}
}

func TestRunRejectsUnknownNetwork(t *testing.T) {
	var stdout, stderr bytes.Buffer
	dataDir := filepath.Join(t.TempDir(), "data")

	code := run([]string{
		"-network", "not-a-real-network",
		"-datadir", dataDir,
		"-dry-run",
	}, &stdout, &stderr)

	if code == 0 {
		t.Fatalf("run() = 0, want non-zero for unknown network")
	}
	if !strings.Contains(stderr.String(), "unknown network") {
		t.Fatalf("stderr = %q, want unknown network error", stderr.String())
	}
}

func TestRunRejectsInvalidLogLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	dataDir := filepath.Join(t.TempDir(), "data")

	code := run([]string{
		"-network", "devnet",
		"-datadir", dataDir,
		"-log-level", "not-a-level",
		"-dry-run",
	}, &stdout, &stderr)

	if code == 0 {
		t.Fatalf("run() = 0, want non-zero for invalid log level")
	}
}

func TestRunAcceptsRepeatedPeerFlags(t *testing.T) {
	var stdout, stderr bytes.Buffer
	dataDir := filepath.Join(t.TempDir(), "data")

	code := run([]string{
		"-network", "devnet",
		"-datadir", dataDir,
		"-peer", "127.0.0.1:18189",
		"-peer", "127.0.0.1:18190",
		"-dry-run",
	}, &stdout, &stderr)

	if code != 0 {
		t.Fatalf("run() = %d, stderr = %q", code, stderr.String())
	}
}
