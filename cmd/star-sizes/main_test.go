package main

import (
	"testing"

	"github.com/Sternrassler/star-sizes/internal/cli"
)

func TestRun_Help(t *testing.T) {
	if code := run([]string{"--help"}); code != cli.ExitOK {
		t.Errorf("run(--help) = %d, want %d", code, cli.ExitOK)
	}
}

func TestRun_UnknownFlag(t *testing.T) {
	if code := run([]string{"--no-such-flag"}); code != cli.ExitFailure {
		t.Errorf("run(--no-such-flag) = %d, want %d", code, cli.ExitFailure)
	}
}

func TestVersionDefault(t *testing.T) {
	if version == "" {
		t.Error("version should not be empty")
	}
}
