package config

import (
	"strings"
	"testing"
)

const validConfig = `
# chatty server config
UnixPath = /tmp/chatty.sock
MaxConnections = 128
ThreadsInPool = 8

MaxMsgSize = 512
MaxFileSize = 1024
MaxHistMsgs = 10
DirName = /tmp/chatty-files
StatFileName = /tmp/chatty-stats.txt
`

func TestParseValidConfig(t *testing.T) {
	cfg, err := Parse(strings.NewReader(validConfig))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.UnixPath != "/tmp/chatty.sock" {
		t.Fatalf("UnixPath = %q", cfg.UnixPath)
	}
	if cfg.MaxConnections != 128 {
		t.Fatalf("MaxConnections = %d, want 128", cfg.MaxConnections)
	}
	if cfg.MaxHistMsgs != 10 {
		t.Fatalf("MaxHistMsgs = %d, want 10", cfg.MaxHistMsgs)
	}
}

func TestParseMissingRequiredKeyIsFatal(t *testing.T) {
	missing := strings.Replace(validConfig, "StatFileName = /tmp/chatty-stats.txt", "", 1)
	if _, err := Parse(strings.NewReader(missing)); err == nil {
		t.Fatal("expected error for missing required key")
	}
}

func TestParseBareKeyIsFatal(t *testing.T) {
	bad := validConfig + "\nNotAKeyValueLine\n"
	if _, err := Parse(strings.NewReader(bad)); err == nil {
		t.Fatal("expected error for line without '='")
	}
}
