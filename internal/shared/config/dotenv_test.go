package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseEnvLine(t *testing.T) {
	tests := []struct {
		line string
		key  string
		val  string
		ok   bool
	}{
		{line: "PORT=8080", key: "PORT", val: "8080", ok: true},
		{line: "  SIGNING_BASE_URL = https://esign.test ", key: "SIGNING_BASE_URL", val: "https://esign.test", ok: true},
		{line: `SENDER_NAME="Acme eSign"`, key: "SENDER_NAME", val: "Acme eSign", ok: true},
		{line: "export OBJECT_STORE=local", key: "OBJECT_STORE", val: "local", ok: true},
		{line: "# comment", ok: false},
		{line: "", ok: false},
		{line: "NOEQUALS", ok: false},
		{line: "=value", ok: false},
	}
	for _, tt := range tests {
		key, val, ok := parseEnvLine(tt.line)
		if ok != tt.ok || key != tt.key || val != tt.val {
			t.Fatalf("parseEnvLine(%q) = (%q, %q, %v), want (%q, %q, %v)", tt.line, key, val, ok, tt.key, tt.val, tt.ok)
		}
	}
}

func TestLoadEnvFilesDoesNotOverrideEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "DOTENV_TEST_NEW=from-file\nDOTENV_TEST_SET=from-file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("DOTENV_TEST_SET", "from-env")
	t.Cleanup(func() { os.Unsetenv("DOTENV_TEST_NEW") })

	loadEnvFiles(path, filepath.Join(t.TempDir(), "missing.env"))

	if got := os.Getenv("DOTENV_TEST_NEW"); got != "from-file" {
		t.Fatalf("expected new key exported, got %q", got)
	}
	if got := os.Getenv("DOTENV_TEST_SET"); got != "from-env" {
		t.Fatalf("expected environment to win, got %q", got)
	}
}
