package logger

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"
)

func TestSanitizePayloadMasksPasswords(t *testing.T) {
	payload := map[string]any{
		"username": "ada",
		"password": "secret-pass",
		"nested": map[string]any{
			"Password-Hash": "$2a$10$abc",
		},
	}

	sanitized, ok := SanitizePayload(payload).(map[string]any)
	if !ok {
		t.Fatal("expected sanitized map")
	}
	if sanitized["password"] != "******" {
		t.Fatalf("expected password masked, got %v", sanitized["password"])
	}
	if sanitized["username"] != "ada" {
		t.Fatalf("expected username kept, got %v", sanitized["username"])
	}
	nested := sanitized["nested"].(map[string]any)
	if nested["Password-Hash"] != "******" {
		t.Fatalf("expected nested hash masked, got %v", nested["Password-Hash"])
	}
}

func TestErrorIncludesErrorField(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(prev)

	Error("ledger append failed", errors.New("boom"), Fields{"blockNumber": 7})

	out := buf.String()
	if !strings.Contains(out, "ERROR ledger append failed") {
		t.Fatalf("unexpected log line %q", out)
	}
	if !strings.Contains(out, `"error":"boom"`) || !strings.Contains(out, `"blockNumber":7`) {
		t.Fatalf("expected fields in log line, got %q", out)
	}
}

func TestWarnMasksSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(prev)

	Warn("basic auth rejected", Fields{"channelKey": "CodexKey001", "path": "/api/transfer"})

	out := buf.String()
	if !strings.Contains(out, "WARN basic auth rejected") {
		t.Fatalf("unexpected log line %q", out)
	}
	if strings.Contains(out, "CodexKey001") {
		t.Fatalf("channel key leaked: %q", out)
	}
	if !strings.Contains(out, `"path":"/api/transfer"`) {
		t.Fatalf("expected path field, got %q", out)
	}
}
