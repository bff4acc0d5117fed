package logger

import (
	"encoding/json"
	"log"
	"strings"
)

type Fields map[string]any

var sensitiveKeys = map[string]struct{}{
	"password":      {},
	"passwordhash":  {},
	"password_hash": {},
	"channelkey":    {},
	"channel_key":   {},
	"authorization": {},
	"token":         {},
}

// Info, Warn and Error write one line per event: the level, the message and
// the sanitized fields as a JSON object.
func Info(message string, fields Fields) {
	emit("INFO", message, fields)
}

// Warn is for conditions the ledger recovers from on its own, such as a
// rejected operation or a dropped live event.
func Warn(message string, fields Fields) {
	emit("WARN", message, fields)
}

func Error(message string, err error, fields Fields) {
	base := make(Fields, len(fields)+1)
	for k, v := range fields {
		base[k] = v
	}
	if err != nil {
		base["error"] = err.Error()
	}

	emit("ERROR", message, base)
}

func emit(level string, message string, fields Fields) {
	log.Printf("%s %s %s", level, message, fieldsJSON(fields))
}

func SanitizePayload(payload any) any {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "<unavailable>"
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return "<unavailable>"
	}

	return sanitizeValue(data)
}

func fieldsJSON(fields Fields) string {
	if fields == nil {
		fields = Fields{}
	}

	sanitized := SanitizePayload(fields)
	b, err := json.Marshal(sanitized)
	if err != nil {
		return `{}`
	}

	return string(b)
}

func sanitizeValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, inner := range typed {
			if isSensitiveKey(key) {
				out[key] = "******"
				continue
			}
			out[key] = sanitizeValue(inner)
		}
		return out
	case []any:
		out := make([]any, 0, len(typed))
		for _, item := range typed {
			out = append(out, sanitizeValue(item))
		}
		return out
	default:
		return value
	}
}

func isSensitiveKey(key string) bool {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(key), "-", ""))
	_, ok := sensitiveKeys[normalized]
	return ok
}
