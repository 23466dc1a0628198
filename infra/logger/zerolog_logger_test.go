package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestZerologWriterEmitsComponentField(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologWriter("runner", &buf)
	l.Infof("year %d done", 2025)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry["component"] != "runner" {
		t.Fatalf("component = %v", entry["component"])
	}
	if entry["message"] != "year 2025 done" {
		t.Fatalf("message = %v", entry["message"])
	}
	if entry["level"] != "info" {
		t.Fatalf("level = %v", entry["level"])
	}
}

func TestZerologWriterStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologWriter("dispatch", &buf)
	l.Debugw("unserved demand", map[string]any{"commodity": "heat", "quantity": 3.5})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry["commodity"] != "heat" {
		t.Fatalf("commodity = %v", entry["commodity"])
	}
	if entry["quantity"] != 3.5 {
		t.Fatalf("quantity = %v", entry["quantity"])
	}
}
