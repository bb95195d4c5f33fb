package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestOrderLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "storefront", "debug")

	Order(l, "ord-1", "reconcile").Info("order paid", "status", "paid")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	for k, want := range map[string]string{"service": "storefront", "order_id": "ord-1", "step": "reconcile", "status": "paid"} {
		if entry[k] != want {
			t.Fatalf("expected %s=%s, got %v", k, want, entry[k])
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "storefront", "warn")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level: %s", buf.String())
	}
}
