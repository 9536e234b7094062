package observ

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func TestLog_SingleJSONLine(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)

	Log("trade_resolved", map[string]any{"trade_id": "abc", "minutes": 30})
	Warn("scan_degraded", map[string]any{"error": "timeout"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("want 2 lines, got %d", len(lines))
	}
	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("not json: %v", err)
	}
	if first["event"] != "trade_resolved" || first["trade_id"] != "abc" {
		t.Fatalf("wrong fields: %v", first)
	}
	if !strings.Contains(lines[1], `"level":"warn"`) {
		t.Fatalf("warn level missing: %s", lines[1])
	}
}

func TestCounters_LabelsCanonical(t *testing.T) {
	Reset()
	IncCounter("signals_generated", map[string]string{"pattern": "fed_dovish", "conviction": "HIGH"})
	IncCounter("signals_generated", map[string]string{"conviction": "HIGH", "pattern": "fed_dovish"})

	got := CounterValue("signals_generated", map[string]string{"pattern": "fed_dovish", "conviction": "HIGH"})
	if got != 2 {
		t.Fatalf("label order must not split series: want 2, got %d", got)
	}
}

func TestHandler_DumpsRegistry(t *testing.T) {
	Reset()
	IncCounterBy("feed_new_items", nil, 7)
	SetGauge("active_signals", 3, nil)
	Observe("scan_seconds", 1.25, nil)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	var dump struct {
		Counters map[string]map[string]int64     `json:"counters"`
		Gauges   map[string]map[string]float64   `json:"gauges"`
		Hist     map[string]map[string][]float64 `json:"histograms"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &dump); err != nil {
		t.Fatalf("dump not json: %v", err)
	}
	if dump.Counters["feed_new_items"][""] != 7 {
		t.Fatalf("counter missing from dump: %v", dump.Counters)
	}
	if dump.Gauges["active_signals"][""] != 3 {
		t.Fatalf("gauge missing from dump: %v", dump.Gauges)
	}
	if len(dump.Hist["scan_seconds"][""]) != 1 {
		t.Fatalf("histogram missing from dump: %v", dump.Hist)
	}
}
