package dropscan

import (
	"encoding/json"
	"testing"
)

func TestDiagnosticsJSONRoundTrips(t *testing.T) {
	stats := DropScanStats{
		RunID:          "11111111-1111-1111-1111-111111111111",
		BlocksScanned:  42,
		ItemsMatched:   10,
		ItemsRejected:  3,
		GibberishItems: 1,
		CSVFiles:       2,
	}

	blob, err := DiagnosticsJSON(stats)
	if err != nil {
		t.Fatalf("DiagnosticsJSON: %v", err)
	}

	var out map[string]interface{}
	if err := json.Unmarshal(blob, &out); err != nil {
		t.Fatalf("unmarshal diagnostics: %v", err)
	}
	if out["RunID"] != stats.RunID {
		t.Fatalf("unexpected RunID field: %+v", out)
	}
	if int(out["BlocksScanned"].(float64)) != stats.BlocksScanned {
		t.Fatalf("unexpected BlocksScanned field: %+v", out)
	}
}
