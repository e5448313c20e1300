package dropscan

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/tkrajina/go-reflector/reflector"
)

// DiagnosticsJSON renders a DropScanStats as an indented JSON object,
// walking its fields via reflection rather than a hand-written
// marshaller per field. DropScanStats is plain enough that
// encoding/json alone would do, but the run summary is expected to
// grow fields (per-table gibberish breakdowns, per-CSV row counts) as
// the drop-scan heuristics mature, and a reflective dumper means a new
// exported field on DropScanStats shows up in --diagnostics output
// without a matching change here.
func DiagnosticsJSON(stats DropScanStats) ([]byte, error) {
	obj := reflector.New(stats)
	out := make(map[string]interface{})
	for _, f := range obj.FieldsFlattened() {
		val, err := f.Get()
		if err != nil {
			return nil, errors.Wrapf(err, "dropscan: reading diagnostics field %q", f.Name())
		}
		out[f.Name()] = val
	}
	return json.MarshalIndent(out, "", "  ")
}
