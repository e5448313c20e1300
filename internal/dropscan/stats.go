package dropscan

// DropScanStats is a point-in-time snapshot of one Engine run's
// counters, exported separately from Finalize's plain-text summary so
// it can also be rendered as structured diagnostics (see diagnostics.go).
type DropScanStats struct {
	RunID          string
	BlocksScanned  int
	ItemsMatched   int
	ItemsRejected  int
	GibberishItems int
	CSVFiles       int
}

// Stats snapshots the engine's run counters. Safe to call after
// Finalize, when the totals are final.
func (e *Engine) Stats() DropScanStats {
	return DropScanStats{
		RunID:          e.RunID.String(),
		BlocksScanned:  e.totalBlks,
		ItemsMatched:   e.totalItems,
		ItemsRejected:  e.totalRejected,
		GibberishItems: e.totalGibberish,
		CSVFiles:       len(e.csvFiles),
	}
}
