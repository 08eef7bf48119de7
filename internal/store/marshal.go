package store

import (
	"fmt"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/roach88/statefuzz/internal/engine"
	"github.com/roach88/statefuzz/internal/report"
)

// Reports and configs are stored as msgpack BLOBs. Report ids are computed
// over canonical JSON, so the encoding here only has to round-trip.

func marshalReport(r *report.FailureReport) ([]byte, error) {
	data, err := msgpack.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return data, nil
}

func unmarshalReport(data []byte) (*report.FailureReport, error) {
	var r report.FailureReport
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &r, nil
}

func marshalConfig(cfg engine.Config) ([]byte, error) {
	data, err := msgpack.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

func unmarshalConfig(data []byte) (engine.Config, error) {
	var cfg engine.Config
	if err := msgpack.Unmarshal(data, &cfg); err != nil {
		return engine.Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// SQLite integers are signed; seeds use the full uint64 range.
func formatSeed(seed uint64) string {
	return strconv.FormatUint(seed, 10)
}

func parseSeed(s string) (uint64, error) {
	seed, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse seed %q: %w", s, err)
	}
	return seed, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
