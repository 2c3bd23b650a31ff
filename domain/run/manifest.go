package run

import (
	"sort"
	"strings"

	"goab/domain/core"
	"goab/domain/metric"
)

// Manifest identifies a run: which preset was evaluated against which data,
// and a fingerprint of the exact metric configs used.
type Manifest struct {
	RunID       core.RunID     `json:"run_id"`
	Preset      string         `json:"preset,omitempty"`
	Source      string         `json:"source,omitempty"`
	MetricCount int            `json:"metric_count"`
	ConfigHash  core.Hash      `json:"config_hash"`
	CreatedAt   core.Timestamp `json:"created_at"`
}

// NewManifest creates a manifest with a fresh run ID.
func NewManifest(preset, source string, defs []*metric.Definition) Manifest {
	prints := make([]string, 0, len(defs))
	for _, d := range defs {
		prints = append(prints, d.Fingerprint.String())
	}
	sort.Strings(prints)

	return Manifest{
		RunID:       core.NewRunID(),
		Preset:      preset,
		Source:      source,
		MetricCount: len(defs),
		ConfigHash:  core.NewHash([]byte(strings.Join(prints, "\n"))),
		CreatedAt:   core.Now(),
	}
}

// Report is the assembled output of one run.
type Report struct {
	Manifest
	Results []MetricResult `json:"results"`
}

// Failed counts records without a verdict.
func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if !res.OK() {
			n++
		}
	}
	return n
}
