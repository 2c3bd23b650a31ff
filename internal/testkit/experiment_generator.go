package testkit

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strconv"
	"time"

	"goab/domain/dataset"

	"gonum.org/v1/gonum/stat"
)

// ExperimentColumns is the column layout of generated session data.
var ExperimentColumns = []string{
	"experiment", "experiment_variant", "client_id", "session_id", "date",
	"views", "clicks", "converted", "revenue",
}

// ExperimentGeneratorConfig configures the synthetic A/B data generator
type ExperimentGeneratorConfig struct {
	Experiments          []string  `json:"experiments"`
	Variants             []string  `json:"variants"`
	ClientCount          int       `json:"client_count"`
	AvgSessionsPerClient float64   `json:"avg_sessions_per_client"`
	MaxViewsPerSession   int       `json:"max_views_per_session"`
	BaseCTR              float64   `json:"base_ctr"`
	BaseConversion       float64   `json:"base_conversion"`
	AvgOrderValue        float64   `json:"avg_order_value"`
	TreatmentLift        float64   `json:"treatment_lift"` // relative, applied to every non-control variant
	StartDate            time.Time `json:"start_date"`
	Days                 int       `json:"days"`
	Seed                 int64     `json:"seed"`
}

// DefaultExperimentConfig returns a small two-variant experiment with a 5% lift
func DefaultExperimentConfig() ExperimentGeneratorConfig {
	return ExperimentGeneratorConfig{
		Experiments:          []string{"exp_checkout"},
		Variants:             []string{"0", "1"},
		ClientCount:          1000,
		AvgSessionsPerClient: 3,
		MaxViewsPerSession:   12,
		BaseCTR:              0.08,
		BaseConversion:       0.05,
		AvgOrderValue:        45,
		TreatmentLift:        0.05,
		StartDate:            time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Days:                 14,
		Seed:                 42,
	}
}

// ExperimentDataGenerator produces one row per client session
type ExperimentDataGenerator struct {
	config ExperimentGeneratorConfig
	rng    *rand.Rand
}

// NewExperimentDataGenerator creates a generator; equal seeds give equal data.
func NewExperimentDataGenerator(config ExperimentGeneratorConfig) *ExperimentDataGenerator {
	return &ExperimentDataGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// GenerateRows generates every session row in ExperimentColumns order.
func (g *ExperimentDataGenerator) GenerateRows() ([][]string, error) {
	if len(g.config.Variants) < 2 {
		return nil, fmt.Errorf("need at least two variants, got %d", len(g.config.Variants))
	}
	if len(g.config.Experiments) == 0 {
		return nil, fmt.Errorf("need at least one experiment")
	}
	if g.config.ClientCount < 1 || g.config.MaxViewsPerSession < 1 {
		return nil, fmt.Errorf("client count and views per session must be positive")
	}

	var rows [][]string
	for _, experiment := range g.config.Experiments {
		for i := 0; i < g.config.ClientCount; i++ {
			clientID := fmt.Sprintf("c%06d", i+1)
			variant := g.rng.Intn(len(g.config.Variants))
			rows = append(rows, g.clientSessions(experiment, clientID, variant)...)
		}
	}
	return rows, nil
}

func (g *ExperimentDataGenerator) clientSessions(experiment, clientID string, variant int) [][]string {
	lift := 1.0
	if variant > 0 {
		lift += g.config.TreatmentLift
	}
	ctr := math.Min(1, g.config.BaseCTR*lift)
	conversion := math.Min(1, g.config.BaseConversion*lift)

	sessions := 1 + g.poisson(math.Max(0, g.config.AvgSessionsPerClient-1))
	rows := make([][]string, 0, sessions)
	for s := 0; s < sessions; s++ {
		views := 1 + g.rng.Intn(g.config.MaxViewsPerSession)
		clicks := 0
		for v := 0; v < views; v++ {
			if g.rng.Float64() < ctr {
				clicks++
			}
		}

		converted, revenue := 0, 0.0
		if g.rng.Float64() < conversion {
			converted = 1
			// log-normal basket centred on the average order value
			revenue = g.config.AvgOrderValue * math.Exp(g.rng.NormFloat64()*0.4-0.08)
		}

		day := 0
		if g.config.Days > 0 {
			day = g.rng.Intn(g.config.Days)
		}

		rows = append(rows, []string{
			experiment,
			g.config.Variants[variant],
			clientID,
			fmt.Sprintf("%s-s%02d", clientID, s+1),
			g.config.StartDate.AddDate(0, 0, day).Format("2006-01-02"),
			strconv.Itoa(views),
			strconv.Itoa(clicks),
			strconv.Itoa(converted),
			strconv.FormatFloat(math.Round(revenue*100)/100, 'f', 2, 64),
		})
	}
	return rows
}

// poisson draws from Poisson(lambda) by Knuth's multiplication method.
func (g *ExperimentDataGenerator) poisson(lambda float64) int {
	limit := math.Exp(-lambda)
	k, p := 0, g.rng.Float64()
	for p > limit {
		k++
		p *= g.rng.Float64()
	}
	return k
}

// GenerateTable generates the data as a raw table.
func (g *ExperimentDataGenerator) GenerateTable() (*dataset.Table, error) {
	rows, err := g.GenerateRows()
	if err != nil {
		return nil, err
	}
	return dataset.NewTable(ExperimentColumns, rows)
}

// WriteCSV generates the data and writes it with a header row.
func (g *ExperimentDataGenerator) WriteCSV(w io.Writer) (int, error) {
	rows, err := g.GenerateRows()
	if err != nil {
		return 0, err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(ExperimentColumns); err != nil {
		return 0, err
	}
	if err := cw.WriteAll(rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// VariantSummary is the row-level mean and variance of one field in one variant.
type VariantSummary struct {
	Variant  string
	Rows     int
	Mean     float64
	Variance float64
}

// Summarize computes per-variant row-level moments of a numeric field,
// a quick sanity check for generated data.
func Summarize(table *dataset.Table, variantCol, field string) ([]VariantSummary, error) {
	variants, err := table.Column(variantCol)
	if err != nil {
		return nil, err
	}
	values, err := table.Column(field)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]float64)
	for i, raw := range values {
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", field, i, err)
		}
		grouped[variants[i]] = append(grouped[variants[i]], v)
	}

	labels := make([]string, 0, len(grouped))
	for label := range grouped {
		labels = append(labels, label)
	}
	dataset.SortLabels(labels)

	out := make([]VariantSummary, 0, len(labels))
	for _, label := range labels {
		mean, variance := stat.MeanVariance(grouped[label], nil)
		out = append(out, VariantSummary{Variant: label, Rows: len(grouped[label]), Mean: mean, Variance: variance})
	}
	return out, nil
}
