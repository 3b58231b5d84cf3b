package model

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// Columns of the training dataset that never become model features.
var excludedColumns = map[string]bool{
	"RUL":           true,
	"Exp_Cell_Type": true,
}

// Statistics holds per-feature training medians used to fill engineered
// features that cannot be derived from a prediction request.
type Statistics struct {
	medians map[string]float64
}

// NewStatistics wraps an explicit median table, typically the
// feature_medians block of model_info.json.
func NewStatistics(medians map[string]float64) *Statistics {
	if len(medians) == 0 {
		return nil
	}
	return &Statistics{medians: medians}
}

// Median returns the training median for a feature by exact name match
func (s *Statistics) Median(name string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	v, ok := s.medians[name]
	return v, ok
}

// Len returns the number of known medians
func (s *Statistics) Len() int {
	if s == nil {
		return 0
	}
	return len(s.medians)
}

// LoadStatisticsFromCSV derives medians from the training dataset. Used
// when the artifact metadata omits feature_medians. Non-numeric columns and
// the excluded label columns are skipped.
func LoadStatisticsFromCSV(path string, logger *zap.Logger) (*Statistics, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset header: %w", err)
	}

	columns := make([][]float64, len(header))
	numeric := make([]bool, len(header))
	for i, name := range header {
		numeric[i] = !excludedColumns[strings.TrimSpace(name)]
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read dataset row: %w", err)
		}

		for i, cell := range record {
			if i >= len(header) || !numeric[i] {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				// Column holds non-numeric data, drop it entirely.
				numeric[i] = false
				columns[i] = nil
				continue
			}
			columns[i] = append(columns[i], v)
		}
	}

	medians := make(map[string]float64)
	for i, name := range header {
		if !numeric[i] || len(columns[i]) == 0 {
			continue
		}
		sort.Float64s(columns[i])
		medians[strings.TrimSpace(name)] = stat.Quantile(0.5, stat.Empirical, columns[i], nil)
	}

	if len(medians) == 0 {
		return nil, fmt.Errorf("dataset %s has no numeric feature columns", path)
	}

	logger.Info("Feature medians derived from dataset",
		zap.String("path", path),
		zap.Int("features", len(medians)),
	)

	return &Statistics{medians: medians}, nil
}
