package model

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestLoadStatisticsFromCSV(t *testing.T) {
	csv := "Cycle_Index,Exp_Voltage,Exp_Cell_Type,RUL\n" +
		"100,3.5,NMC,900\n" +
		"200,3.7,NMC,800\n" +
		"300,3.9,LFP,700\n"

	path := filepath.Join(t.TempDir(), "dataset.csv")
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatalf("Failed to write dataset: %v", err)
	}

	stats, err := LoadStatisticsFromCSV(path, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to load statistics: %v", err)
	}

	if v, ok := stats.Median("Cycle_Index"); !ok || v != 200 {
		t.Errorf("Expected Cycle_Index median 200, got %v (ok=%v)", v, ok)
	}
	if v, ok := stats.Median("Exp_Voltage"); !ok || v != 3.7 {
		t.Errorf("Expected Exp_Voltage median 3.7, got %v (ok=%v)", v, ok)
	}

	// Label columns never become statistics.
	if _, ok := stats.Median("RUL"); ok {
		t.Error("Expected RUL to be excluded")
	}
	if _, ok := stats.Median("Exp_Cell_Type"); ok {
		t.Error("Expected Exp_Cell_Type to be excluded")
	}
}

func TestLoadStatisticsDropsNonNumericColumns(t *testing.T) {
	csv := "Cycle_Index,Notes\n" +
		"100,first run\n" +
		"200,second run\n" +
		"300,third run\n"

	path := filepath.Join(t.TempDir(), "dataset.csv")
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatalf("Failed to write dataset: %v", err)
	}

	stats, err := LoadStatisticsFromCSV(path, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to load statistics: %v", err)
	}

	if _, ok := stats.Median("Notes"); ok {
		t.Error("Expected non-numeric column to be dropped")
	}
	if v, ok := stats.Median("Cycle_Index"); !ok || v != 200 {
		t.Errorf("Expected Cycle_Index median 200, got %v (ok=%v)", v, ok)
	}
}

func TestNilStatistics(t *testing.T) {
	var stats *Statistics

	if _, ok := stats.Median("anything"); ok {
		t.Error("Expected nil statistics to report no medians")
	}
	if stats.Len() != 0 {
		t.Error("Expected nil statistics length 0")
	}

	if NewStatistics(nil) != nil {
		t.Error("Expected empty median table to produce nil statistics")
	}
}
