package model

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Artifact file names produced by the training pipeline.
const (
	modelFile  = "model.json"
	scalerFile = "feature_scaler.json"
	infoFile   = "model_info.json"
)

// DefaultMaxRUL is used when the artifact metadata omits max_rul. It is a
// configured constant, never derived from the dataset at runtime.
const DefaultMaxRUL = 1200

// ModelLoadError indicates the trained artifact is missing or malformed.
// It is fatal at startup: the process must not serve with a half-loaded
// model.
type ModelLoadError struct {
	Name string
	Err  error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("model artifact %s: %v", e.Name, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// Artifact is the immutable trained model plus its metadata. It is loaded
// once at process start and shared read-only across all requests.
type Artifact struct {
	ModelType    string
	Intercept    float64
	Coefficients []float64

	ScalerMean  []float64
	ScalerScale []float64

	FeatureList []string
	MaxRUL      float64

	// Medians carries per-feature training medians when model_info.json
	// includes them. May be nil; see statistics.go for the dataset path.
	Medians map[string]float64
}

type modelDoc struct {
	ModelType    string    `json:"model_type"`
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

type scalerDoc struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

type infoDoc struct {
	FeatureNames   []string           `json:"feature_names"`
	MaxRUL         float64            `json:"max_rul"`
	FeatureMedians map[string]float64 `json:"feature_medians"`
}

// LoadArtifact reads the three artifact documents from the store and
// cross-checks their dimensions. defaultMaxRUL is applied when the metadata
// omits max_rul.
func LoadArtifact(ctx context.Context, store Store, defaultMaxRUL float64, logger *zap.Logger) (*Artifact, error) {
	var model modelDoc
	if err := readDoc(ctx, store, modelFile, &model); err != nil {
		return nil, err
	}

	var scaler scalerDoc
	if err := readDoc(ctx, store, scalerFile, &scaler); err != nil {
		return nil, err
	}

	var info infoDoc
	if err := readDoc(ctx, store, infoFile, &info); err != nil {
		return nil, err
	}

	if len(info.FeatureNames) == 0 {
		return nil, &ModelLoadError{Name: infoFile, Err: fmt.Errorf("feature_names is empty")}
	}

	n := len(info.FeatureNames)
	if len(model.Coefficients) != n {
		return nil, &ModelLoadError{Name: modelFile, Err: fmt.Errorf(
			"coefficient count %d does not match %d features", len(model.Coefficients), n)}
	}
	if len(scaler.Mean) != n || len(scaler.Scale) != n {
		return nil, &ModelLoadError{Name: scalerFile, Err: fmt.Errorf(
			"scaler dimensions %d/%d do not match %d features", len(scaler.Mean), len(scaler.Scale), n)}
	}

	maxRUL := info.MaxRUL
	if maxRUL <= 0 {
		maxRUL = defaultMaxRUL
		logger.Warn("Artifact metadata omits max_rul, using configured default",
			zap.Float64("max_rul", maxRUL),
		)
	}

	logger.Info("Model artifact loaded",
		zap.String("model_type", model.ModelType),
		zap.Int("features", n),
		zap.Float64("max_rul", maxRUL),
		zap.Int("medians", len(info.FeatureMedians)),
	)

	return &Artifact{
		ModelType:    model.ModelType,
		Intercept:    model.Intercept,
		Coefficients: model.Coefficients,
		ScalerMean:   scaler.Mean,
		ScalerScale:  scaler.Scale,
		FeatureList:  info.FeatureNames,
		MaxRUL:       maxRUL,
		Medians:      info.FeatureMedians,
	}, nil
}

func readDoc(ctx context.Context, store Store, name string, out interface{}) error {
	data, err := store.ReadFile(ctx, name)
	if err != nil {
		return &ModelLoadError{Name: name, Err: err}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ModelLoadError{Name: name, Err: fmt.Errorf("malformed JSON: %w", err)}
	}
	return nil
}
