package model

import (
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Runtime performs inference against the loaded artifact. It is read-only
// after construction and safe for unsynchronized concurrent use: Predict is
// pure numeric computation with no shared mutable state and no I/O.
type Runtime struct {
	artifact *Artifact

	coeffs *mat.VecDense
	mean   *mat.VecDense
	scale  *mat.VecDense

	logger *zap.Logger
}

// NewRuntime builds the inference runtime from a loaded artifact
func NewRuntime(artifact *Artifact, logger *zap.Logger) (*Runtime, error) {
	if artifact == nil {
		return nil, fmt.Errorf("artifact is required")
	}

	n := len(artifact.FeatureList)
	scale := make([]float64, n)
	for i, s := range artifact.ScalerScale {
		// A zero-variance feature is left unscaled, matching the
		// standard scaler the training pipeline produces.
		if s == 0 {
			scale[i] = 1
		} else {
			scale[i] = s
		}
	}

	return &Runtime{
		artifact: artifact,
		coeffs:   mat.NewVecDense(n, append([]float64(nil), artifact.Coefficients...)),
		mean:     mat.NewVecDense(n, append([]float64(nil), artifact.ScalerMean...)),
		scale:    mat.NewVecDense(n, scale),
		logger:   logger,
	}, nil
}

// Predict standardizes the feature vector with the stored scaler and
// applies the linear model, returning the raw predicted RUL in cycles.
// Position in the vector is meaningful: it must follow FeatureList order.
func (r *Runtime) Predict(vector []float64) (float64, error) {
	n := r.coeffs.Len()
	if len(vector) != n {
		return 0, fmt.Errorf("feature vector has %d values, model expects %d", len(vector), n)
	}

	scaled := mat.NewVecDense(n, nil)
	scaled.SubVec(mat.NewVecDense(n, append([]float64(nil), vector...)), r.mean)
	scaled.DivElemVec(scaled, r.scale)

	rul := r.artifact.Intercept + mat.Dot(r.coeffs, scaled)

	r.logger.Debug("Inference completed", zap.Float64("raw_rul", rul))

	return rul, nil
}

// FeatureList returns the ordered feature names the model expects
func (r *Runtime) FeatureList() []string {
	return r.artifact.FeatureList
}

// MaxRUL returns the health-percentage normalizer
func (r *Runtime) MaxRUL() float64 {
	return r.artifact.MaxRUL
}
