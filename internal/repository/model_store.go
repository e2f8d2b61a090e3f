package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	domrepo "CargoCast/internal/domain/repository"
	applogger "CargoCast/pkg/logger"

	"github.com/dmitryikh/leaves"
)

// Artifact naming mirrors the training pipeline output: one gradient-boosted
// model file per (flow, quantile) plus a feature-order sidecar per flow.
var modelFiles = map[domrepo.FlowKey]map[domrepo.QuantileLabel]string{
	domrepo.FlowExport: {
		domrepo.QuantP50: "xgb_export.model",
		domrepo.QuantP05: "xgb_export_p05.model",
		domrepo.QuantP95: "xgb_export_p95.model",
	},
	domrepo.FlowImport: {
		domrepo.QuantP50: "xgb_import.model",
		domrepo.QuantP05: "xgb_import_p05.model",
		domrepo.QuantP95: "xgb_import_p95.model",
	},
	domrepo.FlowTransitExport: {
		domrepo.QuantP50: "xgb_tra_export.model",
		domrepo.QuantP05: "xgb_tra_export_p05.model",
		domrepo.QuantP95: "xgb_tra_export_p95.model",
	},
	domrepo.FlowTransitImport: {
		domrepo.QuantP50: "xgb_tra_import.model",
		domrepo.QuantP05: "xgb_tra_import_p05.model",
		domrepo.QuantP95: "xgb_tra_import_p95.model",
	},
}

var featureFiles = map[domrepo.FlowKey]string{
	domrepo.FlowExport:        "xgb_export_features.json",
	domrepo.FlowImport:        "xgb_import_features.json",
	domrepo.FlowTransitExport: "xgb_tra_export_features.json",
	domrepo.FlowTransitImport: "xgb_tra_import_features.json",
}

// FSModelStore loads trained XGBoost artifacts from a local directory. The
// models predict in log1p space; the returned estimators invert the transform
// so callers always see original units (kg, >= 0).
type FSModelStore struct {
	dir string
	l   *applogger.Logger
}

func NewFSModelStore(dir string) *FSModelStore {
	return &FSModelStore{dir: dir}
}

// SetLogger injects a structured logger.
func (s *FSModelStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *FSModelStore) Load(ctx context.Context, flow domrepo.FlowKey, q domrepo.QuantileLabel) (domrepo.Estimator, error) {
	files, ok := modelFiles[flow]
	if !ok {
		return nil, fmt.Errorf("%w: unknown flow %q", domrepo.ErrModelNotFound, flow)
	}
	name, ok := files[q]
	if !ok {
		return nil, fmt.Errorf("%w: unknown quantile %q", domrepo.ErrModelNotFound, q)
	}

	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s/%s (%s)", domrepo.ErrModelNotFound, flow, q, path)
	}

	ensemble, err := leaves.XGEnsembleFromFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("load ensemble %s: %w", path, err)
	}

	cols, err := s.FeatureNames(ctx, flow)
	if err != nil {
		return nil, err
	}

	if s.l != nil {
		s.l.Info("model artifact loaded",
			applogger.String("flow", string(flow)),
			applogger.String("quantile", string(q)),
			applogger.String("path", path),
		)
	}
	return &xgbEstimator{flow: flow, ensemble: ensemble, nFeatures: len(cols)}, nil
}

func (s *FSModelStore) FeatureNames(_ context.Context, flow domrepo.FlowKey) ([]string, error) {
	name, ok := featureFiles[flow]
	if !ok {
		return nil, fmt.Errorf("%w: unknown flow %q", domrepo.ErrModelNotFound, flow)
	}

	path := filepath.Join(s.dir, name)
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: feature list for %s (%s)", domrepo.ErrModelNotFound, flow, path)
		}
		return nil, fmt.Errorf("read feature list %s: %w", path, err)
	}

	var cols []string
	if err := json.Unmarshal(b, &cols); err != nil {
		return nil, fmt.Errorf("parse feature list %s: %w", path, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("feature list %s is empty", path)
	}
	return cols, nil
}

// xgbEstimator wraps a boosted-tree ensemble trained on log1p targets.
type xgbEstimator struct {
	flow      domrepo.FlowKey
	ensemble  *leaves.Ensemble
	nFeatures int
}

func (e *xgbEstimator) Predict(features []float64) (float64, error) {
	if len(features) != e.nFeatures {
		return 0, &domrepo.FeatureShapeMismatchError{Flow: e.flow, Got: len(features), Want: e.nFeatures}
	}
	raw := e.ensemble.PredictSingle(features, 0)
	v := math.Expm1(raw)
	if v < 0 {
		v = 0
	}
	return v, nil
}
