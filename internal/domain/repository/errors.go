package repository

import (
	"errors"
	"fmt"
)

// ErrModelNotFound signals that no trained artifact exists for a requested
// (flow, quantile) pair. The forecast path propagates it; the backtest path
// treats it as a trigger for the naive fallback.
var ErrModelNotFound = errors.New("model artifact not found")

// ErrUnknownDataset signals a flow key with no configured data source.
var ErrUnknownDataset = errors.New("unknown dataset")

// ErrNoHistory signals that a flow has no observed days before the requested
// start date, so there is nothing to derive features from.
var ErrNoHistory = errors.New("no history before start date")

// ErrRunNotFound signals a run ID with no stored record.
var ErrRunNotFound = errors.New("run not found")

// ErrReloadUnsupported signals a dataset reload request against a backend
// that serves live data and has nothing to re-read.
var ErrReloadUnsupported = errors.New("dataset reload not supported by this backend")

// FeatureShapeMismatchError reports a feature vector whose length does not
// match the ordering the model was trained with. Always a bug, never
// recovered silently.
type FeatureShapeMismatchError struct {
	Flow FlowKey
	Got  int
	Want int
}

func (e *FeatureShapeMismatchError) Error() string {
	return fmt.Sprintf("feature count mismatch for model %q: got %d, expected %d", e.Flow, e.Got, e.Want)
}
