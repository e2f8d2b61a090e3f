package repository

import "strings"

// FlowKey identifies one of the four independently modeled cargo flows.
type FlowKey string

const (
	FlowExport        FlowKey = "export"
	FlowImport        FlowKey = "import"
	FlowTransitExport FlowKey = "tra_export"
	FlowTransitImport FlowKey = "tra_import"
)

// QuantileLabel identifies one of the trained quantile estimators of a flow.
type QuantileLabel string

const (
	QuantP50 QuantileLabel = "p50"
	QuantP05 QuantileLabel = "p05"
	QuantP95 QuantileLabel = "p95"
)

// AllFlows lists the supported flow keys in stable order.
func AllFlows() []FlowKey {
	return []FlowKey{FlowExport, FlowImport, FlowTransitExport, FlowTransitImport}
}

// IsValidFlow returns true if key is a supported flow.
func IsValidFlow(key FlowKey) bool {
	switch key {
	case FlowExport, FlowImport, FlowTransitExport, FlowTransitImport:
		return true
	default:
		return false
	}
}

// NormalizeFlowKey converts a raw path segment to a flow key. Legacy clients
// send prefixed model names (xgb_export, model_import, ...), so known prefixes
// are stripped before validation.
func NormalizeFlowKey(s string) (FlowKey, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, prefix := range []string{"xgb_", "model_", "forecast_"} {
		key = strings.TrimPrefix(key, prefix)
	}
	fk := FlowKey(key)
	return fk, IsValidFlow(fk)
}
