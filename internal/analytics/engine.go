package analytics

import (
	"fmt"
	"strings"
)

// EngineKind identifies one analysis engine.
type EngineKind int

const (
	EngineCorrelation EngineKind = iota + 1
	EngineCluster
	EngineFactors
	EngineAttribution
	EngineFrontier
	EngineScores
)

// EngineKinds lists every engine in display order.
var EngineKinds = []EngineKind{EngineCorrelation, EngineCluster, EngineFactors, EngineAttribution, EngineFrontier, EngineScores}

func (k EngineKind) String() string {
	switch k {
	case EngineCorrelation:
		return "correlation"
	case EngineCluster:
		return "clusters"
	case EngineFactors:
		return "factors"
	case EngineAttribution:
		return "attribution"
	case EngineFrontier:
		return "frontier"
	case EngineScores:
		return "scores"
	}
	return fmt.Sprintf("engine(%d)", int(k))
}

// ParseEngineKind maps an engine name to its kind.
func ParseEngineKind(s string) (EngineKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "correlation", "corr":
		return EngineCorrelation, nil
	case "clusters", "cluster", "clustering":
		return EngineCluster, nil
	case "factors", "pca":
		return EngineFactors, nil
	case "attribution", "alpha", "beta":
		return EngineAttribution, nil
	case "frontier", "hedge":
		return EngineFrontier, nil
	case "scores", "score":
		return EngineScores, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEngine, s)
}

func (k EngineKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
