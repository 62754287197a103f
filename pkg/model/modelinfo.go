package model

import "github.com/google/uuid"

// BuilderInfo records how one builder step contributed to a model:
// its name, free-form data provenance (e.g. training URIs), and the
// scalar parameters it was invoked with.
type BuilderInfo struct {
	BuilderName string
	DataInfo    map[string]string
	Parameters  map[string]string
}

// ModelInfo is the immutable provenance record carried by every model.
// AnalysisID is stamped fresh whenever a builder produces a new model
// (even a model built from a prior, e.g. a posterior): the ID
// identifies this specific artifact, while BuilderInfoList is the
// inherited chain of everything that led to it.
type ModelInfo struct {
	AnalysisID      string
	ScoreMatrix     [][]float64 // k x n, may be nil
	BuilderInfoList []BuilderInfo
}

// NewModelInfo creates a ModelInfo with a fresh AnalysisID and the
// given builder info as the first (and so far only) entry in its
// provenance chain.
func NewModelInfo(info BuilderInfo, scores [][]float64) ModelInfo {
	return ModelInfo{
		AnalysisID:      uuid.NewString(),
		ScoreMatrix:     scores,
		BuilderInfoList: []BuilderInfo{info},
	}
}

// Extend returns a new ModelInfo inheriting prior's BuilderInfoList with
// info appended, stamped with a fresh AnalysisID for the new artifact.
func (prior ModelInfo) Extend(info BuilderInfo, scores [][]float64) ModelInfo {
	chain := make([]BuilderInfo, len(prior.BuilderInfoList), len(prior.BuilderInfoList)+1)
	copy(chain, prior.BuilderInfoList)
	chain = append(chain, info)
	return ModelInfo{
		AnalysisID:      uuid.NewString(),
		ScoreMatrix:     scores,
		BuilderInfoList: chain,
	}
}
