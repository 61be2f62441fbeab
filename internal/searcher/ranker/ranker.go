package ranker

import (
	"math"
)

const (
	k1 = 2.0
	b  = 0.75
)

// ScoredDoc is a document with its accumulated relevance.
type ScoredDoc struct {
	DocID uint64
	Score float64
}

// RankParams carries the global statistics of the index.
type RankParams struct {
	TotalDocs    uint64
	AvgDocLength float64
}

func NewRankParams(totalDocs, totalTokens uint64) RankParams {
	params := RankParams{TotalDocs: totalDocs}
	if totalDocs > 0 {
		params.AvgDocLength = float64(totalTokens) / float64(totalDocs)
	}
	return params
}

// Relevance scores one term against one document:
// tf*(k1+1) / (tf + k1*(1 - b + b*dl/avgdl)) * log2(N/df).
func Relevance(termFreq, docFreq, docLength uint64, params RankParams) float64 {
	if docFreq == 0 || params.TotalDocs == 0 {
		return 0
	}
	return computeTFNorm(float64(termFreq), float64(docLength), params.AvgDocLength) *
		computeIDF(params.TotalDocs, docFreq)
}

func computeIDF(totalDocs uint64, docFreq uint64) float64 {
	return math.Log2(float64(totalDocs) / float64(docFreq))
}

func computeTFNorm(termFreq float64, docLength float64, avgDocLength float64) float64 {
	if avgDocLength == 0 {
		return 0
	}
	lengthRatio := docLength / avgDocLength
	denominator := termFreq + k1*(1-b+b*lengthRatio)
	return (termFreq * (k1 + 1)) / denominator
}
