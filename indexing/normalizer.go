package indexing

import (
	"fmt"
	"math"

	"github.com/textgraph/enricher/helper"
)

// Normalizer transforms an entity popularity score. A negative result
// excludes the entity from the index.
type Normalizer interface {
	Normalize(score float64) float64
}

// NormalizerChain applies normalizers in order. Once a step excludes
// the score the remaining steps are not consulted.
type NormalizerChain []Normalizer

// Normalize implements Normalizer.
func (c NormalizerChain) Normalize(score float64) float64 {
	for _, n := range c {
		score = n.Normalize(score)
		if score < 0 {
			return -1
		}
	}
	return score
}

// BuildNormalizerChain creates the chain described by the configuration.
func BuildNormalizerChain(configs []NormalizerConfig) (NormalizerChain, error) {
	chain := make(NormalizerChain, 0, len(configs))
	for i, nc := range configs {
		switch nc.Type {
		case "log":
			chain = append(chain, logNormalizer{})
		case "min-score":
			chain = append(chain, minScoreNormalizer{min: nc.Min})
		case "boost":
			if nc.Factor <= 0 {
				return nil, helper.NewError("build normalizer chain",
					fmt.Errorf("normalizer %d: boost factor must be positive", i))
			}
			chain = append(chain, boostNormalizer{factor: nc.Factor})
		case "scale-range":
			if nc.Ceiling <= 0 || nc.Upper <= 0 {
				return nil, helper.NewError("build normalizer chain",
					fmt.Errorf("normalizer %d: scale-range needs positive upper and ceiling", i))
			}
			chain = append(chain, scaleRangeNormalizer{upper: nc.Upper, ceiling: nc.Ceiling})
		default:
			return nil, helper.NewError("build normalizer chain",
				fmt.Errorf("normalizer %d: unknown type %q", i, nc.Type))
		}
	}
	return chain, nil
}

// logNormalizer dampens raw popularity counts (incoming links and the
// like) with the natural logarithm.
type logNormalizer struct{}

func (logNormalizer) Normalize(score float64) float64 {
	if score < 0 {
		return -1
	}
	return math.Log1p(score)
}

// minScoreNormalizer excludes entities below a threshold.
type minScoreNormalizer struct {
	min float64
}

func (n minScoreNormalizer) Normalize(score float64) float64 {
	if score < n.min {
		return -1
	}
	return score
}

// boostNormalizer multiplies the score by a constant factor.
type boostNormalizer struct {
	factor float64
}

func (n boostNormalizer) Normalize(score float64) float64 {
	return score * n.factor
}

// scaleRangeNormalizer maps scores from [0, ceiling] to [0, upper],
// clamping values above the ceiling.
type scaleRangeNormalizer struct {
	upper   float64
	ceiling float64
}

func (n scaleRangeNormalizer) Normalize(score float64) float64 {
	if score > n.ceiling {
		score = n.ceiling
	}
	return score / n.ceiling * n.upper
}
