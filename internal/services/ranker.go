package services

import (
	"sort"

	"github.com/seongjae-dev/optionpulse/internal/models"
)

const (
	scoreEpsilon = 1e-9

	superMinGearing   = 10.0
	superMaxImplied   = 1.0
	defaultTopperSide = 5
)

// Ranking is the per-side output of the ranker.
type Ranking struct {
	// Top holds the highest-scoring candidates, fed to the AI advisor.
	Top []models.Candidate
	// Super holds the high-conviction subset of the full filtered set,
	// the independent notify trigger regardless of AI output.
	Super []models.Candidate
}

// Ranker scores and orders candidates by reward per unit of option
// cost. Ties keep their filter order: the sort is stable on purpose,
// with no secondary key.
type Ranker struct {
	topN int
}

func NewRanker(topN int) *Ranker {
	if topN <= 0 {
		topN = defaultTopperSide
	}
	return &Ranker{topN: topN}
}

// Score is the candidate ordering key: gearing over implied volatility,
// with a small epsilon guard so an unsolved IV cannot divide by zero.
func Score(c models.ContractMetrics) float64 {
	iv := c.ImpliedVol
	if iv < scoreEpsilon {
		iv = scoreEpsilon
	}
	return c.Gearing / iv
}

// Rank sorts a copy of the filtered candidates descending by score and
// selects the top-N and super subsets. Re-running on the same input
// yields an identical order.
func (r *Ranker) Rank(filtered []models.Candidate) Ranking {
	ranked := make([]models.Candidate, len(filtered))
	copy(ranked, filtered)
	for i := range ranked {
		ranked[i].Score = Score(ranked[i].ContractMetrics)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	top := ranked
	if len(top) > r.topN {
		top = top[:r.topN]
	}

	var super []models.Candidate
	for _, c := range filtered {
		if c.Gearing > superMinGearing && c.ImpliedVol < superMaxImplied {
			sc := c
			sc.Score = Score(c.ContractMetrics)
			super = append(super, sc)
		}
	}

	return Ranking{Top: top, Super: super}
}
