package selection

import (
	"sort"

	"github.com/wonny/limitup/internal/contracts"
)

// TopN ranks results by probability descending and returns the first n.
// Ties are broken by symbol ascending so the order never depends on map iteration.
// ⭐ SSOT: 랭킹 순서 규칙은 여기서만
func TopN(results map[string]contracts.ScoreResult, n int) []contracts.RankedStock {
	ranked := Rank(results)
	if n >= 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// Rank orders all results and assigns 1-based ranks
func Rank(results map[string]contracts.ScoreResult) []contracts.RankedStock {
	ranked := make([]contracts.RankedStock, 0, len(results))
	for symbol, res := range results {
		ranked = append(ranked, contracts.RankedStock{
			Symbol:      symbol,
			Name:        res.Name,
			Probability: res.Probability,
			Tier:        res.Tier,
		})
	}

	// Sort by probability (descending), then symbol (ascending)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Probability != ranked[j].Probability {
			return ranked[i].Probability > ranked[j].Probability
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})

	// Assign ranks
	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	return ranked
}

func sortedKeys(m map[string]contracts.ScoreResult) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
