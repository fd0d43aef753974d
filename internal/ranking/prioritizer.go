package ranking

import (
	"sort"

	"github.com/Jennie1434/BDD-lvmh/internal/domain"
	"github.com/Jennie1434/BDD-lvmh/internal/taxonomy"
)

// Tag markers contributing to the priority score.
const (
	TagVIP       = "VIP"
	TagComplaint = "Complaint"

	vipBonus       = 10
	complaintBonus = 20
	unknownWeight  = 1
)

// DefaultCategoryWeights is the fixed lookup table of the general retail
// classification. Unknown categories fall back to weight 1.
var DefaultCategoryWeights = map[string]int{
	"High Jewelry":                 5,
	"Jewelry":                      5,
	"Leather Goods":                4,
	"Ready-to-Wear":                3,
	"Perfume":                      2,
	taxonomy.CategoryGeneral:       1,
	taxonomy.CategoryUncategorized: 0,
}

// Prioritizer computes priority scores and a total order over classified
// records. Pure: no I/O, no clock, no shared state.
type Prioritizer struct {
	weights map[string]int
}

// New builds a prioritizer; nil weights select the default table.
func New(weights map[string]int) *Prioritizer {
	if weights == nil {
		weights = DefaultCategoryWeights
	}
	return &Prioritizer{weights: weights}
}

// Score sums the independent weighted contributions for one record.
func (p *Prioritizer) Score(record domain.ClassifiedRecord) int {
	score := 0
	if record.HasTag(TagVIP) {
		score += vipBonus
	}
	if record.HasTag(TagComplaint) {
		score += complaintBonus
	}
	if weight, ok := p.weights[record.Category]; ok {
		score += weight
	} else {
		score += unknownWeight
	}
	return score
}

// Rank orders records descending by score, breaking ties by recency.
// Records without a timestamp sort after those with one; the sort is
// stable, so equal records keep their original relative order. Rank is
// assigned 1-based on the result.
func (p *Prioritizer) Rank(records []domain.ClassifiedRecord) []domain.RankedRecord {
	ranked := make([]domain.RankedRecord, len(records))
	for i, record := range records {
		ranked[i] = domain.RankedRecord{
			ClassifiedRecord: record,
			PriorityScore:    p.Score(record),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.PriorityScore != b.PriorityScore {
			return a.PriorityScore > b.PriorityScore
		}

		aHas, bHas := !a.Raw.OccurredAt.IsZero(), !b.Raw.OccurredAt.IsZero()
		switch {
		case aHas && !bHas:
			return true
		case !aHas && bHas:
			return false
		case aHas && bHas:
			return a.Raw.OccurredAt.After(b.Raw.OccurredAt)
		default:
			return false
		}
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}
