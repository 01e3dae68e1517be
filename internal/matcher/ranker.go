package matcher

import (
	"furnish-service/internal/models"
)

// SignalInput is what a scoring signal sees about one candidate
type SignalInput struct {
	Product *models.Product
	// PriceRatio is price / target price, zero when the target is not positive
	PriceRatio float64
	Tier       Tier
}

// Signal adds Points to a candidate's score when Applies holds
type Signal struct {
	Name    string
	Points  float64
	Applies func(in SignalInput) bool
}

// ScoreReason records one signal that contributed to a score
type ScoreReason struct {
	Signal string  `json:"signal"`
	Points float64 `json:"points"`
}

// DefaultSignals returns the candidate scoring table
func DefaultSignals() []Signal {
	return []Signal{
		{Name: "price_proximity", Points: 30, Applies: func(in SignalInput) bool {
			return tightPrice(in.PriceRatio)
		}},
		{Name: "price_proximity_loose", Points: 15, Applies: func(in SignalInput) bool {
			return !tightPrice(in.PriceRatio) && in.PriceRatio >= 0.4 && in.PriceRatio <= 1.3
		}},
		{Name: "luxury_price", Points: 10, Applies: func(in SignalInput) bool {
			return in.Tier == TierLuxury && in.PriceRatio > 0.8
		}},
		{Name: "usable_image", Points: 25, Applies: func(in SignalInput) bool {
			return in.Product.HasImage()
		}},
		{Name: "dimensions_sourced", Points: 20, Applies: func(in SignalInput) bool {
			return sourcedDimensions(in.Product)
		}},
		{Name: "dimensions_width", Points: 10, Applies: func(in SignalInput) bool {
			return !sourcedDimensions(in.Product) && in.Product.WidthCM != nil
		}},
		{Name: "visual_description", Points: 15, Applies: func(in SignalInput) bool {
			return in.Product.VisualDescription != nil && *in.Product.VisualDescription != ""
		}},
		{Name: "proportions", Points: 15, Applies: func(in SignalInput) bool {
			return in.Product.ProportionWH != nil
		}},
		{Name: "luxury_alignment", Points: 15, Applies: func(in SignalInput) bool {
			s := in.Product.LuxuryScore
			return s != nil && in.Tier == TierLuxury && *s > 0.7
		}},
		{Name: "budget_alignment", Points: 15, Applies: func(in SignalInput) bool {
			s := in.Product.LuxuryScore
			return s != nil && in.Tier == TierBudget && *s < 0.3
		}},
		{Name: "mid_tier_alignment", Points: 10, Applies: func(in SignalInput) bool {
			s := in.Product.LuxuryScore
			return s != nil && (in.Tier == TierStandard || in.Tier == TierPremium) && *s >= 0.3 && *s <= 0.7
		}},
		{Name: "rating", Points: 10, Applies: func(in SignalInput) bool {
			return in.Product.Rating != nil && *in.Product.Rating >= 4.0
		}},
	}
}

func tightPrice(ratio float64) bool {
	return ratio >= 0.6 && ratio <= 1.1
}

func sourcedDimensions(p *models.Product) bool {
	switch p.DimensionsConfidence {
	case models.DimensionsVerified, models.DimensionsEstimatedHigh, models.DimensionsEstimatedLow:
		return true
	}
	return false
}

// Ranker picks the best candidate for a slot
type Ranker struct {
	signals []Signal
}

// NewRanker creates a ranker over signals; nil means DefaultSignals
func NewRanker(signals []Signal) *Ranker {
	if signals == nil {
		signals = DefaultSignals()
	}
	return &Ranker{signals: signals}
}

// Ranked is the winning candidate with its score
type Ranked struct {
	Product models.Product
	Index   int
	Score   float64
	Reasons []ScoreReason
}

// Score sums the points of every signal that holds for p
func (r *Ranker) Score(p *models.Product, target float64, tier Tier) (float64, []ScoreReason) {
	in := SignalInput{Product: p, Tier: tier}
	if target > 0 {
		in.PriceRatio = p.Price / target
	}

	var score float64
	var reasons []ScoreReason
	for _, s := range r.signals {
		if s.Applies(in) {
			score += s.Points
			reasons = append(reasons, ScoreReason{Signal: s.Name, Points: s.Points})
		}
	}
	return score, reasons
}

// Rank returns the highest scoring candidate. Ties go to the earliest candidate.
// The boolean is false when there are no candidates.
func (r *Ranker) Rank(candidates []models.Product, target float64, tier Tier) (Ranked, bool) {
	best := Ranked{Index: -1}
	for i := range candidates {
		score, reasons := r.Score(&candidates[i], target, tier)
		if best.Index < 0 || score > best.Score {
			best = Ranked{Product: candidates[i], Index: i, Score: score, Reasons: reasons}
		}
	}
	return best, best.Index >= 0
}
