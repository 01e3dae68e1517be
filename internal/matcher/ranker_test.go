package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"furnish-service/internal/models"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func signalByName(t *testing.T, name string) Signal {
	t.Helper()
	for _, s := range DefaultSignals() {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("signal %s not found", name)
	return Signal{}
}

func TestSignalTable(t *testing.T) {
	bare := &models.Product{DimensionsConfidence: models.DimensionsAbsent}

	tests := []struct {
		signal  string
		points  float64
		in      SignalInput
		applies bool
	}{
		{"price_proximity", 30, SignalInput{Product: bare, PriceRatio: 0.6}, true},
		{"price_proximity", 30, SignalInput{Product: bare, PriceRatio: 1.1}, true},
		{"price_proximity", 30, SignalInput{Product: bare, PriceRatio: 0.5}, false},
		{"price_proximity_loose", 15, SignalInput{Product: bare, PriceRatio: 0.5}, true},
		{"price_proximity_loose", 15, SignalInput{Product: bare, PriceRatio: 1.25}, true},
		{"price_proximity_loose", 15, SignalInput{Product: bare, PriceRatio: 0.8}, false},
		{"price_proximity_loose", 15, SignalInput{Product: bare, PriceRatio: 1.4}, false},
		{"luxury_price", 10, SignalInput{Product: bare, PriceRatio: 0.9, Tier: TierLuxury}, true},
		{"luxury_price", 10, SignalInput{Product: bare, PriceRatio: 0.8, Tier: TierLuxury}, false},
		{"luxury_price", 10, SignalInput{Product: bare, PriceRatio: 0.9, Tier: TierPremium}, false},
		{"usable_image", 25, SignalInput{Product: &models.Product{ImageKey: strPtr("products/a.jpg")}}, true},
		{"usable_image", 25, SignalInput{Product: &models.Product{ImageKey: strPtr("")}}, false},
		{"dimensions_sourced", 20, SignalInput{Product: &models.Product{DimensionsConfidence: models.DimensionsVerified}}, true},
		{"dimensions_sourced", 20, SignalInput{Product: &models.Product{DimensionsConfidence: models.DimensionsEstimatedLow}}, true},
		{"dimensions_sourced", 20, SignalInput{Product: &models.Product{DimensionsConfidence: models.DimensionsAbsent, WidthCM: floatPtr(90)}}, false},
		{"dimensions_width", 10, SignalInput{Product: &models.Product{DimensionsConfidence: models.DimensionsAbsent, WidthCM: floatPtr(90)}}, true},
		{"dimensions_width", 10, SignalInput{Product: &models.Product{DimensionsConfidence: models.DimensionsVerified, WidthCM: floatPtr(90)}}, false},
		{"visual_description", 15, SignalInput{Product: &models.Product{VisualDescription: strPtr("grey fabric sofa")}}, true},
		{"visual_description", 15, SignalInput{Product: &models.Product{VisualDescription: strPtr("")}}, false},
		{"proportions", 15, SignalInput{Product: &models.Product{ProportionWH: floatPtr(2.4)}}, true},
		{"proportions", 15, SignalInput{Product: &models.Product{ProportionWD: floatPtr(2.4)}}, false},
		{"luxury_alignment", 15, SignalInput{Product: &models.Product{LuxuryScore: floatPtr(0.8)}, Tier: TierLuxury}, true},
		{"luxury_alignment", 15, SignalInput{Product: &models.Product{LuxuryScore: floatPtr(0.7)}, Tier: TierLuxury}, false},
		{"budget_alignment", 15, SignalInput{Product: &models.Product{LuxuryScore: floatPtr(0.2)}, Tier: TierBudget}, true},
		{"budget_alignment", 15, SignalInput{Product: &models.Product{LuxuryScore: floatPtr(0.2)}, Tier: TierStandard}, false},
		{"mid_tier_alignment", 10, SignalInput{Product: &models.Product{LuxuryScore: floatPtr(0.5)}, Tier: TierStandard}, true},
		{"mid_tier_alignment", 10, SignalInput{Product: &models.Product{LuxuryScore: floatPtr(0.7)}, Tier: TierPremium}, true},
		{"mid_tier_alignment", 10, SignalInput{Product: &models.Product{LuxuryScore: floatPtr(0.5)}, Tier: TierLuxury}, false},
		{"mid_tier_alignment", 10, SignalInput{Product: &models.Product{}, Tier: TierStandard}, false},
		{"rating", 10, SignalInput{Product: &models.Product{Rating: floatPtr(4.0)}}, true},
		{"rating", 10, SignalInput{Product: &models.Product{Rating: floatPtr(3.9)}}, false},
	}

	for _, tt := range tests {
		s := signalByName(t, tt.signal)
		assert.Equal(t, tt.points, s.Points, tt.signal)
		assert.Equal(t, tt.applies, s.Applies(tt.in), "%s %+v", tt.signal, tt.in)
	}
}

func TestPriceSignalsAreExclusive(t *testing.T) {
	tight := signalByName(t, "price_proximity")
	loose := signalByName(t, "price_proximity_loose")
	p := &models.Product{}

	for ratio := 0.0; ratio <= 2.0; ratio += 0.05 {
		in := SignalInput{Product: p, PriceRatio: ratio}
		assert.False(t, tight.Applies(in) && loose.Applies(in), "ratio %.2f", ratio)
	}
}

func TestScoreSumsSignals(t *testing.T) {
	r := NewRanker(nil)

	p := &models.Product{
		Price:                800,
		ImageKey:             strPtr("products/sofa.jpg"),
		DimensionsConfidence: models.DimensionsVerified,
		VisualDescription:    strPtr("three seat sofa"),
		ProportionWH:         floatPtr(2.5),
		LuxuryScore:          floatPtr(0.5),
		Rating:               floatPtr(4.6),
	}

	score, reasons := r.Score(p, 900, TierStandard)
	assert.Equal(t, 30.0+25+20+15+15+10+10, score)

	names := make([]string, 0, len(reasons))
	for _, reason := range reasons {
		names = append(names, reason.Signal)
	}
	assert.Equal(t, []string{"price_proximity", "usable_image", "dimensions_sourced", "visual_description", "proportions", "mid_tier_alignment", "rating"}, names)

	score, _ = r.Score(&models.Product{Price: 100}, 0, TierStandard)
	assert.Zero(t, score)
}

func TestRankPicksHighestScore(t *testing.T) {
	r := NewRanker(nil)

	candidates := []models.Product{
		{ID: "plain", Price: 500},
		{ID: "rich", Price: 500, ImageKey: strPtr("products/rich.jpg"), ProportionWH: floatPtr(2)},
		{ID: "cheap", Price: 100, ImageKey: strPtr("products/cheap.jpg")},
	}

	best, ok := r.Rank(candidates, 600, TierStandard)
	require.True(t, ok)
	assert.Equal(t, "rich", best.Product.ID)
	assert.Equal(t, 1, best.Index)
	assert.Equal(t, 70.0, best.Score)
}

func TestRankTieKeepsInputOrder(t *testing.T) {
	r := NewRanker(nil)

	candidates := []models.Product{
		{ID: "first", Price: 300},
		{ID: "second", Price: 300},
		{ID: "third", Price: 300},
	}

	for i := 0; i < 10; i++ {
		best, ok := r.Rank(candidates, 300, TierBudget)
		require.True(t, ok)
		assert.Equal(t, "first", best.Product.ID)
	}
}

func TestRankEmpty(t *testing.T) {
	_, ok := NewRanker(nil).Rank(nil, 100, TierStandard)
	assert.False(t, ok)
}

func TestRankWithCustomSignals(t *testing.T) {
	r := NewRanker([]Signal{
		{Name: "oak", Points: 5, Applies: func(in SignalInput) bool {
			return in.Product.PrimaryMaterial != nil && *in.Product.PrimaryMaterial == "oak"
		}},
	})

	best, ok := r.Rank([]models.Product{
		{ID: "pine", PrimaryMaterial: strPtr("pine")},
		{ID: "oak", PrimaryMaterial: strPtr("oak")},
	}, 100, TierStandard)
	require.True(t, ok)
	assert.Equal(t, "oak", best.Product.ID)
	assert.Equal(t, []ScoreReason{{Signal: "oak", Points: 5}}, best.Reasons)
}
