package matcher

import (
	"fmt"

	"github.com/shopspring/decimal"

	"furnish-service/internal/models"
)

// RoomID returns the key a room is reported under: its ID, or its 1-based position
func RoomID(room models.RoomLayout, index int) string {
	if room.ID != "" {
		return room.ID
	}
	return fmt.Sprintf("room-%d", index+1)
}

// RoomWeight is base_weight(type) * area / reference area.
// Area falls back to width*depth, then to the reference area itself.
func (t Tables) RoomWeight(room models.RoomLayout) float64 {
	base, ok := t.RoomWeights[NormalizeRoomType(room.Type)]
	if !ok {
		base = t.DefaultRoomWeight
	}

	ref := t.ReferenceAreaSqm
	if ref <= 0 {
		ref = 15
	}

	area := room.AreaSqm
	if area <= 0 && room.WidthCM > 0 && room.DepthCM > 0 {
		area = room.WidthCM * room.DepthCM / 10000
	}
	if area <= 0 {
		area = ref
	}
	return base * area / ref
}

// Distribute splits total across rooms in proportion to RoomWeight, rounded to cents.
// Shares always sum exactly to the rounded total; the rounding residue goes to the heaviest room.
func (t Tables) Distribute(rooms []models.RoomLayout, total decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(rooms))
	if len(rooms) == 0 {
		return out
	}
	total = total.Round(2)

	weights := make([]decimal.Decimal, len(rooms))
	sum := decimal.Zero
	heaviest := 0
	for i, room := range rooms {
		weights[i] = decimal.NewFromFloat(t.RoomWeight(room))
		sum = sum.Add(weights[i])
		if weights[i].GreaterThan(weights[heaviest]) {
			heaviest = i
		}
	}
	if !sum.IsPositive() {
		for i := range weights {
			weights[i] = decimal.NewFromInt(1)
		}
		sum = decimal.NewFromInt(int64(len(rooms)))
	}

	shares := make([]decimal.Decimal, len(rooms))
	allotted := decimal.Zero
	for i := range rooms {
		shares[i] = total.Mul(weights[i]).Div(sum).Round(2)
		allotted = allotted.Add(shares[i])
	}
	shares[heaviest] = shares[heaviest].Add(total.Sub(allotted))

	for i, room := range rooms {
		id := RoomID(room, i)
		if prev, ok := out[id]; ok {
			out[id] = prev.Add(shares[i])
			continue
		}
		out[id] = shares[i]
	}
	return out
}
