package matcher

import (
	"math"

	"furnish-service/internal/models"
)

// Placement kinds
const (
	PlacementWall = "wall"
	PlacementZone = "zone"
)

// Placement hints where a matched item goes in the room
type Placement struct {
	Kind     string     `json:"kind"`
	Ref      string     `json:"ref"`
	LengthCM float64    `json:"length_cm,omitempty"`
	AreaCM   [2]float64 `json:"area_cm,omitempty"`
}

func wallFor(room models.RoomLayout, slot string) (models.UsableWall, bool) {
	for _, w := range room.UsableWalls {
		if w.FreeLengthCM <= 0 {
			continue
		}
		for _, kind := range w.SuitableFor {
			if kind == slot {
				return w, true
			}
		}
	}
	return models.UsableWall{}, false
}

// MaxWidth returns the widest item (cm) slot may hold in room, or nil when unconstrained.
// A usable wall that lists the slot wins; otherwise the proportional limit table applies,
// then a flat fraction of the room width.
func (t Tables) MaxWidth(room models.RoomLayout, slot string) *float64 {
	if w, ok := wallFor(room, slot); ok {
		v := w.FreeLengthCM
		return &v
	}

	if room.WidthCM <= 0 {
		return nil
	}

	if lim, ok := t.WidthLimits[slot]; ok && lim.Fraction > 0 {
		v := room.WidthCM * lim.Fraction
		if lim.CapCM > 0 {
			v = math.Min(v, lim.CapCM)
		}
		return &v
	}

	if t.FallbackWidthFraction > 0 {
		v := room.WidthCM * t.FallbackWidthFraction
		return &v
	}
	return nil
}

// PlacementFor derives a wall or zone hint for slot from the room layout
func (t Tables) PlacementFor(room models.RoomLayout, slot string) *Placement {
	if w, ok := wallFor(room, slot); ok {
		return &Placement{Kind: PlacementWall, Ref: w.Wall, LengthCM: w.FreeLengthCM}
	}

	zone, ok := t.SlotZones[slot]
	if !ok {
		return nil
	}
	for _, z := range room.FurnitureZones {
		if z.Zone == zone {
			return &Placement{Kind: PlacementZone, Ref: z.Zone, AreaCM: z.AreaCM}
		}
	}
	return nil
}
