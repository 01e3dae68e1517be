package matcher

import (
	"github.com/shopspring/decimal"
)

// SlotBudget is the money assigned to one slot
type SlotBudget struct {
	Slot    decimal.Decimal
	PerItem decimal.Decimal
	// Skip is set for optional slots whose budget is under the minimum floor
	Skip bool
}

// AllocationRange returns the (min, max) budget fraction of slot in roomType,
// or the default range when the table has no entry.
func (t Tables) AllocationRange(roomType, slot string) Range {
	if slots, ok := t.Allocation[roomType]; ok {
		if r, ok := slots[slot]; ok {
			return r
		}
	}
	return t.DefaultAllocation
}

// Allocate computes the budget for one slot.
//
// Required slots draw the upper allocation bound from what is left. Optional slots draw
// min(remaining*OptionalShare, total*upper), are skipped below MinSlotBudget, and each
// unit is capped by the tier's single item fraction of the total.
func (t Tables) Allocate(slot PlannedSlot, roomType string, remaining, total decimal.Decimal, tier Tier) SlotBudget {
	if !remaining.IsPositive() {
		return SlotBudget{Slot: decimal.Zero, PerItem: decimal.Zero, Skip: !slot.Required}
	}

	upper := decimal.NewFromFloat(t.AllocationRange(roomType, slot.Slot).Max)
	count := slot.Count
	if count < 1 {
		count = 1
	}

	var slotBudget decimal.Decimal
	if slot.Required {
		slotBudget = remaining.Mul(upper)
	} else {
		slotBudget = decimal.Min(
			remaining.Mul(decimal.NewFromFloat(t.OptionalShare)),
			total.Mul(upper),
		)
	}
	slotBudget = slotBudget.Truncate(2)

	if !slot.Required && slotBudget.LessThan(t.MinSlotBudget) {
		return SlotBudget{Slot: slotBudget, PerItem: decimal.Zero, Skip: true}
	}

	perItem := slotBudget.Div(decimal.NewFromInt(int64(count))).Truncate(2)
	if !slot.Required {
		profile, _ := t.TierProfile(tier)
		if profile.MaxSingleItemFrac > 0 {
			ceiling := total.Mul(decimal.NewFromFloat(profile.MaxSingleItemFrac)).Truncate(2)
			perItem = decimal.Min(perItem, ceiling)
		}
	}

	return SlotBudget{Slot: slotBudget, PerItem: perItem}
}
