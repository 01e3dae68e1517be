package matcher

import "sort"

// PlannedSlot is a slot requirement with its quantity resolved for one match
type PlannedSlot struct {
	SlotRequirement
	Count    int
	Required bool
}

// Plan expands a room type into its ordered required and optional slots.
// Unknown room types fail with *UnknownRoomTypeError.
func (t Tables) Plan(roomType string) (required, optional []PlannedSlot, err error) {
	plan, ok := t.Requirements[NormalizeRoomType(roomType)]
	if !ok {
		return nil, nil, &UnknownRoomTypeError{RoomType: roomType}
	}

	required = make([]PlannedSlot, 0, len(plan.Required))
	for _, req := range plan.Required {
		required = append(required, PlannedSlot{SlotRequirement: req, Count: req.Quantity.Resolve(), Required: true})
	}

	optional = make([]PlannedSlot, 0, len(plan.Optional))
	for _, req := range plan.Optional {
		optional = append(optional, PlannedSlot{SlotRequirement: req, Count: req.Quantity.Resolve()})
	}

	return required, optional, nil
}

// RoomTypes lists every room type with a slot plan, sorted
func (t Tables) RoomTypes() []string {
	return sortedKeys(t.Requirements)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
