package models

import "time"

// Event types
const (
	EventTypeDesignRequested = "DESIGN_REQUESTED"
	EventTypeDesignMatched   = "DESIGN_MATCHED"
	EventTypeDesignFailed    = "DESIGN_FAILED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// DesignRequestedEvent published when a furnishing request is accepted for async matching
type DesignRequestedEvent struct {
	BaseEvent
	DesignID string       `json:"design_id"`
	Rooms    []RoomLayout `json:"rooms"`
	Budget   float64      `json:"budget"`
	Tier     string       `json:"tier"`
	Style    string       `json:"style,omitempty"`
}

// DesignMatchedEvent published when every room of a design has been matched
type DesignMatchedEvent struct {
	BaseEvent
	DesignID        string           `json:"design_id"`
	BudgetTotal     float64          `json:"budget_total"`
	BudgetSpent     float64          `json:"budget_spent"`
	ProductCount    int              `json:"product_count"`
	UnmetSlots      []UnmetSlotData  `json:"unmet_slots,omitempty"`
	RoomAllocations []RoomBudgetData `json:"room_allocations"`
}

// DesignFailedEvent published when a design could not be matched
type DesignFailedEvent struct {
	BaseEvent
	DesignID  string `json:"design_id"`
	Reason    string `json:"reason"`
	Retryable bool   `json:"retryable"`
}

// UnmetSlotData names a required slot that stayed empty
type UnmetSlotData struct {
	RoomID string `json:"room_id"`
	Slot   string `json:"slot"`
}

// RoomBudgetData represents one room's share of the design budget in events
type RoomBudgetData struct {
	RoomID string  `json:"room_id"`
	Budget float64 `json:"budget"`
	Spent  float64 `json:"spent"`
}
