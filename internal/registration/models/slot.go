package models

import "fmt"

// SlotCheck is the advisory outcome of a scheduling conflict check. It never
// blocks a write; callers attach Warning to their response.
type SlotCheck struct {
	Booked   bool            `json:"booked"`
	Conflict *ServiceRequest `json:"conflict,omitempty"`
}

// Warning renders the human-readable advisory, or "" when the slot is free.
func (c SlotCheck) Warning() string {
	if !c.Booked || c.Conflict == nil {
		return ""
	}
	return fmt.Sprintf("requested slot %s %s is already booked by an approved request (%s)",
		c.Conflict.Date, c.Conflict.Time, c.Conflict.ID)
}
