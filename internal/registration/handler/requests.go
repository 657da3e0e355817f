package handler

import (
	"intake/internal/registration/models"
	"intake/internal/registration/service"
)

// updateSchedulePayload carries a reschedule. Empty strings clear the slot.
type updateSchedulePayload struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// contactUpdatePayload carries a partial contact update; absent fields leave
// the stored values unchanged.
type contactUpdatePayload struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Gender   string `json:"gender"`
	Address  string `json:"address"`
	Position string `json:"position"`
}

func (p contactUpdatePayload) toUpdate() service.ContactUpdate {
	return service.ContactUpdate{
		Email:    p.Email,
		Phone:    p.Phone,
		Gender:   p.Gender,
		Address:  p.Address,
		Position: p.Position,
	}
}

// transitionResponse is the envelope for lifecycle and schedule endpoints.
type transitionResponse struct {
	Request     *models.ServiceRequest `json:"service_request"`
	SlotWarning string                 `json:"slot_warning,omitempty"`
}
