package models

// Result is the structured outcome of a registration. Success is true only
// when every persisted step and every notification succeeded. When the
// entities persisted but one or more notifications failed, Success is false
// while Person/Request (and Credential) are still populated and NotifyErrors
// is non-empty. Callers distinguish this partial outcome from a hard failure
// by the presence of the data.
type Result struct {
	Success         bool            `json:"success"`
	Message         string          `json:"message"`
	Person          *Person         `json:"person,omitempty"`
	Request         *ServiceRequest `json:"service_request,omitempty"`
	Credential      *Credential     `json:"credential,omitempty"`
	GeneratedSecret string          `json:"generated_secret,omitempty"`
	Reconciled      bool            `json:"reconciled"`
	SlotWarning     string          `json:"slot_warning,omitempty"`
	NotifyErrors    []string        `json:"notify_errors,omitempty"`
}
