package objection

import "strings"

// Status is the lifecycle state of an objection
type Status string

const (
	StatusOpen                          Status = "OPEN"
	StatusProcessed                     Status = "PROCESSED"
	StatusSubmitted                     Status = "SUBMITTED"
	StatusIneligibleCompanyStruckOff    Status = "INELIGIBLE_COMPANY_STRUCK_OFF"
	StatusIneligibleNoDissolutionAction Status = "INELIGIBLE_NO_DISSOLUTION_ACTION"
)

// AllStatuses lists every known status
var AllStatuses = []Status{
	StatusOpen,
	StatusProcessed,
	StatusSubmitted,
	StatusIneligibleCompanyStruckOff,
	StatusIneligibleNoDissolutionAction,
}

// IsValid checks if the status is one of the known values
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusProcessed, StatusSubmitted,
		StatusIneligibleCompanyStruckOff, StatusIneligibleNoDissolutionAction:
		return true
	default:
		return false
	}
}

// IsEligibilityError returns true for the INELIGIBLE_* statuses
func (s Status) IsEligibilityError() bool {
	return s == StatusIneligibleCompanyStruckOff || s == StatusIneligibleNoDissolutionAction
}

// IsEditable returns true while business fields may still be patched
func (s Status) IsEditable() bool {
	return s == StatusOpen
}

// IsValidInitial returns true for statuses an objection may be created with
func (s Status) IsValidInitial() bool {
	return s == StatusOpen || s.IsEligibilityError()
}

// String returns the string representation
func (s Status) String() string {
	return string(s)
}

// ParseStatus converts a raw value into a Status, case-insensitively
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", NewValidationError("status", "unknown objection status: "+raw)
	}
	return s, nil
}
