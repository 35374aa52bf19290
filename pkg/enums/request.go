package enums

import (
	"fmt"
	"strings"
)

// RequestType is the kind of change a user asks the admins to make.
type RequestType string

const (
	RequestTypeNewParkingSite RequestType = "new_parking_site"
	RequestTypeNoParkingZone  RequestType = "no_parking_zone"
)

var validRequestTypes = []RequestType{
	RequestTypeNewParkingSite,
	RequestTypeNoParkingZone,
}

// String implements fmt.Stringer.
func (r RequestType) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RequestType.
func (r RequestType) IsValid() bool {
	for _, candidate := range validRequestTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRequestType converts raw input into a RequestType. The short forms "parking" and
// "no_parking" used by older clients are accepted.
func ParseRequestType(value string) (RequestType, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "parking":
		return RequestTypeNewParkingSite, nil
	case "no_parking":
		return RequestTypeNoParkingZone, nil
	}
	for _, candidate := range validRequestTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid request type %q", value)
}

// RequestStatus tracks the moderation state of a request. Approved and denied are terminal.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusDenied   RequestStatus = "denied"
)

var validRequestStatuses = []RequestStatus{
	RequestStatusPending,
	RequestStatusApproved,
	RequestStatusDenied,
}

// String implements fmt.Stringer.
func (s RequestStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known RequestStatus.
func (s RequestStatus) IsValid() bool {
	for _, candidate := range validRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusApproved || s == RequestStatusDenied
}

// ParseRequestStatus converts raw input into a RequestStatus.
func ParseRequestStatus(value string) (RequestStatus, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid request status %q", value)
}
