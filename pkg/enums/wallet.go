package enums

import "fmt"

// TransactionKind is the direction of a wallet transaction.
type TransactionKind string

const (
	TransactionKindCredit TransactionKind = "credit"
	TransactionKindDebit  TransactionKind = "debit"
)

var validTransactionKinds = []TransactionKind{
	TransactionKindCredit,
	TransactionKindDebit,
}

// String implements fmt.Stringer.
func (k TransactionKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known TransactionKind.
func (k TransactionKind) IsValid() bool {
	for _, candidate := range validTransactionKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseTransactionKind converts raw input into a TransactionKind.
func ParseTransactionKind(value string) (TransactionKind, error) {
	for _, candidate := range validTransactionKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction kind %q", value)
}

// ReferenceType names the entity a wallet transaction originated from.
type ReferenceType string

const (
	ReferenceTypeVisit   ReferenceType = "visit"
	ReferenceTypeRequest ReferenceType = "request"
	ReferenceTypeAdmin   ReferenceType = "admin"
)

// VerificationMethod records how a visit was verified.
type VerificationMethod string

const (
	VerificationMethodGeofence VerificationMethod = "geofence"
	VerificationMethodManual   VerificationMethod = "manual"
)
