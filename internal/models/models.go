package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillingGroup classifies a report row as prepaid, postpaid, or total.
// Only prepaid rows are persisted downstream.
type BillingGroup string

const (
	GroupPrepaid  BillingGroup = "prepaid"
	GroupPostpaid BillingGroup = "postpaid"
	GroupTotal    BillingGroup = "total"
)

// String returns the string representation of BillingGroup
func (g BillingGroup) String() string {
	return string(g)
}

// IsValid checks if the billing group is valid
func (g BillingGroup) IsValid() bool {
	return g == GroupPrepaid || g == GroupPostpaid || g == GroupTotal
}

// ParseBillingGroup parses a billing group from a string, defaulting to
// prepaid for empty input the way the report sanitizer does.
func ParseBillingGroup(s string) (BillingGroup, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(GroupPrepaid):
		return GroupPrepaid, nil
	case string(GroupPostpaid):
		return GroupPostpaid, nil
	case string(GroupTotal):
		return GroupTotal, nil
	default:
		return "", fmt.Errorf("invalid billing group '%s': must be prepaid, postpaid, or total", s)
	}
}

// ParkingRecord is one normalized (service, date) observation reconstructed
// from a merchant report. ServiceLabel keeps the original free-text row
// label; ServiceCode is the derived 4-digit code (or the label unchanged
// when no code was found) so the lossy collapsing stays auditable.
type ParkingRecord struct {
	ProviderName    string              `json:"providerName"`
	ServiceLabel    string              `json:"serviceLabel"`
	ServiceCode     string              `json:"serviceCode"`
	BillingGroup    BillingGroup        `json:"billingGroup"`
	Price           decimal.NullDecimal `json:"price"`
	TransactionDate *time.Time          `json:"transactionDate"`
	Quantity        decimal.Decimal     `json:"quantity"`
	Amount          decimal.NullDecimal `json:"amount"`

	// Durable identities, assigned by the reference resolver before upsert.
	ProviderID uuid.UUID `json:"providerId"`
	ServiceID  uuid.UUID `json:"serviceId"`
}

// Validate checks the emission invariant: a record may only exist with a
// strictly positive quantity and a known billing group.
func (r *ParkingRecord) Validate() error {
	if strings.TrimSpace(r.ServiceLabel) == "" {
		return fmt.Errorf("service label cannot be empty")
	}

	if !r.BillingGroup.IsValid() {
		return fmt.Errorf("invalid billing group: %s", r.BillingGroup)
	}

	if !r.Quantity.IsPositive() {
		return fmt.Errorf("quantity must be strictly positive, got %s", r.Quantity.String())
	}

	return nil
}

// Persistable reports whether the record passes the import-time filter:
// prepaid group, non-nil date, positive quantity.
func (r *ParkingRecord) Persistable() bool {
	return r.BillingGroup == GroupPrepaid &&
		r.TransactionDate != nil &&
		r.Quantity.IsPositive()
}

// Resolved reports whether durable identities have been assigned.
func (r *ParkingRecord) Resolved() bool {
	return r.ProviderID != uuid.Nil && r.ServiceID != uuid.Nil
}

// DateString returns the canonical YYYY-MM-DD form, or "" for a nil date.
func (r *ParkingRecord) DateString() string {
	if r.TransactionDate == nil {
		return ""
	}
	return r.TransactionDate.Format("2006-01-02")
}

// String returns a string representation of the ParkingRecord
func (r *ParkingRecord) String() string {
	return fmt.Sprintf("ParkingRecord{Provider: %s, Service: %s, Group: %s, Date: %s, Quantity: %s}",
		r.ProviderName, r.ServiceLabel, r.BillingGroup, r.DateString(), r.Quantity.String())
}

// MarshalJSON implements custom JSON marshaling for ParkingRecord
func (r *ParkingRecord) MarshalJSON() ([]byte, error) {
	type Alias ParkingRecord
	return json.Marshal(&struct {
		Price           string `json:"price,omitempty"`
		TransactionDate string `json:"transactionDate,omitempty"`
		Quantity        string `json:"quantity"`
		Amount          string `json:"amount,omitempty"`
		*Alias
	}{
		Price:           nullDecimalString(r.Price),
		TransactionDate: r.DateString(),
		Quantity:        r.Quantity.String(),
		Amount:          nullDecimalString(r.Amount),
		Alias:           (*Alias)(r),
	})
}

// Equals compares two ParkingRecord instances on the conflict key plus
// numeric fields.
func (r *ParkingRecord) Equals(other *ParkingRecord) bool {
	if other == nil {
		return false
	}

	return r.ProviderName == other.ProviderName &&
		r.ServiceLabel == other.ServiceLabel &&
		r.BillingGroup == other.BillingGroup &&
		r.DateString() == other.DateString() &&
		r.Quantity.Equal(other.Quantity) &&
		nullDecimalEqual(r.Price, other.Price) &&
		nullDecimalEqual(r.Amount, other.Amount)
}

func nullDecimalString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func nullDecimalEqual(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	if !a.Valid {
		return true
	}
	return a.Decimal.Equal(b.Decimal)
}

// NewNullDecimal wraps a decimal in a valid NullDecimal.
func NewNullDecimal(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// ProviderEntity is a parking provider resolved or created by natural name.
type ProviderEntity struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	IsActive bool      `json:"isActive"`
}

// ServiceEntity is a parking service resolved or created by its short code.
type ServiceEntity struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	ServiceType string    `json:"serviceType"`
	BillingType string    `json:"billingType"`
}

// Service classification constants shared with the persistent store.
const (
	ServiceTypeParking = "PARKING"
	BillingTypePrepaid = "PREPAID"
)
