package domain

import (
	"time"

	"github.com/google/uuid"
)

type ShipmentStatus string

const (
	ShipmentStatusDraft     ShipmentStatus = "draft"
	ShipmentStatusRated     ShipmentStatus = "rated"
	ShipmentStatusPurchased ShipmentStatus = "purchased"
)

// ShippingAddress is the carrier-facing address schema.
type ShippingAddress struct {
	Name    string `json:"name"`
	Street1 string `json:"street1"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
}

// Parcel dimensions for rating. Units follow the carrier API.
type Parcel struct {
	Length       float64 `json:"length"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	DistanceUnit string  `json:"distance_unit"`
	Weight       float64 `json:"weight"`
	MassUnit     string  `json:"mass_unit"`
}

// Rate is one carrier quote. Amount stays in the carrier's decimal
// string form; it is never used for our own arithmetic.
type Rate struct {
	ObjectID      string `json:"object_id"`
	Provider      string `json:"provider"`
	Service       string `json:"service"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	EstimatedDays int    `json:"estimated_days,omitempty"`
	DurationTerms string `json:"duration_terms,omitempty"`
}

type Shipment struct {
	ID                    uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID               uuid.UUID      `gorm:"type:uuid;uniqueIndex" json:"order_id"`
	Provider              string         `gorm:"size:30" json:"provider"`
	Status                ShipmentStatus `gorm:"type:varchar(20);index" json:"status"`
	ProviderShipmentID    string         `gorm:"size:140" json:"provider_shipment_id,omitempty"`
	ProviderRateID        string         `gorm:"size:140" json:"provider_rate_id,omitempty"`
	ProviderTransactionID string         `gorm:"size:140" json:"provider_transaction_id,omitempty"`
	Parcel                *Parcel        `gorm:"type:jsonb;serializer:json" json:"parcel,omitempty"`
	Rates                 []Rate         `gorm:"type:jsonb;serializer:json" json:"rates,omitempty"`
	ChosenRate            *Rate          `gorm:"type:jsonb;serializer:json" json:"chosen_rate,omitempty"`
	LabelURL              string         `gorm:"size:512" json:"label_url,omitempty"`
	ArchivedLabelURL      string         `gorm:"size:512" json:"archived_label_url,omitempty"`
	ArchiveProvider       string         `gorm:"size:30" json:"archive_provider,omitempty"`
	ArchivePublicID       string         `gorm:"size:255" json:"archive_public_id,omitempty"`
	PurchasedAt           *time.Time     `json:"purchased_at,omitempty"`
	TrackingNumber        string         `gorm:"size:100" json:"tracking_number,omitempty"`
	TrackingURL           string         `gorm:"size:512" json:"tracking_url,omitempty"`
	PostageAmount         string         `gorm:"size:20" json:"postage_amount,omitempty"`
	PostageCurrency       string         `gorm:"size:3" json:"postage_currency,omitempty"`
	LabelFormat           string         `gorm:"size:10" json:"label_format,omitempty"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// HasRate reports whether rateID belongs to the stored rate snapshot.
func (s *Shipment) HasRate(rateID string) (Rate, bool) {
	for _, r := range s.Rates {
		if r.ObjectID == rateID {
			return r, true
		}
	}
	return Rate{}, false
}
