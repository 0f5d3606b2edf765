package entity

import "time"

const (
	CallbackRecordApplied  int32 = 10
	CallbackRecordIgnored  int32 = 20
	CallbackRecordRejected int32 = 30
)

// GatewayCallbackRecord is an append-only audit row, one per inbound
// delivery, including duplicates and verification failures. Never updated.
type GatewayCallbackRecord struct {
	ID uint64

	OrderID string

	Envelope    string
	PayloadJSON string

	Disposition        int32
	VerificationFailed bool
	Error              *string

	CreatedAt time.Time
}
