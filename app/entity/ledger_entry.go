package entity

import "time"

const (
	LedgerDirectionCredit int32 = 1
	LedgerDirectionDebit  int32 = 2
)

const (
	LedgerSourceGatewayTopUp    int32 = 1
	LedgerSourceAdminAdjustment int32 = 2
)

// WalletLedgerEntry is immutable. PreviousBalanceCents is the customer's
// balance immediately before the entry was applied, so entries in time order
// form a verifiable running sum.
type WalletLedgerEntry struct {
	ID uint64

	CustomerID           uint64
	AmountCents          int64
	Direction            int32
	PreviousBalanceCents int64
	Source               int32
	Description          string
	OrderID              *string

	AddedAt time.Time
}

func (e *WalletLedgerEntry) SignedAmountCents() int64 {
	if e.Direction == LedgerDirectionDebit {
		return -e.AmountCents
	}
	return e.AmountCents
}
