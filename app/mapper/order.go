package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-wallet/app/entity"
	"github.com/vibast-solutions/ms-go-wallet/app/types"
	"github.com/vibast-solutions/ms-go-wallet/config"
)

func OrderToTopUpSession(item *entity.WalletOrder, gatewayCfg config.GatewayConfig) *types.TopUpSessionResponse {
	if item == nil {
		return nil
	}

	return &types.TopUpSessionResponse{
		PaymentID:      item.PaymentID,
		OrderID:        item.OrderID,
		GatewayOrderID: derefString(item.GatewayOrderID),
		AuthToken:      derefString(item.AuthToken),
		MerchantID:     gatewayCfg.MerchantID,
		MerchantLogo:   gatewayCfg.MerchantLogoURL,
		RetryCount:     gatewayCfg.RetryCount,
		UIPreferences:  types.TopUpUIPreferences{CheckoutMode: "popup"},
	}
}

func OrderToTopUpStatus(item *entity.WalletOrder) *types.TopUpStatusResponse {
	if item == nil {
		return nil
	}

	resp := &types.TopUpStatusResponse{
		Status:    orderStatusLabel(item.Status),
		IsSuccess: item.Status == entity.OrderStatusSucceeded,
	}

	switch item.Status {
	case entity.OrderStatusSucceeded:
		resp.BankRefNo = derefString(item.BankRefNo)
		resp.TransactionID = derefString(item.TransactionID)
		if item.PaidAt != nil {
			resp.PaymentDate = item.PaidAt.UTC().Format(time.RFC3339)
		}
	case entity.OrderStatusFailed:
		resp.FailureReason = derefString(item.FailureReason)
	}

	return resp
}

func LedgerEntryToResponse(item *entity.WalletLedgerEntry) *types.LedgerEntryResponse {
	if item == nil {
		return nil
	}

	return &types.LedgerEntryResponse{
		ID:                   item.ID,
		CustomerID:           item.CustomerID,
		AmountCents:          item.AmountCents,
		Direction:            ledgerDirectionLabel(item.Direction),
		PreviousBalanceCents: item.PreviousBalanceCents,
		Source:               ledgerSourceLabel(item.Source),
		Description:          item.Description,
		OrderID:              derefString(item.OrderID),
		AddedAt:              item.AddedAt.UTC().Format(time.RFC3339),
	}
}

func LedgerEntriesToResponse(items []*entity.WalletLedgerEntry) []*types.LedgerEntryResponse {
	result := make([]*types.LedgerEntryResponse, 0, len(items))
	for _, item := range items {
		result = append(result, LedgerEntryToResponse(item))
	}
	return result
}

func orderStatusLabel(status int32) string {
	switch status {
	case entity.OrderStatusCreated:
		return "created"
	case entity.OrderStatusAwaitingCallback:
		return "pending"
	case entity.OrderStatusSucceeded:
		return "succeeded"
	case entity.OrderStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func ledgerDirectionLabel(direction int32) string {
	if direction == entity.LedgerDirectionDebit {
		return "debit"
	}
	return "credit"
}

func ledgerSourceLabel(source int32) string {
	if source == entity.LedgerSourceAdminAdjustment {
		return "admin_adjustment"
	}
	return "gateway_top_up"
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
