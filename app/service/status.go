package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-wallet/app/entity"
)

// TopUpStatus resolves a customer-facing poll by opaque payment id. The id
// must be UUID-shaped before any store access happens.
func (s *WalletService) TopUpStatus(ctx context.Context, paymentID string) (*entity.WalletOrder, error) {
	trimmed := strings.TrimSpace(paymentID)
	if _, err := uuid.Parse(trimmed); err != nil {
		return nil, ErrInvalidRequest
	}

	order, err := s.orderRepo.FindByPaymentID(ctx, trimmed)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}
