package repository

import "context"

// OrderSequence hands out gapless-enough order numbers backed by an
// auto-increment table. Allocated values survive restarts and are never
// reused even when the order insert that follows fails.
type OrderSequence struct {
	db DBTX
}

func NewOrderSequence(db DBTX) *OrderSequence {
	return &OrderSequence{db: db}
}

func (s *OrderSequence) Next(ctx context.Context) (uint64, error) {
	result, err := s.db.ExecContext(ctx, `INSERT INTO wallet_order_seq () VALUES ()`)
	if err != nil {
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}
