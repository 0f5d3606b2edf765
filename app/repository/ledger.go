package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibast-solutions/ms-go-wallet/app/entity"
)

var ErrCustomerNotFound = errors.New("customer not found")

type LedgerRepository struct {
	db DBTX
}

func NewLedgerRepository(db DBTX) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// BalanceForUpdate locks the customer row for the remainder of the
// transaction so concurrent credits serialize on it.
func (r *LedgerRepository) BalanceForUpdate(ctx context.Context, tx DBTX, customerID uint64) (int64, error) {
	query := `SELECT wallet_balance_cents FROM customers WHERE id = ? FOR UPDATE`

	var balance int64
	if err := tx.QueryRowContext(ctx, query, customerID).Scan(&balance); err == sql.ErrNoRows {
		return 0, ErrCustomerNotFound
	} else if err != nil {
		return 0, err
	}
	return balance, nil
}

func (r *LedgerRepository) Balance(ctx context.Context, customerID uint64) (int64, error) {
	query := `SELECT wallet_balance_cents FROM customers WHERE id = ?`

	var balance int64
	if err := r.db.QueryRowContext(ctx, query, customerID).Scan(&balance); err == sql.ErrNoRows {
		return 0, ErrCustomerNotFound
	} else if err != nil {
		return 0, err
	}
	return balance, nil
}

func (r *LedgerRepository) UpdateBalance(ctx context.Context, tx DBTX, customerID uint64, balanceCents int64) error {
	query := `UPDATE customers SET wallet_balance_cents = ? WHERE id = ?`

	result, err := tx.ExecContext(ctx, query, balanceCents, customerID)
	if err != nil {
		return err
	}
	return requireRow(result, ErrCustomerNotFound)
}

func (r *LedgerRepository) InsertEntry(ctx context.Context, tx DBTX, entry *entity.WalletLedgerEntry) error {
	query := `
		INSERT INTO wallet_ledger_entries (
			customer_id, amount_cents, direction, previous_balance_cents, source, description, order_id, added_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := tx.ExecContext(ctx, query,
		entry.CustomerID,
		entry.AmountCents,
		entry.Direction,
		entry.PreviousBalanceCents,
		entry.Source,
		entry.Description,
		nullableStringValue(entry.OrderID),
		entry.AddedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = uint64(id)
	return nil
}

func (r *LedgerRepository) ListEntries(ctx context.Context, customerID uint64) ([]*entity.WalletLedgerEntry, error) {
	query := `
		SELECT id, customer_id, amount_cents, direction, previous_balance_cents, source, description, order_id, added_at
		FROM wallet_ledger_entries
		WHERE customer_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*entity.WalletLedgerEntry, 0)
	for rows.Next() {
		item := &entity.WalletLedgerEntry{}
		var orderID sql.NullString
		if err := rows.Scan(
			&item.ID,
			&item.CustomerID,
			&item.AmountCents,
			&item.Direction,
			&item.PreviousBalanceCents,
			&item.Source,
			&item.Description,
			&orderID,
			&item.AddedAt,
		); err != nil {
			return nil, err
		}
		item.OrderID = stringPtrFromNull(orderID)
		entries = append(entries, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
