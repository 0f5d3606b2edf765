package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-wallet/app/entity"
)

// CallbackRecordRepository is append-only. Every gateway delivery leaves
// exactly one row, including rejected and duplicate ones.
type CallbackRecordRepository struct {
	db DBTX
}

func NewCallbackRecordRepository(db DBTX) *CallbackRecordRepository {
	return &CallbackRecordRepository{db: db}
}

func (r *CallbackRecordRepository) Create(ctx context.Context, record *entity.GatewayCallbackRecord) error {
	query := `
		INSERT INTO gateway_callback_records (
			order_id, envelope, payload_json, disposition, verification_failed, error, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		record.OrderID,
		record.Envelope,
		record.PayloadJSON,
		record.Disposition,
		record.VerificationFailed,
		nullableStringValue(record.Error),
		record.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	record.ID = uint64(id)
	return nil
}

func (r *CallbackRecordRepository) ListByOrderID(ctx context.Context, orderID string) ([]*entity.GatewayCallbackRecord, error) {
	query := `
		SELECT id, order_id, envelope, payload_json, disposition, verification_failed, error, created_at
		FROM gateway_callback_records
		WHERE order_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*entity.GatewayCallbackRecord, 0)
	for rows.Next() {
		item := &entity.GatewayCallbackRecord{}
		var recordErr sql.NullString
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.Envelope,
			&item.PayloadJSON,
			&item.Disposition,
			&item.VerificationFailed,
			&recordErr,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		item.Error = stringPtrFromNull(recordErr)
		records = append(records, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
