package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BatchRecord is one checkout batch row in the audit ledger.
type BatchRecord struct {
	ID        string    `db:"id" json:"id"`
	RenterID  string    `db:"renter_id" json:"renter_id"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ItemRecord is one cart item's ledger row.
type ItemRecord struct {
	ItemID        string          `db:"item_id" json:"item_id"`
	BatchID       string          `db:"batch_id" json:"batch_id"`
	ProductID     string          `db:"product_id" json:"product_id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Currency      string          `db:"currency" json:"currency"`
	BookingPhase  string          `db:"booking_phase" json:"booking_phase"`
	BookingID     string          `db:"booking_id" json:"booking_id,omitempty"`
	BookingError  string          `db:"booking_error" json:"booking_error,omitempty"`
	PaymentPhase  string          `db:"payment_phase" json:"payment_phase"`
	TransactionID string          `db:"transaction_id" json:"transaction_id,omitempty"`
	PaymentError  string          `db:"payment_error" json:"payment_error,omitempty"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// CreateBatch inserts a batch and its item rows.
func (s *Store) CreateBatch(ctx context.Context, batch *BatchRecord, items []ItemRecord) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO checkout_batches (id, renter_id, owner_id, status)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO NOTHING`,
		batch.ID, batch.RenterID, batch.OwnerID, batch.Status)
	if err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}

	for _, item := range items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO checkout_items
				(item_id, batch_id, product_id, amount, currency, booking_phase, payment_phase)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (batch_id, item_id) DO NOTHING`,
			item.ItemID, batch.ID, item.ProductID, item.Amount, item.Currency,
			item.BookingPhase, item.PaymentPhase)
		if err != nil {
			return fmt.Errorf("failed to insert batch item: %w", err)
		}
	}

	return tx.Commit()
}

// UpdateBatchStatus updates a batch's status
func (s *Store) UpdateBatchStatus(ctx context.Context, batchID, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE checkout_batches SET status = $1, updated_at = NOW() WHERE id = $2",
		status, batchID)
	return err
}

// UpdateItemBooking records a booking-phase transition for one item.
func (s *Store) UpdateItemBooking(ctx context.Context, batchID, itemID, phase, bookingID, bookingError string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE checkout_items
		 SET booking_phase = $1, booking_id = $2, booking_error = $3, updated_at = NOW()
		 WHERE batch_id = $4 AND item_id = $5`,
		phase, bookingID, bookingError, batchID, itemID)
	return err
}

// UpdateItemPayment records a payment-phase transition for one item.
func (s *Store) UpdateItemPayment(ctx context.Context, batchID, itemID, phase, transactionID, paymentError string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE checkout_items
		 SET payment_phase = $1, transaction_id = $2, payment_error = $3, updated_at = NOW()
		 WHERE batch_id = $4 AND item_id = $5`,
		phase, transactionID, paymentError, batchID, itemID)
	return err
}

// GetBatch retrieves a batch and its items from the ledger.
func (s *Store) GetBatch(ctx context.Context, batchID string) (*BatchRecord, []ItemRecord, error) {
	var batch BatchRecord
	err := s.db.GetContext(ctx, &batch,
		"SELECT * FROM checkout_batches WHERE id = $1", batchID)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("batch not found: %s", batchID)
	}
	if err != nil {
		return nil, nil, err
	}

	var items []ItemRecord
	err = s.db.SelectContext(ctx, &items,
		"SELECT * FROM checkout_items WHERE batch_id = $1 ORDER BY updated_at, item_id", batchID)
	if err != nil {
		return nil, nil, err
	}
	return &batch, items, nil
}

// GetBatchesByRenterID retrieves a renter's batches, newest first.
func (s *Store) GetBatchesByRenterID(ctx context.Context, renterID string) ([]BatchRecord, error) {
	var batches []BatchRecord
	err := s.db.SelectContext(ctx, &batches,
		"SELECT * FROM checkout_batches WHERE renter_id = $1 ORDER BY created_at DESC", renterID)
	return batches, err
}
