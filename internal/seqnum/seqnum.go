// Package seqnum generates the per-entity counters named in §5 (PO
// number, receipt number, shipment number) by serializing on a dedicated
// sequence row per counter name, rather than relying on a UUID or a
// database SERIAL column, so the numbers stay small and sequential even
// under concurrent writers.
package seqnum

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Next atomically increments and returns the counter named by seq (e.g.
// "po_number", "receipt_number", "shipment_number"), formatted with the
// given prefix, inside the caller's transaction.
func Next(ctx context.Context, tx *sqlx.Tx, seq, prefix string) (string, error) {
	var n int64
	err := tx.QueryRowxContext(ctx, `
		INSERT INTO number_sequences (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = number_sequences.value + 1
		RETURNING value`, seq).Scan(&n)
	if err != nil {
		return "", fmt.Errorf("advance sequence %s: %w", seq, err)
	}
	return fmt.Sprintf("%s-%06d", prefix, n), nil
}
