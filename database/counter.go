package database

import (
	"context"
	"fmt"
)

// NextCounterValue atomically increments the tracking counter and returns the
// new value. The counter row is created lazily with value 1 on the first call.
//
// The increment and the read happen in one statement via LAST_INSERT_ID(expr),
// so concurrent callers are serialized by the row lock and can never observe
// the same value. Both statements must run on the same connection because
// LAST_INSERT_ID is session-scoped.
func (d *Database) NextCounterValue(ctx context.Context) (int64, error) {
	conn, err := d.db.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer conn.Close()

	query := `
	INSERT INTO tracking_counter (id, value) VALUES (1, LAST_INSERT_ID(1))
	ON DUPLICATE KEY UPDATE value = LAST_INSERT_ID(value + 1)`

	if _, err := conn.ExecContext(ctx, query); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	var value int64
	if err := conn.QueryRowContext(ctx, `SELECT LAST_INSERT_ID()`).Scan(&value); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	return value, nil
}
