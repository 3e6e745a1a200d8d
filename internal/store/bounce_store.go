package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/automail/internal/model"
)

// normalizeAddress lowercases and trims an address so that lookups are
// case-insensitive.
func normalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// AddBounces records undeliverable addresses. An address already known
// keeps its first record. Returns how many addresses were new.
func (s *SQLiteStore) AddBounces(ctx context.Context, bounces []model.Bounce) (int, error) {
	if len(bounces) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	added := 0
	for _, b := range bounces {
		addr := normalizeAddress(b.Address)
		if addr == "" {
			continue
		}
		detected := b.DetectedAt
		if detected.IsZero() {
			detected = time.Now()
		}

		result, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO bounces (address, reason, message_id, detected_at)
			VALUES (?, ?, ?, ?)`,
			addr, b.Reason, b.MessageID, detected.UTC(),
		)
		if err != nil {
			return 0, fmt.Errorf("recording bounce for %s: %w", addr, err)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			added++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing bounces: %w", err)
	}
	return added, nil
}

// GetBounces returns every recorded bounce, newest first.
func (s *SQLiteStore) GetBounces(ctx context.Context) ([]model.Bounce, error) {
	bounces := []model.Bounce{}
	err := s.db.SelectContext(ctx, &bounces,
		"SELECT address, reason, message_id, detected_at FROM bounces ORDER BY detected_at DESC, address ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("querying bounces: %w", err)
	}
	return bounces, nil
}

// IsBounced reports whether address has bounced before.
func (s *SQLiteStore) IsBounced(ctx context.Context, address string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM bounces WHERE address = ?", normalizeAddress(address),
	)
	if err != nil {
		return false, fmt.Errorf("checking bounce for %s: %w", address, err)
	}
	return n > 0, nil
}

// BouncedAddresses returns the set of bounced addresses, normalized to
// lower case.
func (s *SQLiteStore) BouncedAddresses(ctx context.Context) (map[string]bool, error) {
	var addrs []string
	if err := s.db.SelectContext(ctx, &addrs, "SELECT address FROM bounces"); err != nil {
		return nil, fmt.Errorf("querying bounced addresses: %w", err)
	}
	set := make(map[string]bool, len(addrs))
	for _, a := range addrs {
		set[a] = true
	}
	return set, nil
}

// DeleteBounce forgets a bounced address, e.g. after it was fixed.
func (s *SQLiteStore) DeleteBounce(ctx context.Context, address string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM bounces WHERE address = ?", normalizeAddress(address),
	)
	if err != nil {
		return fmt.Errorf("deleting bounce %s: %w", address, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("bounce %s: %w", address, ErrNotFound)
	}
	return nil
}

// IsBouncedAddress is a helper for callers holding a set from
// BouncedAddresses.
func IsBouncedAddress(set map[string]bool, address string) bool {
	return set[normalizeAddress(address)]
}
