package database

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
)

// Advisory lease keyed by job name. Prevents two worker processes from
// racing on the same pending_game and player rows: a run that cannot take
// the lock is skipped, not queued.
//
// Session-level advisory locks belong to a single Postgres connection, so a
// lease pins one pooled connection for its whole lifetime and runs both the
// lock and the unlock on it. Going through the pool instead would unlock on
// a different session and leave the lock held forever.

func leaseKey(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return int64(h.Sum64())
}

// Lease is a held advisory lock together with the connection it lives on.
type Lease struct {
	name string
	conn *sql.Conn
}

// TryAcquireLease takes the advisory lock for the named job on a dedicated
// connection. Returns a nil lease without error when another session holds
// the lock.
func (db *DB) TryAcquireLease(ctx context.Context, name string) (*Lease, error) {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lease %q: %w", name, err)
	}

	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lease %q: %w", name, err)
	}

	var locked bool
	err = conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", leaseKey(name)).Scan(&locked)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to acquire lease %q: %w", name, err)
	}
	if !locked {
		conn.Close()
		return nil, nil
	}

	return &Lease{name: name, conn: conn}, nil
}

// Release unlocks on the connection the lock was taken on, then returns the
// connection to the pool.
func (l *Lease) Release(ctx context.Context) error {
	defer l.conn.Close()

	var released bool
	err := l.conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", leaseKey(l.name)).Scan(&released)
	if err != nil {
		return fmt.Errorf("failed to release lease %q: %w", l.name, err)
	}
	if !released {
		return fmt.Errorf("lease %q was not held by this connection", l.name)
	}
	return nil
}
