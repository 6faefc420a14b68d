package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newLeaseDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	return &DB{db}, mock
}

func TestLeaseAcquireRelease(t *testing.T) {
	db, mock := newLeaseDB(t)
	key := leaseKey("game-discovery")

	mock.ExpectQuery("SELECT pg_try_advisory_lock").
		WithArgs(key).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	mock.ExpectQuery("SELECT pg_advisory_unlock").
		WithArgs(key).
		WillReturnRows(sqlmock.NewRows([]string{"pg_advisory_unlock"}).AddRow(true))

	ctx := context.Background()
	lease, err := db.TryAcquireLease(ctx, "game-discovery")
	require.NoError(t, err)
	require.NotNil(t, lease)

	// the unlock runs on the lease's own connection, where it must succeed
	require.NoError(t, lease.Release(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTryAcquireLeaseHeld(t *testing.T) {
	db, mock := newLeaseDB(t)

	mock.ExpectQuery("SELECT pg_try_advisory_lock").
		WithArgs(leaseKey("price-update")).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(false))

	lease, err := db.TryAcquireLease(context.Background(), "price-update")
	require.NoError(t, err)
	assert.Nil(t, lease)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaseReleaseNotHeld(t *testing.T) {
	db, mock := newLeaseDB(t)
	key := leaseKey("game-processing")

	mock.ExpectQuery("SELECT pg_try_advisory_lock").
		WithArgs(key).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	// an unlock answered with false means it ran on the wrong session
	mock.ExpectQuery("SELECT pg_advisory_unlock").
		WithArgs(key).
		WillReturnRows(sqlmock.NewRows([]string{"pg_advisory_unlock"}).AddRow(false))

	ctx := context.Background()
	lease, err := db.TryAcquireLease(ctx, "game-processing")
	require.NoError(t, err)
	require.NotNil(t, lease)

	err = lease.Release(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not held by this connection")
}

func TestLeaseKeyStable(t *testing.T) {
	assert.Equal(t, leaseKey("game-discovery"), leaseKey("game-discovery"))
	assert.NotEqual(t, leaseKey("game-discovery"), leaseKey("price-update"))
}
