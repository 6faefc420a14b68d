package database

import (
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type batchRow struct {
	ID    string `gorm:"primaryKey;size:20"`
	Label string
}

func newBatchDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&batchRow{}))
	return db
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func makeRows(n int) []batchRow {
	rows := make([]batchRow, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, batchRow{ID: fmt.Sprintf("row-%02d", i+1)})
	}
	return rows
}

func TestInsertInBatches(t *testing.T) {
	db := newBatchDB(t)

	inserted := InsertInBatches(db, quietLogger(), makeRows(10), 3)
	assert.Equal(t, 10, inserted)

	var count int64
	db.Model(&batchRow{}).Count(&count)
	assert.Equal(t, int64(10), count)
}

func TestInsertInBatchesFailedChunkIsolated(t *testing.T) {
	db := newBatchDB(t)

	// rows 3 and 4 already exist, so with a batch size of 2 the second
	// chunk hits a primary-key conflict and fails as a unit
	require.NoError(t, db.Create(&batchRow{ID: "row-03", Label: "existing"}).Error)
	require.NoError(t, db.Create(&batchRow{ID: "row-04", Label: "existing"}).Error)

	inserted := InsertInBatches(db, quietLogger(), makeRows(10), 2)
	assert.Equal(t, 8, inserted)

	var count int64
	db.Model(&batchRow{}).Count(&count)
	assert.Equal(t, int64(10), count)

	// chunks after the failing one were still attempted
	var tail batchRow
	require.NoError(t, db.First(&tail, "id = ?", "row-10").Error)

	// the conflicting rows kept their original values
	var kept batchRow
	require.NoError(t, db.First(&kept, "id = ?", "row-03").Error)
	assert.Equal(t, "existing", kept.Label)
}

func TestInsertInBatchesEmptyAndDefaults(t *testing.T) {
	db := newBatchDB(t)
	logger := quietLogger()

	assert.Equal(t, 0, InsertInBatches(db, logger, []batchRow{}, 3))

	// zero batch size falls back to the default
	assert.Equal(t, 5, InsertInBatches(db, logger, makeRows(5), 0))

	assert.Equal(t, 0, InsertInBatches(db, logger, "not a slice", 3))
}
