package database

import (
	"reflect"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DefaultBatchSize is the number of rows written per insert statement.
const DefaultBatchSize = 100

// InsertInBatches writes rows in fixed-size chunks, one insert per chunk.
// A failing chunk is logged with its row range and skipped; remaining chunks
// still execute. There is no rollback across chunks and no retry. Returns
// the number of rows whose chunk succeeded.
//
// rows must be a slice of gorm models. Conflict handling (e.g. ON CONFLICT
// DO NOTHING) is the caller's concern via db.Clauses.
func InsertInBatches(db *gorm.DB, logger *logrus.Logger, rows interface{}, batchSize int) int {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	v := reflect.ValueOf(rows)
	if v.Kind() != reflect.Slice {
		logger.Errorf("InsertInBatches called with non-slice %T", rows)
		return 0
	}

	total := v.Len()
	if total == 0 {
		return 0
	}

	inserted := 0
	for i := 0; i < total; i += batchSize {
		end := i + batchSize
		if end > total {
			end = total
		}

		chunk := v.Slice(i, end).Interface()
		if err := db.Create(chunk).Error; err != nil {
			logger.Errorf("Batch insert failed for rows %d-%d: %v", i+1, end, err)
			continue
		}

		inserted += end - i
		logger.Debugf("Inserted rows %d-%d", i+1, end)
	}

	return inserted
}
