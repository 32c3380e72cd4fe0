package db

import (
	"database/sql"
	"time"

	"gorm.io/gorm"
)

const startTimeKey = "metrics:start_time"

// MetricsRecorder receives one observation per executed statement.
type MetricsRecorder interface {
	RecordDBQuery(operation, table string, duration time.Duration, err error)
	UpdateDBStats(stats sql.DBStats)
}

func markStart(tx *gorm.DB) {
	tx.InstanceSet(startTimeKey, time.Now())
}

func observe(recorder MetricsRecorder, operation string) func(*gorm.DB) {
	return func(tx *gorm.DB) {
		start, ok := tx.InstanceGet(startTimeKey)
		if !ok {
			return
		}
		table := tx.Statement.Table
		if table == "" {
			table = "unknown"
		}
		recorder.RecordDBQuery(operation, table, time.Since(start.(time.Time)), tx.Error)
	}
}

// RegisterMetricsCallbacks hooks query timing into the GORM processors,
// including Raw and Row so recount statements are observed too.
func RegisterMetricsCallbacks(db *gorm.DB, recorder MetricsRecorder) error {
	cb := db.Callback()

	registrations := []func() error{
		func() error { return cb.Query().Before("gorm:query").Register("metrics:query_before", markStart) },
		func() error {
			return cb.Query().After("gorm:query").Register("metrics:query_after", observe(recorder, "select"))
		},
		func() error { return cb.Create().Before("gorm:create").Register("metrics:create_before", markStart) },
		func() error {
			return cb.Create().After("gorm:create").Register("metrics:create_after", observe(recorder, "insert"))
		},
		func() error { return cb.Update().Before("gorm:update").Register("metrics:update_before", markStart) },
		func() error {
			return cb.Update().After("gorm:update").Register("metrics:update_after", observe(recorder, "update"))
		},
		func() error { return cb.Delete().Before("gorm:delete").Register("metrics:delete_before", markStart) },
		func() error {
			return cb.Delete().After("gorm:delete").Register("metrics:delete_after", observe(recorder, "delete"))
		},
		func() error { return cb.Raw().Before("gorm:raw").Register("metrics:raw_before", markStart) },
		func() error {
			return cb.Raw().After("gorm:raw").Register("metrics:raw_after", observe(recorder, "raw"))
		},
		func() error { return cb.Row().Before("gorm:row").Register("metrics:row_before", markStart) },
		func() error {
			return cb.Row().After("gorm:row").Register("metrics:row_after", observe(recorder, "row"))
		},
	}

	for _, register := range registrations {
		if err := register(); err != nil {
			return err
		}
	}
	return nil
}

// StartStatsCollector copies pool statistics into recorder every interval
// until the returned channel is closed.
func StartStatsCollector(db *gorm.DB, recorder MetricsRecorder, interval time.Duration) chan struct{} {
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					continue
				}
				recorder.UpdateDBStats(sqlDB.Stats())
			case <-done:
				return
			}
		}
	}()

	return done
}
