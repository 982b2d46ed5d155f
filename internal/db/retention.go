package db

import (
	"log"
	"time"

	"gorm.io/gorm"
)

// runRetentionOnce performs a single pass of retention cleanup, deleting
// view records and page visits older than the retention horizon. Click
// rows are kept: the back office uses them for seller history exports.
func runRetentionOnce(gdb *gorm.DB, retentionDays int) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	if err := gdb.Where("occurred_at < ?", cutoff).Delete(&ViewRecord{}).Error; err != nil {
		return err
	}
	if err := gdb.Where("created_at < ?", cutoff).Delete(&PageVisit{}).Error; err != nil {
		return err
	}
	return nil
}

// StartRetentionWorker launches a background goroutine that runs the
// retention cleanup once at startup and then once per day.
func StartRetentionWorker(gdb *gorm.DB, retentionDays int) {
	if retentionDays <= 0 {
		return
	}
	go func() {
		if err := runRetentionOnce(gdb, retentionDays); err != nil {
			log.Printf("retention cleanup error (startup): %v", err)
		}

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			if err := runRetentionOnce(gdb, retentionDays); err != nil {
				log.Printf("retention cleanup error: %v", err)
			}
		}
	}()
}
