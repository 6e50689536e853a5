package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	_ "modernc.org/sqlite"
)

// RecordStore is what the refresh pipeline needs from the local cache.
type RecordStore interface {
	Upsert(rec *MonitorRecord) error
	AllIDs() (map[int64]bool, error)
	IDsNeedingRefresh(threshold time.Duration) (map[int64]bool, error)
	MarkInactive(activeIDs []int64) (int64, error)
	CountActiveByProject() ([]ProjectCount, error)
}

// Store is the SQLite-backed monitor cache.
type Store struct {
	db *gorm.DB
}

// OpenStore opens (or creates) the SQLite database at dbPath and runs
// migrations. SQLite is kept on a single connection.
func OpenStore(dbPath string) (*Store, error) {
	// Ensure the directory exists (for Docker volumes)
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Warn().Err(err).Str("directory", dir).Msg("[Store] Could not create database directory")
		}
	}

	// Pure Go SQLite driver (no CGO required)
	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", dbPath, err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	// WAL mode allows readers alongside the single writer; the busy
	// timeout sets how long to wait for locks (in milliseconds).
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("applying %q: %w", pragma, err)
		}
	}

	db, err := gorm.Open(sqlite.Dialector{Conn: sqlDB}, &gorm.Config{})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("connecting to database %s: %w", dbPath, err)
	}

	if err := db.AutoMigrate(&MonitorRecord{}, &MonitorTag{}, &MonitorNotification{}, &MonitorDowntime{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("[Store] ✅ Database initialized")
	return &Store{db: db}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Upsert inserts or replaces a monitor record and its child collections
// in one transaction. On update the original first_seen is preserved and
// the record is forced active; tags and notifications are replaced
// wholesale, downtimes only when the incoming list is non-empty.
func (s *Store) Upsert(rec *MonitorRecord) error {
	now := time.Now().UTC()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing MonitorRecord
		firstSeen := now
		insert := false

		res := tx.Select("first_seen").First(&existing, rec.ID)
		switch {
		case res.Error == nil:
			firstSeen = existing.FirstSeen
		case errors.Is(res.Error, gorm.ErrRecordNotFound):
			insert = true
		default:
			return fmt.Errorf("looking up monitor %d: %w", rec.ID, res.Error)
		}

		if insert {
			row := *rec
			row.Tags, row.Notifications, row.Downtimes = nil, nil, nil
			row.FirstSeen = firstSeen
			row.LastUpdated = now
			row.FetchedAt = &now
			row.IsActive = true
			if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
				return fmt.Errorf("inserting monitor %d: %w", rec.ID, err)
			}
		} else {
			// Map updates so zero values (empty strings etc.) overwrite.
			updates := map[string]interface{}{
				"name":          rec.Name,
				"message":       rec.Message,
				"type":          rec.Type,
				"query":         rec.Query,
				"priority":      rec.Priority,
				"state":         rec.State,
				"overall_state": rec.OverallState,
				"options":       rec.Options,
				"project":       rec.Project,
				"last_updated":  now,
				"fetched_at":    now,
				"is_active":     true,
			}
			if err := tx.Model(&MonitorRecord{}).Where("id = ?", rec.ID).Updates(updates).Error; err != nil {
				return fmt.Errorf("updating monitor %d: %w", rec.ID, err)
			}
		}

		if err := tx.Where("monitor_id = ?", rec.ID).Delete(&MonitorTag{}).Error; err != nil {
			return fmt.Errorf("clearing tags for monitor %d: %w", rec.ID, err)
		}
		if tags := dedupeTags(rec.ID, rec.Tags); len(tags) > 0 {
			if err := tx.Create(&tags).Error; err != nil {
				return fmt.Errorf("inserting tags for monitor %d: %w", rec.ID, err)
			}
		}

		if err := tx.Where("monitor_id = ?", rec.ID).Delete(&MonitorNotification{}).Error; err != nil {
			return fmt.Errorf("clearing notifications for monitor %d: %w", rec.ID, err)
		}
		if len(rec.Notifications) > 0 {
			rows := make([]MonitorNotification, len(rec.Notifications))
			for i, n := range rec.Notifications {
				rows[i] = MonitorNotification{
					MonitorID:  rec.ID,
					Target:     n.Target,
					Context:    n.Context,
					IsRecovery: n.IsRecovery,
				}
			}
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("inserting notifications for monitor %d: %w", rec.ID, err)
			}
		}

		// An empty incoming downtime list keeps whatever was stored before.
		if len(rec.Downtimes) > 0 {
			if err := tx.Where("monitor_id = ?", rec.ID).Delete(&MonitorDowntime{}).Error; err != nil {
				return fmt.Errorf("clearing downtimes for monitor %d: %w", rec.ID, err)
			}
			rows := make([]MonitorDowntime, len(rec.Downtimes))
			for i, d := range rec.Downtimes {
				rows[i] = MonitorDowntime{MonitorID: rec.ID, Data: d.Data}
			}
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("inserting downtimes for monitor %d: %w", rec.ID, err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	log.Debug().Int64("id", rec.ID).Str("project", rec.Project).Msg("[Store] Upserted monitor")
	return nil
}

// dedupeTags drops duplicate tag values, keeping first occurrence order.
func dedupeTags(monitorID int64, tags []MonitorTag) []MonitorTag {
	seen := make(map[string]bool, len(tags))
	out := make([]MonitorTag, 0, len(tags))
	for _, t := range tags {
		if seen[t.Tag] {
			continue
		}
		seen[t.Tag] = true
		out = append(out, MonitorTag{MonitorID: monitorID, Tag: t.Tag})
	}
	return out
}

// AllIDs returns every stored monitor id.
func (s *Store) AllIDs() (map[int64]bool, error) {
	var ids []int64
	if err := s.db.Model(&MonitorRecord{}).Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("listing stored ids: %w", err)
	}
	return idSet(ids), nil
}

// IDsNeedingRefresh returns ids that were never fetched, whose last fetch
// is older than the threshold, or that are currently active. The
// is_active clause is kept for parity with the source system even though
// it makes every active record perpetually stale.
func (s *Store) IDsNeedingRefresh(threshold time.Duration) (map[int64]bool, error) {
	cutoff := time.Now().UTC().Add(-threshold)
	var ids []int64
	err := s.db.Model(&MonitorRecord{}).
		Where("fetched_at IS NULL OR fetched_at < ? OR is_active = ?", cutoff, true).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("listing stale ids: %w", err)
	}
	return idSet(ids), nil
}

// MarkInactive flags every stored monitor not in activeIDs as inactive
// and reports how many rows changed. An empty id set is a no-op: mass
// deactivation on an empty remote listing is never what we want.
func (s *Store) MarkInactive(activeIDs []int64) (int64, error) {
	if len(activeIDs) == 0 {
		return 0, nil
	}
	res := s.db.Model(&MonitorRecord{}).
		Where("id NOT IN ?", activeIDs).
		Update("is_active", false)
	if res.Error != nil {
		return 0, fmt.Errorf("marking inactive monitors: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func idSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
