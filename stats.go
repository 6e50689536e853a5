package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// CountActiveByProject aggregates active monitors per project using
// database-side aggregation.
func (s *Store) CountActiveByProject() ([]ProjectCount, error) {
	var counts []ProjectCount
	err := s.db.Model(&MonitorRecord{}).
		Select("project, COUNT(*) as count").
		Where("is_active = ?", true).
		Group("project").
		Order("project").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("counting active monitors by project: %w", err)
	}
	return counts, nil
}

// logSummary emits the run summary. It is always written, even when some
// monitors were skipped or failed.
func logSummary(report *RefreshReport) {
	var activeTotal int64
	for _, pc := range report.ActiveByProject {
		activeTotal += pc.Count
	}

	log.Info().
		Int("remote_total", report.RemoteTotal).
		Int("refreshed", report.Refreshed).
		Int("skipped_fresh", report.SkippedFresh).
		Int("fallbacks", report.Fallbacks).
		Int("failed", len(report.Failures)).
		Int64("deactivated", report.Deactivated).
		Int64("active_total", activeTotal).
		Msg("[Report] Refresh complete")

	for _, pc := range report.ActiveByProject {
		log.Info().Str("project", pc.Project).Int64("count", pc.Count).Msg("[Report] Active monitors")
	}

	for _, f := range report.Failures {
		log.Warn().Err(f.Err).Int64("id", f.ID).Msg("[Report] Monitor skipped")
	}
}
