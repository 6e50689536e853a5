package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// RefreshOptions tune a single refresh run.
type RefreshOptions struct {
	MaxFetch     int           // cap on the remote listing; 0 means no cap
	ForceRefresh bool          // treat every fetched monitor as stale
	Staleness    time.Duration // how old a fetch may get before a re-fetch
}

// MonitorFailure records one monitor that could not be written.
type MonitorFailure struct {
	ID  int64
	Err error
}

// RefreshReport summarizes a refresh run.
type RefreshReport struct {
	RemoteTotal     int
	Refreshed       int
	SkippedFresh    int
	Fallbacks       int // detail fetches that fell back to summary fields
	Deactivated     int64
	Failures        []MonitorFailure
	ActiveByProject []ProjectCount
}

// Refresher drives the fetch → classify → upsert → reconcile pipeline.
// It runs strictly sequentially; stale records are processed in listing
// order.
type Refresher struct {
	source MonitorSource
	store  RecordStore
	opts   RefreshOptions
}

func NewRefresher(source MonitorSource, store RecordStore, opts RefreshOptions) *Refresher {
	return &Refresher{source: source, store: store, opts: opts}
}

// Run executes one full refresh. A listing failure or a store-level
// failure aborts the run; a single monitor's detail-fetch or upsert
// failure is logged, recorded in the report, and skipped.
func (r *Refresher) Run(ctx context.Context) (*RefreshReport, error) {
	report := &RefreshReport{}

	summaries, err := r.source.ListMonitors(ctx, r.opts.MaxFetch)
	if err != nil {
		return nil, fmt.Errorf("fetching remote listing: %w", err)
	}
	report.RemoteTotal = len(summaries)
	log.Info().Int("count", len(summaries)).Msg("[Refresh] Fetched remote monitor listing")

	// Resolve each listing entry to full detail. A failed detail fetch
	// degrades to the summary entry's fields instead of aborting the run.
	monitors := make([]Monitor, 0, len(summaries))
	for _, summary := range summaries {
		detail, err := r.source.GetMonitorDetail(ctx, summary.ID)
		if err != nil {
			log.Warn().Err(err).Int64("id", summary.ID).Msg("[Refresh] Detail fetch failed, using summary fields")
			report.Fallbacks++
			monitors = append(monitors, summary)
			continue
		}
		monitors = append(monitors, *detail)
	}

	stored, err := r.store.AllIDs()
	if err != nil {
		return nil, fmt.Errorf("reading stored ids: %w", err)
	}

	// An empty store is the bootstrap case: everything is stale.
	refreshAll := len(stored) == 0 || r.opts.ForceRefresh
	var stale map[int64]bool
	if !refreshAll {
		stale, err = r.store.IDsNeedingRefresh(r.opts.Staleness)
		if err != nil {
			return nil, fmt.Errorf("determining stale monitors: %w", err)
		}
	}

	// The full fetched-id set is accumulated regardless of staleness; the
	// reconcile step needs it.
	fetchedIDs := make([]int64, 0, len(monitors))
	for _, m := range monitors {
		fetchedIDs = append(fetchedIDs, m.ID)

		// Monitors the store has never seen are always refreshed.
		if !refreshAll && stored[m.ID] && !stale[m.ID] {
			report.SkippedFresh++
			continue
		}

		rec := buildRecord(m)
		if err := r.store.Upsert(&rec); err != nil {
			log.Error().Err(err).Int64("id", m.ID).Msg("[Refresh] Skipping monitor, upsert failed")
			report.Failures = append(report.Failures, MonitorFailure{ID: m.ID, Err: err})
			continue
		}
		report.Refreshed++
	}

	// Reconcile only on a non-empty fetch; an empty remote listing must
	// never mass-deactivate the cache.
	if len(fetchedIDs) > 0 {
		deactivated, err := r.store.MarkInactive(fetchedIDs)
		if err != nil {
			return nil, fmt.Errorf("reconciling inactive monitors: %w", err)
		}
		report.Deactivated = deactivated
	}

	counts, err := r.store.CountActiveByProject()
	if err != nil {
		return nil, fmt.Errorf("reading project counts: %w", err)
	}
	report.ActiveByProject = counts

	return report, nil
}

// buildRecord classifies a remote monitor into the stored record shape.
// Priority and project are recomputed here on every refresh.
func buildRecord(m Monitor) MonitorRecord {
	targets := parseNotifications(m.Message)
	notifications := make([]MonitorNotification, len(targets))
	for i, t := range targets {
		notifications[i] = MonitorNotification{
			Target:     t.Target,
			Context:    t.Context,
			IsRecovery: t.IsRecovery,
		}
	}

	tags := make([]MonitorTag, len(m.Tags))
	for i, tag := range m.Tags {
		tags[i] = MonitorTag{Tag: tag}
	}

	downtimes := make([]MonitorDowntime, len(m.MatchingDowntimes))
	for i, d := range m.MatchingDowntimes {
		downtimes[i] = MonitorDowntime{Data: string(d)}
	}

	return MonitorRecord{
		ID:            m.ID,
		Name:          m.Name,
		Message:       m.Message,
		Type:          m.Type,
		Query:         m.Query,
		Priority:      classifySeverity(m.Tags, m.Options),
		State:         m.State,
		OverallState:  m.OverallState,
		Options:       string(m.Options),
		Project:       classifyProject(m.Tags, m.Name),
		Tags:          tags,
		Notifications: notifications,
		Downtimes:     downtimes,
	}
}
