package models

import (
	"fmt"
	"time"
)

// Sync run statuses
const (
	SyncStatusPending   = "pending"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
)

// SyncRun records one reconciliation applied to a local playlist.
type SyncRun struct {
	entity
	playlistID    string
	provenance    string
	sourceRef     string
	keepLocal     bool
	dropMissing   bool
	resyncOrder   bool
	status        string
	tracksBefore  int
	tracksAfter   int
	tracksAdded   int
	tracksDropped int
	errorMessage  string
	completedAt   *time.Time
}

// NewSyncRun creates a pending [SyncRun] for a playlist.
func NewSyncRun(sequence int, playlistID, provenance, sourceRef string) *SyncRun {
	return &SyncRun{
		entity:     newEntity(sequence),
		playlistID: playlistID,
		provenance: provenance,
		sourceRef:  sourceRef,
		status:     SyncStatusPending,
	}
}

func (r *SyncRun) PlaylistID() string      { return r.playlistID }
func (r *SyncRun) Provenance() string      { return r.provenance }
func (r *SyncRun) SourceRef() string       { return r.sourceRef }
func (r *SyncRun) KeepLocal() bool         { return r.keepLocal }
func (r *SyncRun) DropMissing() bool       { return r.dropMissing }
func (r *SyncRun) ResyncOrder() bool       { return r.resyncOrder }
func (r *SyncRun) Status() string          { return r.status }
func (r *SyncRun) TracksBefore() int       { return r.tracksBefore }
func (r *SyncRun) TracksAfter() int        { return r.tracksAfter }
func (r *SyncRun) TracksAdded() int        { return r.tracksAdded }
func (r *SyncRun) TracksDropped() int      { return r.tracksDropped }
func (r *SyncRun) ErrorMessage() string    { return r.errorMessage }
func (r *SyncRun) CompletedAt() *time.Time { return r.completedAt }

// SetPolicy records the policy flags the run was applied with.
func (r *SyncRun) SetPolicy(keepLocal, dropMissing, resyncOrder bool) {
	r.keepLocal = keepLocal
	r.dropMissing = dropMissing
	r.resyncOrder = resyncOrder
}

func (r *SyncRun) SetStatus(status string)     { r.status = status }
func (r *SyncRun) SetErrorMessage(msg string)  { r.errorMessage = msg }
func (r *SyncRun) SetCompletedAt(t *time.Time) { r.completedAt = t }

// SetCounts records the track counts observed by the run.
func (r *SyncRun) SetCounts(before, after, added, dropped int) {
	r.tracksBefore = before
	r.tracksAfter = after
	r.tracksAdded = added
	r.tracksDropped = dropped
}

// Complete marks the run as completed now.
func (r *SyncRun) Complete() {
	now := time.Now()
	r.status = SyncStatusCompleted
	r.completedAt = &now
}

// Fail marks the run as failed with the given error.
func (r *SyncRun) Fail(err error) {
	now := time.Now()
	r.status = SyncStatusFailed
	r.completedAt = &now
	if err != nil {
		r.errorMessage = err.Error()
	}
}

// Validate checks required fields and status values.
func (r *SyncRun) Validate() error {
	if r.playlistID == "" {
		return fmt.Errorf("playlist ID is required")
	}
	if r.provenance == "" {
		return fmt.Errorf("provenance is required")
	}
	switch r.status {
	case SyncStatusPending, SyncStatusCompleted, SyncStatusFailed:
	default:
		return fmt.Errorf("invalid sync status: %q", r.status)
	}
	return nil
}
