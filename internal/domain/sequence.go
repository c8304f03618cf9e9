package domain

import (
	"fmt"
	"time"
)

// DefaultSequenceWindow is the hourly look-back length fed to scorers.
const DefaultSequenceWindow = 48

// FeatureSequence is an ordered look-back window, oldest first.
type FeatureSequence []Features

// Latest returns the most recent snapshot, or the zero snapshot when empty.
func (s FeatureSequence) Latest() Features {
	if len(s) == 0 {
		return Features{}
	}
	return s[len(s)-1]
}

// Vectors flattens every snapshot for positional consumers.
func (s FeatureSequence) Vectors() []FeatureVector {
	out := make([]FeatureVector, len(s))
	for i := range s {
		out[i] = s[i].Vector()
	}
	return out
}

// SequenceMode selects how the look-back window is filled.
type SequenceMode string

const (
	// SequenceRepeat fills the window with copies of the latest snapshot.
	// No historical store is consulted.
	SequenceRepeat SequenceMode = "repeat"
	// SequenceRolling fills the window from hourly snapshot history kept per
	// location and storage setup.
	SequenceRolling SequenceMode = "rolling"
)

// ParseSequenceMode validates a configured mode name.
func ParseSequenceMode(s string) (SequenceMode, error) {
	switch m := SequenceMode(s); m {
	case SequenceRepeat, SequenceRolling:
		return m, nil
	default:
		return "", fmt.Errorf("unknown sequence mode %q", s)
	}
}

// HourlySnapshot is the snapshot retained for one hour of a history key.
type HourlySnapshot struct {
	Hour     time.Time
	Features Features
}

// SnapshotHour returns the history bucket that t falls into.
func SnapshotHour(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

// SequenceKey identifies a rolling history: one per location and storage
// setup. Moisture is a reading that drifts over time, so it stays out of
// the key.
func SequenceKey(loc Coordinate, storage StorageCondition) string {
	return fmt.Sprintf("%s|%s|%.2f", loc.Key(), storage.Type, storage.VentilationScore)
}

// History retains at most one snapshot per hour for each key.
type History interface {
	// Recent returns the retained snapshots for key, oldest first.
	Recent(key string) []HourlySnapshot
	// Record stores f in the hour bucket of at, replacing a snapshot already
	// held for that hour. Snapshots older than the newest bucket are dropped.
	Record(key string, at time.Time, f Features)
}

// SequenceBuilder assembles fixed-length windows of snapshots.
type SequenceBuilder struct {
	window  int
	mode    SequenceMode
	history History
}

// NewSequenceBuilder creates a builder. A non-positive window uses
// DefaultSequenceWindow; rolling mode without a history degrades to repeat.
func NewSequenceBuilder(window int, mode SequenceMode, history History) *SequenceBuilder {
	if window <= 0 {
		window = DefaultSequenceWindow
	}
	if mode == SequenceRolling && history == nil {
		mode = SequenceRepeat
	}
	return &SequenceBuilder{window: window, mode: mode, history: history}
}

// Window returns the configured sequence length.
func (b *SequenceBuilder) Window() int { return b.window }

// Mode returns the effective fill mode.
func (b *SequenceBuilder) Mode() SequenceMode { return b.mode }

// Build returns a sequence of exactly Window snapshots ending with latest.
// In rolling mode latest stands in for the bucket of at; the history is
// not modified until Record is called.
func (b *SequenceBuilder) Build(key string, at time.Time, latest Features) FeatureSequence {
	if b.mode != SequenceRolling {
		return RepeatSequence(latest, b.window)
	}
	hour := SnapshotHour(at)
	recent := b.history.Recent(key)
	snapshots := make([]Features, 0, len(recent)+1)
	for _, s := range recent {
		if !s.Hour.Before(hour) {
			break
		}
		snapshots = append(snapshots, s.Features)
	}
	snapshots = append(snapshots, latest)
	return padLeft(snapshots, b.window)
}

// Record commits f to the rolling history. It is a no-op in repeat mode.
func (b *SequenceBuilder) Record(key string, at time.Time, f Features) {
	if b.mode != SequenceRolling {
		return
	}
	b.history.Record(key, at, f)
}

// RepeatSequence returns window copies of f.
func RepeatSequence(f Features, window int) FeatureSequence {
	seq := make(FeatureSequence, window)
	for i := range seq {
		seq[i] = f
	}
	return seq
}

// padLeft keeps the newest window snapshots and repeats the oldest retained
// one in front when fewer are available.
func padLeft(snapshots []Features, window int) FeatureSequence {
	if len(snapshots) > window {
		snapshots = snapshots[len(snapshots)-window:]
	}
	seq := make(FeatureSequence, window)
	pad := window - len(snapshots)
	for i := 0; i < pad; i++ {
		seq[i] = snapshots[0]
	}
	copy(seq[pad:], snapshots)
	return seq
}
