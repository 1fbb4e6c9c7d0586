// Package profile holds long-lived speaker identity records and their
// persistence. A Profile represents one inferred distinct human voice; a
// Link ties a specific meeting's locally-numbered speaker to a Profile with
// the confidence of that binding.
//
// Profiles are owned by the Store. The pipeline works on transient copies
// during a single meeting and writes them back through the Store.
package profile

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a profile does not exist in the store.
var ErrNotFound = errors.New("profile: not found")

// Profile is a persisted speaker identity.
type Profile struct {
	// ID uniquely identifies this speaker across all meetings.
	ID uuid.UUID `json:"id" msgpack:"id"`

	// Embedding is the representative voice vector. Its dimension is fixed
	// by the embedding service's model and treated as opaque here.
	Embedding []float32 `json:"embedding" msgpack:"embedding"`

	// LastSeenAt is when this speaker was last matched in a meeting.
	LastSeenAt time.Time `json:"last_seen_at" msgpack:"last_seen_at"`

	// MeetingCount is how many meetings this speaker has appeared in.
	MeetingCount int `json:"meeting_count" msgpack:"meeting_count"`

	// AvgConfidence is the running average of match similarities in [0,1].
	// Zero means no match has been recorded yet.
	AvgConfidence float64 `json:"average_confidence,omitempty" msgpack:"average_confidence"`
}

// New creates a profile for a newly observed voice.
func New(embedding []float32, now time.Time) *Profile {
	emb := make([]float32, len(embedding))
	copy(emb, embedding)
	return &Profile{
		ID:           uuid.New(),
		Embedding:    emb,
		LastSeenAt:   now,
		MeetingCount: 1,
	}
}

// RecordMatch folds a new match similarity into the profile's stats:
// bumps the meeting count, refreshes the last-seen timestamp, and updates
// the running average. The first recorded match seeds the average.
func (p *Profile) RecordMatch(similarity float64, now time.Time) {
	p.LastSeenAt = now
	p.MeetingCount++
	if p.AvgConfidence == 0 {
		p.AvgConfidence = similarity
		return
	}
	n := float64(p.MeetingCount)
	p.AvgConfidence = (p.AvgConfidence*(n-1) + similarity) / n
}

// Clone returns a deep copy, so pipeline mutations never alias store state.
func (p *Profile) Clone() *Profile {
	cp := *p
	cp.Embedding = make([]float32, len(p.Embedding))
	copy(cp.Embedding, p.Embedding)
	return &cp
}

// Link records that a meeting's local speaker was bound to a profile.
// Immutable after creation; at most one link exists per
// (meeting, meeting speaker) pair.
type Link struct {
	MeetingID        uuid.UUID `json:"meeting_id" msgpack:"meeting_id"`
	ProfileID        uuid.UUID `json:"speaker_profile_id" msgpack:"speaker_profile_id"`
	MeetingSpeakerID string    `json:"meeting_speaker_id" msgpack:"meeting_speaker_id"`
	Confidence       float64   `json:"confidence" msgpack:"confidence"`
	CreatedAt        time.Time `json:"created_at" msgpack:"created_at"`
}

// Store is the durable home of profiles and meeting links.
// Implementations must be safe for concurrent use.
type Store interface {
	// ActiveProfiles returns all known profiles.
	ActiveProfiles(ctx context.Context) ([]*Profile, error)

	// Get returns the profile with the given ID, or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*Profile, error)

	// SaveProfile creates or overwrites a profile.
	SaveProfile(ctx context.Context, p *Profile) error

	// SaveLink stores a meeting-speaker link. Saving the same
	// (meeting, meeting speaker) pair again overwrites the earlier record.
	SaveLink(ctx context.Context, l *Link) error

	// Links returns all links recorded for a meeting.
	Links(ctx context.Context, meetingID uuid.UUID) ([]*Link, error)

	// Close releases any resources held by the store.
	Close() error
}
