// Package pipeline ties the speaker identity stages together per meeting:
// pick a representative segment per diarized speaker, extract its audio,
// obtain a voice embedding, match it against known profiles, and
// create-or-update profiles and meeting links in the store.
//
// Per-speaker failures (short segments, decode errors, embedding errors)
// only remove that speaker from the result. Configuration and health
// failures are fatal for the whole meeting and are returned before any
// audio I/O is attempted.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voznote/speakerid/pkg/audio/extract"
	"github.com/voznote/speakerid/pkg/diarize"
	"github.com/voznote/speakerid/pkg/embedding"
	"github.com/voznote/speakerid/pkg/profile"
)

// Fatal errors: the meeting is aborted before any per-speaker work.
var (
	// ErrServiceNotConfigured means the embedding service has no endpoint
	// or credential. Voice identification is unavailable.
	ErrServiceNotConfigured = errors.New("pipeline: embedding service not configured")

	// ErrServiceUnavailable means the embedding service failed its health
	// probe.
	ErrServiceUnavailable = errors.New("pipeline: embedding service unavailable")
)

// EmbeddingClient is the subset of the embedding service client the
// pipeline needs. *embedding.Client satisfies it.
type EmbeddingClient interface {
	IsConfigured() bool
	HealthCheck(ctx context.Context) bool
	Extract(ctx context.Context, audio []byte, formatHint string) ([]float32, error)
}

// SpeakerMatch is the per-speaker outcome of a meeting run. It is the
// transient unit of work handed back to the caller; it is not persisted as
// its own entity.
type SpeakerMatch struct {
	// MeetingSpeakerID is the diarization-local speaker label.
	MeetingSpeakerID string

	// Profile is the matched or newly created identity (a copy; the store
	// owns the canonical record).
	Profile *profile.Profile

	// IsNewProfile is true when no known profile cleared the similarity
	// threshold and a new identity was created.
	IsNewProfile bool

	// Confidence is the match similarity, or 1.0 for a new profile.
	Confidence float64

	// Embedding is the extracted voice vector.
	Embedding []float32
}

// Result is the meeting-level outcome.
type Result struct {
	SpeakerMatches []SpeakerMatch

	// AuthFailed is set when the embedding service rejected our API key.
	// The per-speaker failure would recur for every speaker, so it is
	// surfaced here as a configuration problem.
	AuthFailed bool

	persist sync.WaitGroup
}

// HasNewProfiles reports whether any speaker produced a new profile.
func (r *Result) HasNewProfiles() bool {
	for _, m := range r.SpeakerMatches {
		if m.IsNewProfile {
			return true
		}
	}
	return false
}

// HasMatches reports whether any speaker matched an existing profile.
func (r *Result) HasMatches() bool {
	for _, m := range r.SpeakerMatches {
		if !m.IsNewProfile {
			return true
		}
	}
	return false
}

// Wait blocks until all background persistence for this meeting has
// finished. The in-memory decisions stand even if persistence failed;
// callers needing strict durability wait and then re-check stored state.
func (r *Result) Wait() {
	r.persist.Wait()
}

// Pipeline runs the speaker identity stages for one meeting at a time.
// Multiple meetings may be processed concurrently from separate goroutines;
// writes to the same profile are serialized per profile ID.
type Pipeline struct {
	store     profile.Store
	client    EmbeddingClient
	extractor extract.Extractor
	locker    *profile.Locker
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a Pipeline over the given store, embedding client, and
// audio extractor.
func New(store profile.Store, client EmbeddingClient, extractor extract.Extractor, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:     store,
		client:    client,
		extractor: extractor,
		locker:    profile.NewLocker(),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessMeeting runs speaker identification over one meeting's diarization
// segments.
//
// Speakers are processed in sorted speaker-ID order, so if two speakers in
// the same meeting are actually the same voice, the first processed becomes
// the canonical new profile and the second is evaluated against a set that
// already includes it. Cancellation is checked between speakers; on
// cancellation the partial result is returned alongside ctx.Err().
func (p *Pipeline) ProcessMeeting(ctx context.Context, audioPath string, segments []diarize.Segment, meetingID uuid.UUID) (*Result, error) {
	if !p.client.IsConfigured() {
		return nil, ErrServiceNotConfigured
	}
	if !p.client.HealthCheck(ctx) {
		return nil, ErrServiceUnavailable
	}

	known, err := p.store.ActiveProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: load profiles: %w", err)
	}

	groups, speakerIDs := diarize.BySpeaker(segments)
	result := &Result{}
	log := p.logger.With("meeting_id", meetingID)

	// Single persistence worker per meeting: saves are dispatched without
	// being awaited, but run in decision order, so a profile created for an
	// early speaker is durable before a later speaker's match updates it.
	tasks := make(chan func(), len(speakerIDs)+1)
	result.persist.Add(1)
	go func() {
		defer result.persist.Done()
		for task := range tasks {
			task()
		}
	}()
	defer close(tasks)

	for _, speakerID := range speakerIDs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		seg, ok := diarize.SelectBest(groups[speakerID])
		if !ok {
			log.Warn("pipeline: speaker has no segments, skipping", "speaker", speakerID)
			continue
		}

		duration := min(diarize.PreferredSegmentDuration, seg.Duration())
		wavBytes, err := p.extractor.ExtractWAVSegment(ctx, audioPath, seg.Start, duration)
		if err != nil {
			log.Warn("pipeline: audio extraction failed, skipping speaker",
				"speaker", speakerID, "start", seg.Start, "duration", duration, "err", err)
			continue
		}

		emb, err := p.client.Extract(ctx, wavBytes, "wav")
		if err != nil {
			if errors.Is(err, embedding.ErrUnauthorized) {
				result.AuthFailed = true
			}
			log.Warn("pipeline: embedding extraction failed, skipping speaker",
				"speaker", speakerID, "err", err)
			continue
		}

		match := p.resolve(ctx, tasks, log, meetingID, speakerID, emb, &known)
		result.SpeakerMatches = append(result.SpeakerMatches, match)
	}

	return result, nil
}

// resolve decides match-vs-new for one speaker's embedding and schedules
// persistence. known is extended in place when a new profile is created so
// later speakers in the same meeting see it.
func (p *Pipeline) resolve(ctx context.Context, tasks chan<- func(), log *slog.Logger, meetingID uuid.UUID, speakerID string, emb []float32, known *[]*profile.Profile) SpeakerMatch {
	now := p.now()

	if matched, sim, ok := embedding.FindBestMatch(emb, *known); ok {
		similarity := float64(sim)
		// Local copy for the caller; the durable update below re-reads the
		// stored record under the profile lock.
		matched.RecordMatch(similarity, now)

		log.Info("pipeline: speaker matched existing profile",
			"speaker", speakerID, "profile_id", matched.ID, "similarity", similarity)

		p.persistMatch(ctx, tasks, log, matched.Clone(), similarity, now, &profile.Link{
			MeetingID:        meetingID,
			ProfileID:        matched.ID,
			MeetingSpeakerID: speakerID,
			Confidence:       similarity,
			CreatedAt:        now,
		})
		return SpeakerMatch{
			MeetingSpeakerID: speakerID,
			Profile:          matched.Clone(),
			IsNewProfile:     false,
			Confidence:       similarity,
			Embedding:        emb,
		}
	}

	created := profile.New(emb, now)
	*known = append(*known, created)

	log.Info("pipeline: speaker is a new voice, creating profile",
		"speaker", speakerID, "profile_id", created.ID)

	p.persistNew(ctx, tasks, log, created.Clone(), &profile.Link{
		MeetingID:        meetingID,
		ProfileID:        created.ID,
		MeetingSpeakerID: speakerID,
		Confidence:       1.0,
		CreatedAt:        now,
	})
	return SpeakerMatch{
		MeetingSpeakerID: speakerID,
		Profile:          created.Clone(),
		IsNewProfile:     true,
		Confidence:       1.0,
		Embedding:        emb,
	}
}

// persistMatch enqueues the durable update for a matched profile. The
// stored record is re-read and updated under the per-profile lock, so
// concurrent meetings matching the same profile cannot lose running-average
// updates. Failures are logged, never propagated: the in-memory decision
// already returned to the caller stands.
func (p *Pipeline) persistMatch(ctx context.Context, tasks chan<- func(), log *slog.Logger, fallback *profile.Profile, similarity float64, now time.Time, link *profile.Link) {
	// Outlive meeting cancellation: the decision is made, durability
	// should still be attempted.
	ctx = context.WithoutCancel(ctx)

	tasks <- func() {
		unlock := p.locker.Lock(link.ProfileID)
		defer unlock()

		// fallback already carries the applied stats; prefer the stored
		// record when another meeting got there first.
		target := fallback
		if fresh, err := p.store.Get(ctx, link.ProfileID); err == nil {
			fresh.RecordMatch(similarity, now)
			target = fresh
		} else if !errors.Is(err, profile.ErrNotFound) {
			log.Error("pipeline: profile re-read failed, saving local copy",
				"profile_id", link.ProfileID, "err", err)
		}

		if err := p.store.SaveProfile(ctx, target); err != nil {
			log.Error("pipeline: profile update not persisted",
				"profile_id", link.ProfileID, "err", err)
		}
		if err := p.store.SaveLink(ctx, link); err != nil {
			log.Error("pipeline: meeting link not persisted",
				"profile_id", link.ProfileID, "speaker", link.MeetingSpeakerID, "err", err)
		}
	}
}

// persistNew enqueues the first save of a freshly created profile and its
// meeting link.
func (p *Pipeline) persistNew(ctx context.Context, tasks chan<- func(), log *slog.Logger, created *profile.Profile, link *profile.Link) {
	ctx = context.WithoutCancel(ctx)

	tasks <- func() {
		unlock := p.locker.Lock(created.ID)
		defer unlock()

		if err := p.store.SaveProfile(ctx, created); err != nil {
			log.Error("pipeline: new profile not persisted",
				"profile_id", created.ID, "err", err)
		}
		if err := p.store.SaveLink(ctx, link); err != nil {
			log.Error("pipeline: meeting link not persisted",
				"profile_id", created.ID, "speaker", link.MeetingSpeakerID, "err", err)
		}
	}
}
