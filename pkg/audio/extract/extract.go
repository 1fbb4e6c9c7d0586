// Package extract decodes a time range out of a meeting recording and
// returns it as mono 16kHz 16-bit PCM wrapped in a WAV container, the
// interchange format the embedding service expects.
//
// Two decode paths exist. WAV sources are read natively with seek-based
// ranged reads (no subprocess, no full decode). Everything else (m4a, mp3,
// ogg, ...) is handed to ffmpeg with input seeking, so even hour-long
// recordings only decode the requested window.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/voznote/speakerid/pkg/audio/wav"
)

// Target output format for embedding extraction.
const (
	TargetSampleRate = 16000
	targetChannels   = 1
)

// ErrNoAudioTrack is returned when the source file has no audio stream.
var ErrNoAudioTrack = errors.New("extract: no audio track")

// Error wraps a decode or seek failure. These are per-speaker failures:
// callers skip the affected speaker and continue with the meeting.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract: %s: %v", e.Reason, e.Err)
	}
	return "extract: " + e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// Extractor produces a WAV-wrapped audio sample for a time range of a
// recording.
type Extractor interface {
	// ExtractWAVSegment decodes [start, start+duration) seconds of the
	// recording at path and returns it as a mono 16kHz 16-bit WAV.
	ExtractWAVSegment(ctx context.Context, path string, start, duration float64) ([]byte, error)
}

// Runner executes an external decoder command and returns its stdout.
// Injectable so tests can run without an ffmpeg binary.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout []byte, err error)
}

// FFmpeg is the default Extractor. Despite the name it only shells out for
// non-WAV containers; WAV files take the native path.
type FFmpeg struct {
	bin    string
	runner Runner
}

// Option configures an FFmpeg extractor.
type Option func(*FFmpeg)

// WithBinary sets the ffmpeg executable path (default "ffmpeg", resolved
// via $PATH).
func WithBinary(path string) Option {
	return func(f *FFmpeg) {
		if path != "" {
			f.bin = path
		}
	}
}

// WithRunner sets the command runner. Used by tests to stub out ffmpeg.
func WithRunner(r Runner) Option {
	return func(f *FFmpeg) {
		if r != nil {
			f.runner = r
		}
	}
}

// New creates an FFmpeg extractor.
func New(opts ...Option) *FFmpeg {
	f := &FFmpeg{
		bin:    "ffmpeg",
		runner: execRunner{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

var _ Extractor = (*FFmpeg)(nil)

// errNotNative signals that the native WAV path cannot handle the file and
// the ffmpeg path should be tried instead.
var errNotNative = errors.New("not a natively decodable wav")

// ExtractWAVSegment implements Extractor.
func (f *FFmpeg) ExtractWAVSegment(ctx context.Context, path string, start, duration float64) ([]byte, error) {
	if duration <= 0 {
		return nil, &Error{Reason: fmt.Sprintf("non-positive duration %v", duration)}
	}

	if strings.EqualFold(filepath.Ext(path), ".wav") {
		out, err := f.extractNative(path, start, duration)
		if err == nil || !errors.Is(err, errNotNative) {
			return out, err
		}
		// Mislabeled container: let ffmpeg figure it out.
	}
	return f.extractFFmpeg(ctx, path, start, duration)
}

// extractNative seek-reads a PCM range straight out of a WAV file and
// converts it to mono 16kHz.
func (f *FFmpeg) extractNative(path string, start, duration float64) ([]byte, error) {
	src, err := os.Open(path)
	if err != nil {
		return nil, &Error{Reason: "open source", Err: err}
	}
	defer src.Close()

	rd, err := wav.NewReader(src)
	switch {
	case errors.Is(err, wav.ErrNoAudio):
		return nil, ErrNoAudioTrack
	case errors.Is(err, wav.ErrNotWAV), errors.Is(err, wav.ErrUnsupported):
		return nil, errNotNative
	case err != nil:
		return nil, &Error{Reason: "parse wav", Err: err}
	}

	pcm, err := rd.ReadRange(start, duration)
	if err != nil {
		if errors.Is(err, wav.ErrNoAudio) {
			return nil, &Error{Reason: "requested range has no audio", Err: err}
		}
		return nil, &Error{Reason: "read range", Err: err}
	}

	format := rd.Format()
	if format.Channels > 1 {
		pcm = downmixMono(pcm, format.Channels)
	}
	if format.SampleRate != TargetSampleRate {
		pcm, err = resampleMono(pcm, format.SampleRate, TargetSampleRate)
		if err != nil {
			return nil, &Error{Reason: "resample", Err: err}
		}
	}
	if len(pcm) == 0 {
		return nil, ErrNoAudioTrack
	}
	return wav.Encode(pcm, TargetSampleRate, targetChannels), nil
}

// extractFFmpeg decodes via ffmpeg: input seeking with -ss/-t, raw s16le
// mono 16kHz on stdout.
func (f *FFmpeg) extractFFmpeg(ctx context.Context, path string, start, duration float64) ([]byte, error) {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-nostdin",
		"-ss", formatSeconds(start),
		"-t", formatSeconds(duration),
		"-i", path,
		"-vn",
		"-ac", "1",
		"-ar", fmt.Sprint(TargetSampleRate),
		"-f", "s16le",
		"pipe:1",
	}

	pcm, err := f.runner.Run(ctx, f.bin, args...)
	if err != nil {
		if isNoAudioStream(err) {
			return nil, ErrNoAudioTrack
		}
		return nil, &Error{Reason: "ffmpeg decode", Err: err}
	}
	// Frame-align; a trailing half sample can appear on broken streams.
	pcm = pcm[:len(pcm)/2*2]
	if len(pcm) == 0 {
		return nil, ErrNoAudioTrack
	}
	return wav.Encode(pcm, TargetSampleRate, targetChannels), nil
}

// isNoAudioStream matches the ffmpeg diagnostics emitted when the input has
// no audio stream to map.
func isNoAudioStream(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "does not contain any stream") ||
		strings.Contains(msg, "Stream map") && strings.Contains(msg, "matches no streams") ||
		strings.Contains(msg, "Output file does not contain any stream")
}

// formatSeconds renders a seconds value for an ffmpeg argument.
func formatSeconds(s float64) string {
	return fmt.Sprintf("%.3f", s)
}

// downmixMono averages interleaved channels into mono 16-bit samples.
func downmixMono(pcm []byte, channels int) []byte {
	frames := len(pcm) / (channels * 2)
	out := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		var sum int32
		for c := 0; c < channels; c++ {
			off := (i*channels + c) * 2
			sum += int32(int16(uint16(pcm[off]) | uint16(pcm[off+1])<<8))
		}
		m := int16(sum / int32(channels))
		out[i*2] = byte(m)
		out[i*2+1] = byte(m >> 8)
	}
	return out
}
