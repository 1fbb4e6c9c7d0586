// Package wav implements a minimal canonical RIFF/WAVE container: encoding
// of 16-bit PCM into a WAV byte stream, and seek-based reading of time
// ranges out of WAV files without loading the whole file.
//
// Only uncompressed PCM (format tag 1) with 16-bit samples is supported,
// which is the interchange format used throughout the identity pipeline.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Sentinel errors.
var (
	// ErrNotWAV is returned when the input is not a RIFF/WAVE stream.
	ErrNotWAV = errors.New("wav: not a RIFF/WAVE stream")

	// ErrNoAudio is returned when the stream has no usable audio data
	// (missing fmt or data chunk, or an empty data chunk).
	ErrNoAudio = errors.New("wav: no audio data")

	// ErrUnsupported is returned for encodings other than 16-bit PCM.
	ErrUnsupported = errors.New("wav: unsupported encoding")
)

// Format describes the PCM layout of a WAV stream. Samples are always
// 16-bit signed little-endian.
type Format struct {
	// SampleRate in Hz (e.g. 16000, 44100).
	SampleRate int

	// Channels is 1 for mono, 2 for stereo.
	Channels int
}

// BlockAlign returns the byte size of one frame (all channels).
func (f Format) BlockAlign() int {
	return f.Channels * 2
}

// ByteRate returns bytes per second of audio.
func (f Format) ByteRate() int {
	return f.SampleRate * f.BlockAlign()
}

const headerSize = 44

// Encode wraps raw 16-bit little-endian PCM in a canonical WAV header:
// RIFF/WAVE with a 16-byte fmt chunk (PCM tag 1) followed by the data
// chunk. The RIFF size is 36 + len(pcm).
func Encode(pcm []byte, sampleRate, channels int) []byte {
	f := Format{SampleRate: sampleRate, Channels: channels}
	buf := make([]byte, headerSize+len(pcm))

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+len(pcm)))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(buf[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(f.ByteRate()))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(f.BlockAlign()))
	binary.LittleEndian.PutUint16(buf[34:36], 16) // bits per sample

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(len(pcm)))
	copy(buf[44:], pcm)

	return buf
}

// Reader reads PCM time ranges out of a WAV stream by seeking, so hour-long
// recordings never need to be read end to end.
type Reader struct {
	r         io.ReadSeeker
	format    Format
	dataStart int64
	dataLen   int64
}

// NewReader parses the RIFF header and chunk list of r and positions the
// reader for ranged reads. Unknown chunks (LIST, fact, ...) are skipped.
func NewReader(r io.ReadSeeker) (*Reader, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, ErrNotWAV
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, ErrNotWAV
	}

	rd := &Reader{r: r}
	haveFmt := false
	offset := int64(12)
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			break // ran out of chunks
		}
		id := string(hdr[0:4])
		size := int64(binary.LittleEndian.Uint32(hdr[4:8]))
		offset += 8

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, ErrNotWAV
			}
			var chunk [16]byte
			if _, err := io.ReadFull(r, chunk[:]); err != nil {
				return nil, ErrNotWAV
			}
			tag := binary.LittleEndian.Uint16(chunk[0:2])
			bits := binary.LittleEndian.Uint16(chunk[14:16])
			if tag != 1 || bits != 16 {
				return nil, fmt.Errorf("%w: format tag %d, %d bits", ErrUnsupported, tag, bits)
			}
			rd.format = Format{
				Channels:   int(binary.LittleEndian.Uint16(chunk[2:4])),
				SampleRate: int(binary.LittleEndian.Uint32(chunk[4:8])),
			}
			if rd.format.Channels < 1 || rd.format.SampleRate <= 0 {
				return nil, ErrNoAudio
			}
			haveFmt = true
			// Skip any fmt extension bytes.
			if size > 16 {
				if _, err := r.Seek(size-16, io.SeekCurrent); err != nil {
					return nil, ErrNotWAV
				}
			}
		case "data":
			rd.dataStart = offset
			rd.dataLen = size
			if _, err := r.Seek(size, io.SeekCurrent); err != nil {
				return nil, ErrNotWAV
			}
		default:
			if _, err := r.Seek(size, io.SeekCurrent); err != nil {
				return nil, ErrNotWAV
			}
		}
		// Chunks are word-aligned; odd sizes carry a pad byte.
		if size%2 == 1 {
			if _, err := r.Seek(1, io.SeekCurrent); err != nil {
				break
			}
			offset++
		}
		offset += size
		if haveFmt && rd.dataLen > 0 {
			break
		}
	}

	if !haveFmt || rd.dataLen == 0 {
		return nil, ErrNoAudio
	}

	// A data chunk may claim more bytes than the file holds (truncated
	// recording). Trust the bytes that exist.
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, ErrNotWAV
	}
	if rd.dataStart+rd.dataLen > end {
		rd.dataLen = (end - rd.dataStart) / int64(rd.format.BlockAlign()) * int64(rd.format.BlockAlign())
		if rd.dataLen <= 0 {
			return nil, ErrNoAudio
		}
	}
	return rd, nil
}

// Format returns the PCM layout of the stream.
func (rd *Reader) Format() Format {
	return rd.format
}

// Duration returns the total audio length in seconds.
func (rd *Reader) Duration() float64 {
	return float64(rd.dataLen) / float64(rd.format.ByteRate())
}

// ReadRange returns the raw PCM for [start, start+duration) seconds,
// clamped to the stream's extent. The returned slice is frame-aligned.
func (rd *Reader) ReadRange(start, duration float64) ([]byte, error) {
	if start < 0 {
		start = 0
	}
	align := int64(rd.format.BlockAlign())

	byteOff := int64(start*float64(rd.format.ByteRate())) / align * align
	if byteOff >= rd.dataLen {
		return nil, fmt.Errorf("%w: range starts past end of audio", ErrNoAudio)
	}
	byteLen := int64(duration*float64(rd.format.ByteRate())) / align * align
	if byteOff+byteLen > rd.dataLen {
		byteLen = rd.dataLen - byteOff
	}
	if byteLen <= 0 {
		return nil, fmt.Errorf("%w: empty range", ErrNoAudio)
	}

	if _, err := rd.r.Seek(rd.dataStart+byteOff, io.SeekStart); err != nil {
		return nil, fmt.Errorf("wav: seek: %w", err)
	}
	pcm := make([]byte, byteLen)
	if _, err := io.ReadFull(rd.r, pcm); err != nil {
		return nil, fmt.Errorf("wav: read range: %w", err)
	}
	return pcm, nil
}
