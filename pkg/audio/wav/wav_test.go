package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// tone produces n frames of 16-bit PCM with a recognizable ramp so range
// reads can be checked by value.
func tone(n, channels int) []byte {
	buf := make([]byte, n*channels*2)
	for i := 0; i < n*channels; i++ {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(i))
	}
	return buf
}

func TestEncodeHeader(t *testing.T) {
	const n = 1000 // mono 16-bit samples
	pcm := tone(n, 1)
	out := Encode(pcm, 16000, 1)

	if len(out) != 44+2*n {
		t.Fatalf("total size %d, want %d", len(out), 44+2*n)
	}
	if string(out[0:4]) != "RIFF" || string(out[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE magic")
	}
	if riffSize := binary.LittleEndian.Uint32(out[4:8]); riffSize != 36+2*n {
		t.Errorf("RIFF size %d, want %d", riffSize, 36+2*n)
	}
	if dataSize := binary.LittleEndian.Uint32(out[40:44]); dataSize != 2*n {
		t.Errorf("data size %d, want %d", dataSize, 2*n)
	}
	if tag := binary.LittleEndian.Uint16(out[20:22]); tag != 1 {
		t.Errorf("format tag %d, want 1 (PCM)", tag)
	}
	if byteRate := binary.LittleEndian.Uint32(out[28:32]); byteRate != 32000 {
		t.Errorf("byte rate %d, want 32000", byteRate)
	}
	if blockAlign := binary.LittleEndian.Uint16(out[32:34]); blockAlign != 2 {
		t.Errorf("block align %d, want 2", blockAlign)
	}
}

func TestReaderRoundTrip(t *testing.T) {
	pcm := tone(16000, 1) // 1s mono at 16kHz
	rd, err := NewReader(bytes.NewReader(Encode(pcm, 16000, 1)))
	if err != nil {
		t.Fatal(err)
	}
	if f := rd.Format(); f.SampleRate != 16000 || f.Channels != 1 {
		t.Fatalf("format %+v", f)
	}
	if d := rd.Duration(); d != 1.0 {
		t.Errorf("duration %v, want 1.0", d)
	}

	got, err := rd.ReadRange(0, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, pcm) {
		t.Error("full-range read differs from source PCM")
	}
}

func TestReaderRangedRead(t *testing.T) {
	pcm := tone(16000, 2) // 1s stereo
	rd, err := NewReader(bytes.NewReader(Encode(pcm, 16000, 2)))
	if err != nil {
		t.Fatal(err)
	}

	// Quarter second starting at 0.5s.
	got, err := rd.ReadRange(0.5, 0.25)
	if err != nil {
		t.Fatal(err)
	}
	wantLen := 16000 / 4 * 4 // frames * block align
	if len(got) != wantLen {
		t.Fatalf("range length %d, want %d", len(got), wantLen)
	}
	off := int64(0.5 * 16000 * 4)
	if !bytes.Equal(got, pcm[off:off+int64(wantLen)]) {
		t.Error("ranged read not aligned with source PCM")
	}
}

func TestReaderClampsToExtent(t *testing.T) {
	pcm := tone(8000, 1) // 0.5s
	rd, err := NewReader(bytes.NewReader(Encode(pcm, 16000, 1)))
	if err != nil {
		t.Fatal(err)
	}
	got, err := rd.ReadRange(0.25, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 8000 { // remaining 0.25s
		t.Errorf("clamped length %d, want 8000", len(got))
	}

	if _, err := rd.ReadRange(5, 1); !errors.Is(err, ErrNoAudio) {
		t.Errorf("read past end: got %v, want ErrNoAudio", err)
	}
}

func TestReaderRejectsGarbage(t *testing.T) {
	if _, err := NewReader(bytes.NewReader([]byte("ID3\x04not a wav file at all"))); !errors.Is(err, ErrNotWAV) {
		t.Errorf("got %v, want ErrNotWAV", err)
	}
}

func TestReaderRejectsNonPCM(t *testing.T) {
	out := Encode(tone(100, 1), 16000, 1)
	binary.LittleEndian.PutUint16(out[20:22], 3) // IEEE float tag
	if _, err := NewReader(bytes.NewReader(out)); !errors.Is(err, ErrUnsupported) {
		t.Errorf("got %v, want ErrUnsupported", err)
	}
}

func TestReaderSkipsExtraChunks(t *testing.T) {
	// Build RIFF with a LIST chunk between fmt and data.
	pcm := tone(100, 1)
	canonical := Encode(pcm, 16000, 1)

	var buf bytes.Buffer
	buf.Write(canonical[:36]) // RIFF header + fmt chunk
	buf.WriteString("LIST")
	list := []byte("INFOsoftware")
	binary.Write(&buf, binary.LittleEndian, uint32(len(list)))
	buf.Write(list)
	buf.Write(canonical[36:]) // data chunk

	// Fix outer RIFF size.
	out := buf.Bytes()
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(out)-8))

	rd, err := NewReader(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	got, err := rd.ReadRange(0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, pcm) {
		t.Error("PCM mismatch after skipping LIST chunk")
	}
}
