package extract

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// resampleMono converts mono 16-bit PCM from srcRate to dstRate using a
// pure Go resampler (no CGO/FFI dependencies).
func resampleMono(pcm []byte, srcRate, dstRate int) ([]byte, error) {
	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("create resampler: %w", err)
	}

	// int16 LE bytes → normalized float64 samples.
	samples := len(pcm) / 2
	input := make([]float64, samples)
	for i := 0; i < samples; i++ {
		s := int16(uint16(pcm[i*2]) | uint16(pcm[i*2+1])<<8)
		input[i] = float64(s) / 32768.0
	}

	output, err := rs.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}

	out := make([]byte, len(output)*2)
	for i, v := range output {
		s := int16(v * 32767.0)
		if v > 1.0 {
			s = 32767
		} else if v < -1.0 {
			s = -32768
		}
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out, nil
}
