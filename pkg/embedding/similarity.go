package embedding

import (
	"math"

	"github.com/voznote/speakerid/pkg/profile"
)

// CosineSimilarity computes dot(a,b) / (‖a‖·‖b‖) without any network call.
// It returns 0 when either vector is empty, the lengths differ, or either
// norm is zero, so degenerate input never divides by zero and never
// matches anything.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		ai, bi := float64(a[i]), float64(b[i])
		dot += ai * bi
		na += ai * ai
		nb += bi * bi
	}
	denom := math.Sqrt(na) * math.Sqrt(nb)
	if denom == 0 {
		return 0
	}
	return float32(dot / denom)
}

// FindBestMatch scans the known profiles for the one most similar to emb.
// It returns the argmax profile and its similarity, or ok=false when no
// candidate reaches SameSpeakerThreshold. Highest similarity above the
// threshold wins; there is no secondary tie-break.
func FindBestMatch(emb []float32, profiles []*profile.Profile) (best *profile.Profile, similarity float32, ok bool) {
	bestSim := float32(-1)
	for _, p := range profiles {
		sim := CosineSimilarity(emb, p.Embedding)
		if sim > bestSim {
			bestSim = sim
			best = p
		}
	}
	if best == nil || bestSim < SameSpeakerThreshold {
		return nil, 0, false
	}
	return best, bestSim, true
}
