package services

import (
	"hash/fnv"
	"strings"
)

// CityVariation holds the bounded offsets applied to a synthesized record
// so different places and days diverge visibly while the same input always
// produces the same output.
type CityVariation struct {
	Temperature   float64 // ±7 degrees
	Humidity      int     // ±10 points
	WindSpeed     float64 // ±5 m/s
	Precipitation int     // 0..+15 points
}

// canonicalPlaceKey reduces a place name to its lookup form: lowercased,
// trimmed, country suffix after a comma dropped.
func canonicalPlaceKey(place string) string {
	key := strings.ToLower(strings.TrimSpace(place))

	if idx := strings.IndexByte(key, ','); idx >= 0 {
		key = strings.TrimSpace(key[:idx])
	}

	return key
}

// VariationFor derives deterministic offsets from (place, dateKey) using
// FNV-1a. Pure function of its inputs: identical across calls and process
// restarts, no randomness involved.
func VariationFor(place, dateKey string) CityVariation {
	h := fnv.New64a()
	_, _ = h.Write([]byte(canonicalPlaceKey(place)))
	_, _ = h.Write([]byte{'|'})
	_, _ = h.Write([]byte(dateKey))
	sum := h.Sum64()

	return CityVariation{
		Temperature:   float64(int64(sum%141)-70) / 10.0,
		Humidity:      int((sum>>8)%21) - 10,
		WindSpeed:     float64(int64((sum>>16)%101)-50) / 10.0,
		Precipitation: int((sum >> 24) % 16),
	}
}
