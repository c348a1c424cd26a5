// Package geometry decodes stored ride route geometry into ordered
// (lat, lng) coordinate pairs for map display.
//
// Two storage formats coexist: early seed data stored a plain JSON array of
// coordinate pairs, while everything synced from Strava stores the encoded
// polyline string untouched. The format is detected at decode time; both
// read paths are permanently supported.
package geometry

import (
	"encoding/json"
	"strings"

	"github.com/twpayne/go-polyline"
)

// Decode converts a stored geometry value into coordinate pairs. A value
// that can't be decoded in either format yields an empty slice, never an
// error: callers skip rides without drawable geometry.
func Decode(stored string) [][]float64 {
	stored = strings.TrimSpace(stored)
	if stored == "" {
		return [][]float64{}
	}

	if strings.HasPrefix(stored, "[") {
		return decodeLegacy(stored)
	}

	coords, rest, err := polyline.DecodeCoords([]byte(stored))
	if err != nil || len(rest) != 0 {
		return [][]float64{}
	}
	return coords
}

// decodeLegacy parses the JSON coordinate-array format.
func decodeLegacy(stored string) [][]float64 {
	var pairs [][]float64
	if err := json.Unmarshal([]byte(stored), &pairs); err != nil {
		return [][]float64{}
	}
	for _, p := range pairs {
		if len(p) != 2 {
			return [][]float64{}
		}
	}
	if pairs == nil {
		return [][]float64{}
	}
	return pairs
}

// Encode produces the compact polyline encoding of coords. Only used by
// round-trip tests; rides store geometry exactly as Strava sent it.
func Encode(coords [][]float64) string {
	return string(polyline.EncodeCoords(coords))
}
