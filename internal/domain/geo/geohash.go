package geo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mmcloughlin/geohash"
)

const geohashAlphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

// MaxGeohashLength bounds accepted geohash strings (12 chars is ~3.7cm).
const MaxGeohashLength = 12

// FromGeohash decodes a geohash to the center of its cell.
func FromGeohash(hash string) (Point, error) {
	hash = strings.ToLower(strings.TrimSpace(hash))
	if hash == "" {
		return Point{}, fmt.Errorf("empty geohash")
	}
	if len(hash) > MaxGeohashLength {
		return Point{}, fmt.Errorf("geohash %q too long (max %d)", hash, MaxGeohashLength)
	}
	for _, c := range hash {
		if !strings.ContainsRune(geohashAlphabet, c) {
			return Point{}, fmt.Errorf("invalid geohash %q: unexpected character %q", hash, c)
		}
	}
	lat, lon := geohash.DecodeCenter(hash)
	return Point{Lat: lat, Lon: lon}, nil
}

// ToGeohash encodes p at full (12 character) precision.
func ToGeohash(p Point) string {
	return geohash.Encode(p.Lat, p.Lon)
}

// ParsePoint reads either "lat,lon" or a geohash.
func ParsePoint(s string) (Point, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return FromGeohash(s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid latitude %q: %w", latStr, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid longitude %q: %w", lonStr, err)
	}
	return Point{Lat: lat, Lon: lon}, nil
}
