// Package pricing converts the price representations observed on the wire
// into one canonical numeric form. Remote product data carries prices either
// as raw numbers or as display strings ("89 900 ₽", "1 234,50"); every path
// that constructs a product must go through Normalize so only canonical
// values ever reach a cart line.
package pricing

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Normalize converts any observed price encoding into a non-negative finite
// float. It never fails: unparseable, negative or non-finite input yields 0,
// matching the fallback-tolerant behavior of the rest of the cart engine.
func Normalize(v any) float64 {
	switch p := v.(type) {
	case nil:
		return 0
	case float64:
		return clamp(p)
	case float32:
		return clamp(float64(p))
	case int:
		return clamp(float64(p))
	case int32:
		return clamp(float64(p))
	case int64:
		return clamp(float64(p))
	case json.Number:
		return normalizeString(p.String())
	case string:
		return normalizeString(p)
	default:
		return 0
	}
}

func normalizeString(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return 0
	}
	// Comma is the decimal separator when present; any periods are then
	// thousands separators and get dropped.
	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return clamp(f)
}

func clamp(f float64) float64 {
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
