package combat

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NormalizeDuration renders an aggregator duration as "MM:SS", or "H:MM:SS"
// once it reaches an hour. raw may be "M:SS", "H:MM:SS" or a number of
// seconds. Input that cannot be read is returned unchanged; empty input is
// "00:00".
func NormalizeDuration(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "00:00"
	}

	total, ok := durationSeconds(s)
	if !ok {
		return raw
	}

	h, m, sec := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%02d:%02d", m, sec)
}

func durationSeconds(s string) (int, bool) {
	if !strings.Contains(s, ":") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int(f), true
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, false
	}
	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return 0, false
		}
		total = total*60 + n
	}
	return total, true
}
