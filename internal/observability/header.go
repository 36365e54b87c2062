package observability

import (
	"fmt"
	"net/http"
	"time"
)

func Millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// AppendServerTiming adds one Server-Timing entry. Non-positive durations
// are left out of the entry.
func AppendServerTiming(h http.Header, name string, dur time.Duration, desc string) {
	ms := Millis(dur)
	switch {
	case ms > 0 && desc != "":
		h.Add("Server-Timing", fmt.Sprintf("%s;dur=%.2f;desc=%q", name, ms, desc))
	case ms > 0:
		h.Add("Server-Timing", fmt.Sprintf("%s;dur=%.2f", name, ms))
	case desc != "":
		h.Add("Server-Timing", fmt.Sprintf("%s;desc=%q", name, desc))
	}
}

func SetMillis(h http.Header, key string, dur time.Duration) {
	if dur > 0 {
		h.Set(key, fmt.Sprintf("%.2f", Millis(dur)))
	}
}
