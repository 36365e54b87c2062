package service

import "time"

// Stats describes where the time of one read went.
type Stats struct {
	Storage time.Duration
	Enrich  time.Duration
	// Degraded counts lookups answered with a placeholder.
	Degraded int
}
