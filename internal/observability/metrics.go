package observability

// Metrics is the sink for everything the enrichment core reports.
// entity is "product" or "user".
type Metrics interface {
	// source: cache, remote, fallback, notfound
	ObserveLookup(entity, source string, durMs float64)
	// outcome: ok, not_found, caller_fault, rejected, open, timeout, transport
	ObserveUpstream(entity, outcome string, durMs float64)
	ObserveBreaker(entity, state string)
	ObserveInvalidation(routingKey, action string, ok bool)
	ObserveHTTP(method, route string, status int, durMs float64)
	IncCacheHit(entity string)
	IncCacheMiss(entity string)
}

type Noop struct{}

func (Noop) ObserveLookup(string, string, float64)    {}
func (Noop) ObserveUpstream(string, string, float64)  {}
func (Noop) ObserveBreaker(string, string)            {}
func (Noop) ObserveInvalidation(string, string, bool) {}
func (Noop) ObserveHTTP(string, string, int, float64) {}
func (Noop) IncCacheHit(string)                       {}
func (Noop) IncCacheMiss(string)                      {}
