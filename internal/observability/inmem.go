package observability

import "sync"

type observe struct {
	Kind   string
	Entity string
	Label  string
	Status int
	OK     bool
	Dur    float64
}

// Inmem keeps the last max observations and cache counters per entity.
// Used in tests and in the "dev" profile.
type Inmem struct {
	mu     sync.Mutex
	last   []*observe
	max    int
	totals struct {
		cacheHits, cacheMiss map[string]int
	}
}

func NewInmem(max int) *Inmem {
	return &Inmem{
		max: max,
	}
}

func (m *Inmem) push(v *observe) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = append(m.last, v)
	if len(m.last) > m.max {
		m.last = m.last[len(m.last)-m.max:]
	}
}

func (m *Inmem) ObserveLookup(entity, source string, durMs float64) {
	m.push(&observe{Kind: "lookup", Entity: entity, Label: source, Dur: durMs})
}

func (m *Inmem) ObserveUpstream(entity, outcome string, durMs float64) {
	m.push(&observe{Kind: "upstream", Entity: entity, Label: outcome, Dur: durMs})
}

func (m *Inmem) ObserveBreaker(entity, state string) {
	m.push(&observe{Kind: "breaker", Entity: entity, Label: state})
}

func (m *Inmem) ObserveInvalidation(routingKey, action string, ok bool) {
	m.push(&observe{Kind: "invalidation", Entity: routingKey, Label: action, OK: ok})
}

func (m *Inmem) ObserveHTTP(method, route string, status int, durMs float64) {
	m.push(&observe{Kind: "http", Entity: method, Label: route, Status: status, Dur: durMs})
}

func (m *Inmem) IncCacheHit(entity string) {
	m.mu.Lock()
	if m.totals.cacheHits == nil {
		m.totals.cacheHits = make(map[string]int)
	}
	m.totals.cacheHits[entity]++
	m.mu.Unlock()
}

func (m *Inmem) IncCacheMiss(entity string) {
	m.mu.Lock()
	if m.totals.cacheMiss == nil {
		m.totals.cacheMiss = make(map[string]int)
	}
	m.totals.cacheMiss[entity]++
	m.mu.Unlock()
}

// Kinds returns the kinds of the retained observations, oldest first.
func (m *Inmem) Kinds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.last))
	for _, o := range m.last {
		out = append(out, o.Kind+":"+o.Label)
	}
	return out
}

func (m *Inmem) CacheHits(entity string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totals.cacheHits[entity]
}

func (m *Inmem) CacheMisses(entity string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totals.cacheMiss[entity]
}
