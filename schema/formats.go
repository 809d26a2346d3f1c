package schema

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FormatFunc produces a string for a named format hint.
type FormatFunc func(r *rand.Rand) string

// FormatRegistry maps format hint names to string generators. Lookups are
// case-sensitive. The registry is safe for concurrent use, so an external
// fake-data provider can be swapped in while generation is running.
type FormatRegistry struct {
	mu      sync.RWMutex
	formats map[string]FormatFunc
}

// NewFormatRegistry creates a registry pre-loaded with the structural
// formats the engine can satisfy without an external provider.
func NewFormatRegistry() *FormatRegistry {
	r := &FormatRegistry{
		formats: make(map[string]FormatFunc),
	}

	r.Register("uuid", func(_ *rand.Rand) string {
		return uuid.NewString()
	})
	r.Register("date", func(rng *rand.Rand) string {
		return randomTime(rng).Format("2006-01-02")
	})
	r.Register("date-time", func(rng *rand.Rand) string {
		return randomTime(rng).Format(time.RFC3339)
	})

	return r
}

// Register adds or replaces the generator for a format name.
func (r *FormatRegistry) Register(name string, fn FormatFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formats[name] = fn
}

// Lookup returns the generator registered for name, if any.
func (r *FormatRegistry) Lookup(name string) (FormatFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.formats[name]
	return fn, ok
}

// Names returns the registered format names in sorted order.
func (r *FormatRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.formats))
	for name := range r.formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func randomTime(rng *rand.Rand) time.Time {
	// Anywhere within roughly the last decade.
	offset := time.Duration(rng.Int63n(int64(10 * 365 * 24 * time.Hour)))
	return time.Unix(0, 0).Add(offset).Add(time.Hour * 24 * 365 * 45).UTC()
}
