package mock

import (
	"math/rand"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/specwire/specwire-go/schema"
)

const defaultSampleSize = 20

// FormatOption configures faker-backed format registration.
type FormatOption func(*formatConfig)

type formatConfig struct {
	sampleSize int
	seed       uint64
}

// WithSampleSize sets how many candidate values are drawn per format.
// Generation then samples uniformly from that pool.
func WithSampleSize(n int) FormatOption {
	return func(c *formatConfig) {
		if n > 0 {
			c.sampleSize = n
		}
	}
}

// WithFakerSeed seeds the faker that draws the candidate pools.
func WithFakerSeed(seed uint64) FormatOption {
	return func(c *formatConfig) {
		c.seed = seed
	}
}

// RegisterFakerFormats installs the faker-backed string formats into a
// format registry. Each format is backed by a pre-drawn pool of sample
// values so that generation stays deterministic under an injected
// randomness source.
func RegisterFakerFormats(registry *schema.FormatRegistry, opts ...FormatOption) {
	cfg := &formatConfig{sampleSize: defaultSampleSize}
	for _, opt := range opts {
		opt(cfg)
	}

	faker := gofakeit.New(cfg.seed)
	for name, draw := range fakerFormats(faker) {
		registry.Register(name, sampled(draw, cfg.sampleSize))
	}
}

// sampled draws size candidates up front and returns a format function
// that picks among them.
func sampled(draw func() string, size int) schema.FormatFunc {
	pool := make([]string, size)
	for i := range pool {
		pool[i] = draw()
	}
	return func(r *rand.Rand) string {
		return pool[r.Intn(len(pool))]
	}
}

func fakerFormats(f *gofakeit.Faker) map[string]func() string {
	return map[string]func() string{
		"first_name":   f.FirstName,
		"last_name":    f.LastName,
		"name":         f.Name,
		"email":        f.Email,
		"user_name":    f.Username,
		"word":         f.Word,
		"sentence":     func() string { return f.Sentence(8) },
		"url":          f.URL,
		"ipv4":         f.IPv4Address,
		"ipv6":         f.IPv6Address,
		"color":        f.Color,
		"phone_number": f.Phone,
		"city":         f.City,
		"country":      f.Country,
		"company":      f.Company,
	}
}
