package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// RecordTTL bounds how long mirrored records outlive a dead server.
	// Refreshed on every write; zero disables expiry.
	RecordTTL time.Duration

	// QueueSize is the mirror's event queue depth. When full, events are
	// dropped; the record catches up on its next change.
	QueueSize int
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		RecordTTL:    time.Hour,
		QueueSize:    256,
	}
}
