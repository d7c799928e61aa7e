package cli

import (
	"os"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string
	AdminKey  string
	Output    string
	Verbose   bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL: getEnvOrDefault("LOBBYD_SERVER", "http://localhost:8080"),
		AdminKey:  os.Getenv("LOBBYD_ADMIN_KEY"),
		Output:    "text",
		Verbose:   false,
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
