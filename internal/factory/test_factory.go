package factory

import (
	"fmt"
	"time"

	"github.com/lobbyd/lobbyd/internal/dependencies/mocks"
	"github.com/lobbyd/lobbyd/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// The random source is pre-seeded so identifier allocation is deterministic.
func NewTestApp(cfg Config) *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	for i := 0; i < 64; i++ {
		mockRandom.QueueUUID(uuidAt(i))
	}

	if cfg.Logger == nil {
		cfg.Logger = testutil.NopLogger()
	}
	app := newWithDependencies(cfg, mockClock, mockRandom, nil, cfg.Logger)

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}

// uuidAt is the identifier the seeded random source hands out on its n-th
// draw (zero-based).
func uuidAt(n int) string {
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", n)
}
