package model

import "fmt"

const secondsPerDay = 86400

// MatchTime is a wall-clock time of day for an in-match clock, wrapping on a
// 24-hour cycle. It round-trips through room metadata as an integer.
type MatchTime struct {
	totalSeconds int
}

// NewMatchTime builds a MatchTime from clock components.
func NewMatchTime(hours, minutes, seconds int) MatchTime {
	t := MatchTime{totalSeconds: hours*3600 + minutes*60 + seconds}
	t.normalize()
	return t
}

// MatchTimeFromSeconds restores a MatchTime from its metadata form.
func MatchTimeFromSeconds(total int64) MatchTime {
	t := MatchTime{totalSeconds: int(total)}
	t.normalize()
	return t
}

func (t *MatchTime) normalize() {
	t.totalSeconds %= secondsPerDay
	if t.totalSeconds < 0 {
		t.totalSeconds += secondsPerDay
	}
}

func (t MatchTime) Hours() int   { return t.totalSeconds / 3600 }
func (t MatchTime) Minutes() int { return (t.totalSeconds % 3600) / 60 }
func (t MatchTime) Seconds() int { return t.totalSeconds % 60 }

// TotalSeconds returns the metadata form.
func (t MatchTime) TotalSeconds() int64 { return int64(t.totalSeconds) }

// AddSeconds advances the clock, wrapping at midnight in both directions.
func (t MatchTime) AddSeconds(seconds int) MatchTime {
	next := MatchTime{totalSeconds: t.totalSeconds + seconds}
	next.normalize()
	return next
}

func (t MatchTime) String() string {
	if t.Hours() > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", t.Hours(), t.Minutes(), t.Seconds())
	}
	return fmt.Sprintf("%02d:%02d", t.Minutes(), t.Seconds())
}

// ShortString renders hours and minutes only.
func (t MatchTime) ShortString() string {
	return fmt.Sprintf("%02d:%02d", t.Hours(), t.Minutes())
}
