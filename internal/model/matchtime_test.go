package model

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type MatchTimeSuite struct {
	suite.Suite
}

func TestMatchTimeSuite(t *testing.T) {
	suite.Run(t, new(MatchTimeSuite))
}

func (s *MatchTimeSuite) TestComponents() {
	t := NewMatchTime(13, 45, 30)
	s.Equal(13, t.Hours())
	s.Equal(45, t.Minutes())
	s.Equal(30, t.Seconds())
}

func (s *MatchTimeSuite) TestWrapsAtMidnight() {
	t := NewMatchTime(23, 59, 59).AddSeconds(2)
	s.Equal(0, t.Hours())
	s.Equal(0, t.Minutes())
	s.Equal(1, t.Seconds())
}

func (s *MatchTimeSuite) TestNegativeAddWrapsBackward() {
	t := NewMatchTime(0, 0, 30).AddSeconds(-60)
	s.Equal(23, t.Hours())
	s.Equal(59, t.Minutes())
	s.Equal(30, t.Seconds())
}

func (s *MatchTimeSuite) TestMetadataRoundTrip() {
	orig := NewMatchTime(6, 30, 15)

	m, err := Metadata("").SetMatchTime("matchTime", orig)
	s.Require().NoError(err)

	s.Equal(orig, m.GetMatchTime("matchTime", MatchTime{}))
}

func (s *MatchTimeSuite) TestMetadataDefaultWhenAbsent() {
	def := NewMatchTime(12, 0, 0)
	s.Equal(def, Metadata("").GetMatchTime("matchTime", def))
}

func (s *MatchTimeSuite) TestStringFormats() {
	s.Equal("09:05:07", NewMatchTime(9, 5, 7).String())
	s.Equal("05:07", NewMatchTime(0, 5, 7).String())
	s.Equal("09:05", NewMatchTime(9, 5, 7).ShortString())
}
