package routing

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/theoremus-urban-solutions/railtrips/trips"
)

// LineClass is the infrastructure category of a routed segment.
type LineClass int

const (
	LineUnknown LineClass = iota
	LineHighSpeed
	LineConventional
)

func (c LineClass) String() string {
	switch c {
	case LineHighSpeed:
		return "high_speed"
	case LineConventional:
		return "conventional"
	default:
		return "unknown"
	}
}

// Speed thresholds in km/h for classes of the form "maxspeed<digits>".
const (
	HighSpeedMinKMH    = 200
	ConventionalMaxKMH = 160
)

var (
	highSpeedTags    = map[string]bool{"high_speed": true, "highspeed": true, "lgv": true, "main": true}
	conventionalTags = map[string]bool{"regional": true, "branch": true, "secondary": true}
)

// ClassifyLine decides the class of a segment from its tags. Explicit
// high-speed tags win over conventional ones; speed tags are consulted only
// when neither is present.
func ClassifyLine(tags []string) LineClass {
	conventional := false
	for _, t := range tags {
		t = strings.ToLower(t)
		if highSpeedTags[t] {
			return LineHighSpeed
		}
		if conventionalTags[t] {
			conventional = true
		}
	}
	if conventional {
		return LineConventional
	}

	slow := false
	for _, t := range tags {
		speed, ok := maxSpeed(t)
		if !ok {
			continue
		}
		if speed >= HighSpeedMinKMH {
			return LineHighSpeed
		}
		if speed < ConventionalMaxKMH {
			slow = true
		}
	}
	if slow {
		return LineConventional
	}
	return LineUnknown
}

// maxSpeed reads the digits of a maxspeed class, e.g. "maxspeed_220".
func maxSpeed(tag string) (int, bool) {
	if !strings.Contains(strings.ToLower(tag), "maxspeed") {
		return 0, false
	}
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, tag)
	if digits == "" {
		return 0, false
	}
	speed, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return speed, true
}

// Breakdown partitions the segments' lengths by line class.
func Breakdown(segments []Segment) trips.RouteDistanceBreakdown {
	var hs, cv, uk float64
	for _, s := range segments {
		switch ClassifyLine(s.Tags) {
		case LineHighSpeed:
			hs += s.LengthKM
		case LineConventional:
			cv += s.LengthKM
		default:
			uk += s.LengthKM
		}
	}
	return trips.NewBreakdown(hs, cv, uk)
}
