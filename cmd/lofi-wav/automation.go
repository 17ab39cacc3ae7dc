package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	downsampler "github.com/tphakala/go-audio-downsampler"
)

// automationPoint sets the target rate at a time offset in seconds.
type automationPoint struct {
	rate int
	at   float64
}

// parseAutomation parses a comma-separated list of rate@seconds pairs.
// An empty string yields no points.
func parseAutomation(s string) ([]automationPoint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var points []automationPoint
	for _, field := range strings.Split(s, ",") {
		rateStr, atStr, ok := strings.Cut(strings.TrimSpace(field), "@")
		if !ok {
			return nil, fmt.Errorf("automation point %q: want rate@seconds", field)
		}
		rate, err := strconv.Atoi(strings.TrimSpace(rateStr))
		if err != nil {
			return nil, fmt.Errorf("automation point %q: bad rate: %w", field, err)
		}
		at, err := strconv.ParseFloat(strings.TrimSpace(atStr), 64)
		if err != nil {
			return nil, fmt.Errorf("automation point %q: bad time: %w", field, err)
		}
		if at < 0 {
			return nil, fmt.Errorf("automation point %q: negative time", field)
		}
		points = append(points, automationPoint{rate: rate, at: at})
	}

	slices.SortStableFunc(points, func(a, b automationPoint) int {
		switch {
		case a.at < b.at:
			return -1
		case a.at > b.at:
			return 1
		default:
			return 0
		}
	})
	return points, nil
}

// automationSchedule plays automation points into a rate parameter, the way
// a host would write parameter changes between blocks.
type automationSchedule struct {
	points []automationPoint
	next   int
	param  *downsampler.RateParam
}

func newAutomationSchedule(points []automationPoint, param *downsampler.RateParam) *automationSchedule {
	return &automationSchedule{points: points, param: param}
}

// apply writes every point due at or before t seconds.
func (s *automationSchedule) apply(t float64) {
	for s.next < len(s.points) && s.points[s.next].at <= t {
		s.param.Set(s.points[s.next].rate)
		s.next++
	}
}
