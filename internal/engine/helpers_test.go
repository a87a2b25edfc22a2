package engine

import "time"

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

// gridMeasurer treats every rune as one unit wide and lines as 10 high.
type gridMeasurer struct{}

func (gridMeasurer) Measure(text string, size float64) float64 { return float64(len([]rune(text))) }
func (gridMeasurer) LineHeight(size float64) float64           { return 10 }
