package domain

import (
	"fmt"
	"time"
)

// Period is a coarse preset time window for history queries. The first five
// values are resolved server-side; PeriodYearToDate and PeriodCustom are
// client-only post-filters layered on top of an already-fetched series.
type Period string

const (
	PeriodDay        Period = "1d"
	PeriodWeek       Period = "1w"
	PeriodMonth      Period = "1m"
	PeriodQuarter    Period = "3m"
	PeriodYear       Period = "1y"
	PeriodYearToDate Period = "ytd"
	PeriodCustom     Period = "custom"
)

// ParsePeriod validates a period code.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodQuarter, PeriodYear, PeriodYearToDate, PeriodCustom:
		return Period(s), nil
	}
	return "", fmt.Errorf("unknown period code %q", s)
}

// RequestCode maps a period to the code sent to the history endpoint. The
// client-only filters fetch a year of data and slice it locally.
func (p Period) RequestCode() string {
	switch p {
	case PeriodYearToDate, PeriodCustom:
		return string(PeriodYear)
	default:
		return string(p)
	}
}

// HistoryPoint is one raw observation in a history payload, before any
// client-side labelling.
type HistoryPoint struct {
	Date      string  `json:"date"`           // calendar day, "2006-01-02"
	Time      string  `json:"time,omitempty"` // clock time "15:04" on intraday series
	Rate      float64 `json:"rate"`
	DayChange float64 `json:"dayChange"`
}

// HistorySnapshot is the full payload of one history fetch.
type HistorySnapshot struct {
	BaseCurrency   string         `json:"baseCurrency"`
	TargetCurrency string         `json:"targetCurrency"`
	Period         string         `json:"period"`
	CurrentRate    float64        `json:"currentRate"`
	Change         float64        `json:"change"`
	ChangePercent  float64        `json:"changePercent"`
	LastUpdated    time.Time      `json:"lastUpdated"`
	Points         []HistoryPoint `json:"chartData"`
}

// ChartPoint is one displayable point of a historical series. Points are
// created once per fetch and never mutated; a new fetch or filter change
// rebuilds the whole slice.
type ChartPoint struct {
	Date         string
	Time         string
	Rate         float64
	DayChange    float64
	AxisLabel    string
	TooltipLabel string
	Instant      time.Time
}

// ChartStatistics summarises a filtered series. Average is rounded to two
// decimal places. HighPoint and LowPoint are the first points holding the
// records when several points tie.
type ChartStatistics struct {
	High    float64
	Low     float64
	Average float64

	HighPoint *ChartPoint
	LowPoint  *ChartPoint
}

// CustomRange is a user-chosen inclusive day-range filter. Either bound may be
// empty, meaning unbounded on that side. Days are "2006-01-02" strings; the
// start bound covers from 00:00:00 and the end bound through 23:59:59 local.
type CustomRange struct {
	Start string
	End   string
}

// IsZero reports whether neither bound is set.
func (r CustomRange) IsZero() bool {
	return r.Start == "" && r.End == ""
}
