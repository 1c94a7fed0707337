package chart

import (
	"math"
	"time"

	"fxwatch/internal/domain"
)

// Filter is the client-side view filter layered over a fetched series. Named
// periods keep the server's slicing; PeriodYearToDate and PeriodCustom cut
// the series locally.
type Filter struct {
	Period domain.Period
	Custom domain.CustomRange
}

// Aggregator turns raw history payloads into display-ready chart points and
// summary statistics.
type Aggregator struct {
	loc *time.Location
	now func() time.Time
}

// NewAggregator creates an aggregator labelling points in loc.
func NewAggregator(loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.Local
	}
	return &Aggregator{loc: loc, now: time.Now}
}

// TransformSeries converts a snapshot's raw points into chart points with
// precomputed labels. Points are immutable after this; a filter change
// rebuilds the slice from the raw series instead of editing it.
func (a *Aggregator) TransformSeries(snapshot *domain.HistorySnapshot, period domain.Period) []domain.ChartPoint {
	if snapshot == nil || len(snapshot.Points) == 0 {
		return nil
	}

	intraday := period == domain.PeriodDay
	points := make([]domain.ChartPoint, 0, len(snapshot.Points))
	for _, raw := range snapshot.Points {
		instant := parseInstant(raw.Date, raw.Time, a.loc)
		point := domain.ChartPoint{
			Date:      raw.Date,
			Time:      raw.Time,
			Rate:      raw.Rate,
			DayChange: raw.DayChange,
			Instant:   instant,
		}
		if intraday && raw.Time != "" {
			point.AxisLabel = raw.Time
			point.TooltipLabel = instant.Format("Jan 2, 2006 15:04")
		} else {
			point.AxisLabel = instant.Format("Jan 2")
			point.TooltipLabel = instant.Format("Jan 2, 2006")
		}
		points = append(points, point)
	}
	return points
}

// ApplyFilter cuts a transformed series down to the filter's window. Named
// periods pass the series through untouched.
func (a *Aggregator) ApplyFilter(points []domain.ChartPoint, filter Filter) []domain.ChartPoint {
	switch filter.Period {
	case domain.PeriodYearToDate:
		cutoff := time.Date(a.now().In(a.loc).Year(), time.January, 1, 0, 0, 0, 0, a.loc)
		return keep(points, func(p domain.ChartPoint) bool {
			return !p.Instant.Before(cutoff)
		})
	case domain.PeriodCustom:
		if filter.Custom.IsZero() {
			return points
		}
		var start, end time.Time
		if filter.Custom.Start != "" {
			start = parseInstant(filter.Custom.Start, "", a.loc)
		}
		if filter.Custom.End != "" {
			// End bound covers the whole calendar day.
			end = parseInstant(filter.Custom.End, "", a.loc).Add(24*time.Hour - time.Second)
		}
		return keep(points, func(p domain.ChartPoint) bool {
			if !start.IsZero() && p.Instant.Before(start) {
				return false
			}
			if !end.IsZero() && p.Instant.After(end) {
				return false
			}
			return true
		})
	default:
		return points
	}
}

// Aggregate summarises a filtered series in a single pass. Strict comparisons
// keep the first occurrence of a tied record. An empty series yields nil.
func (a *Aggregator) Aggregate(points []domain.ChartPoint) *domain.ChartStatistics {
	if len(points) == 0 {
		return nil
	}

	stats := &domain.ChartStatistics{
		High:      points[0].Rate,
		Low:       points[0].Rate,
		HighPoint: &points[0],
		LowPoint:  &points[0],
	}
	sum := 0.0
	for i := range points {
		rate := points[i].Rate
		sum += rate
		if rate > stats.High {
			stats.High = rate
			stats.HighPoint = &points[i]
		}
		if rate < stats.Low {
			stats.Low = rate
			stats.LowPoint = &points[i]
		}
	}
	stats.Average = math.Round(sum/float64(len(points))*100) / 100
	return stats
}

func keep(points []domain.ChartPoint, pred func(domain.ChartPoint) bool) []domain.ChartPoint {
	var out []domain.ChartPoint
	for _, p := range points {
		if pred(p) {
			out = append(out, p)
		}
	}
	return out
}

func parseInstant(date, clock string, loc *time.Location) time.Time {
	if clock != "" {
		if t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc); err == nil {
			return t
		}
	}
	t, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}
