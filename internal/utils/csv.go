package utils

import (
	"encoding/csv"
	"os"
	"strconv"

	"fxwatch/internal/domain"
)

// WriteChartPointsToCSV dumps a chart series for offline inspection.
func WriteChartPointsToCSV(points []domain.ChartPoint, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	writer.Write([]string{"date", "time", "rate", "day_change"})

	for _, p := range points {
		writer.Write([]string{
			p.Date,
			p.Time,
			strconv.FormatFloat(p.Rate, 'f', -1, 64),
			strconv.FormatFloat(p.DayChange, 'f', -1, 64),
		})
	}
	return writer.Error()
}
