// Package charts renders dense histogram buckets as PNG bar charts.
// Rendering failures are expected to degrade to text-only statistics, so
// every function returns the image bytes or an error, never both.
package charts

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
)

var weekdayLabels = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

var monthLabels = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// HourActivity renders a 24-bucket hour-of-day histogram.
func HourActivity(buckets []int, periodLabel string) ([]byte, error) {
	labels := make([]string, len(buckets))
	for h := range labels {
		labels[h] = fmt.Sprintf("%02d", h)
	}
	return render("Activity by hour — "+periodLabel, labels, buckets, 1024)
}

// WeekdayActivity renders a 7-bucket weekday histogram, bucket 0 = Monday.
func WeekdayActivity(buckets []int, periodLabel string) ([]byte, error) {
	return render("Activity by weekday — "+periodLabel, weekdayLabels[:len(buckets)], buckets, 768)
}

// DaysOfMonth renders one bar per day of a month, bucket 0 = day 1.
func DaysOfMonth(buckets []int, monthName string, year int) ([]byte, error) {
	labels := make([]string, len(buckets))
	for d := range labels {
		labels[d] = fmt.Sprintf("%d", d+1)
	}
	return render(fmt.Sprintf("Activity by day — %s %d", monthName, year), labels, buckets, 1280)
}

// MonthsOfYear renders the 12-bucket month histogram of one year.
func MonthsOfYear(buckets []int, year int) ([]byte, error) {
	return render(fmt.Sprintf("Activity by month — %d", year), monthLabels[:len(buckets)], buckets, 1024)
}

func render(title string, labels []string, buckets []int, width int) ([]byte, error) {
	if len(labels) != len(buckets) {
		return nil, fmt.Errorf("charts: %d labels for %d buckets", len(labels), len(buckets))
	}
	if len(buckets) == 0 {
		return nil, fmt.Errorf("charts: empty histogram")
	}

	max := 0
	bars := make([]chart.Value, len(buckets))
	for i, count := range buckets {
		bars[i] = chart.Value{Label: labels[i], Value: float64(count)}
		if count > max {
			max = count
		}
	}
	if max == 0 {
		max = 1 // keep the Y range finite for an all-zero histogram
	}

	graph := chart.BarChart{
		Title:      title,
		Width:      width,
		Height:     512,
		BarWidth:   width / (len(buckets) * 2),
		BarSpacing: width / (len(buckets) * 4),
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 10, Right: 10}},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: float64(max)},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("charts: render: %w", err)
	}
	return buf.Bytes(), nil
}
