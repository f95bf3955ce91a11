// Package analytics provides page-view capture and the stats aggregation
// behind the reporting dashboard.
package analytics

import "time"

// DefaultPeriod is used when the caller omits or mistypes the period token.
const DefaultPeriod = "7d"

// isoLayout matches JavaScript's Date.toISOString output.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// periodDays maps the accepted period tokens to their window length.
var periodDays = map[string]int{
	"7d":  7,
	"30d": 30,
	"90d": 90,
	"1y":  365,
}

// Window is the inclusive [Start, End] range of one stats request.
type Window struct {
	Period string
	Start  time.Time
	End    time.Time
}

// ResolvePeriod turns a period token into a window ending at now.
// Unknown tokens fall back to DefaultPeriod without error.
func ResolvePeriod(token string, now time.Time) Window {
	days, ok := periodDays[token]
	if !ok {
		token = DefaultPeriod
		days = periodDays[DefaultPeriod]
	}

	end := now.UTC()
	return Window{
		Period: token,
		Start:  end.Add(-time.Duration(days) * 24 * time.Hour),
		End:    end,
	}
}

// Days returns the nominal length of the window in days.
func (w Window) Days() int {
	return periodDays[w.Period]
}

// StartISO formats Start the way the dashboard expects.
func (w Window) StartISO() string {
	return w.Start.UTC().Format(isoLayout)
}

// EndISO formats End the way the dashboard expects.
func (w Window) EndISO() string {
	return w.End.UTC().Format(isoLayout)
}
