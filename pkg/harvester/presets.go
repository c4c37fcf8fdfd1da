package harvester

import "time"

// Preset maps a named time range to a harvest cutoff and a scroll budget.
// The budgets grow with the range: older posts sit further down the feed.
type Preset struct {
	Label      string
	CutoffAge  time.Duration // 0 means unbounded (harvest everything)
	MaxScrolls int
}

const day = 24 * time.Hour

var presets = map[string]Preset{
	"today":   {Label: "today", CutoffAge: 1 * day, MaxScrolls: 25},
	"3-day":   {Label: "3-day", CutoffAge: 3 * day, MaxScrolls: 40},
	"1-week":  {Label: "1-week", CutoffAge: 7 * day, MaxScrolls: 60},
	"1-month": {Label: "1-month", CutoffAge: 30 * day, MaxScrolls: 150},
	"1-year":  {Label: "1-year", CutoffAge: 365 * day, MaxScrolls: 1000},
	"all":     {Label: "all", CutoffAge: 0, MaxScrolls: 3000},
}

// ResolvePreset returns the preset for a time-range label. Unknown labels
// fall back to the 1-month preset, label included.
func ResolvePreset(label string) Preset {
	if p, ok := presets[label]; ok {
		return p
	}
	return presets["1-month"]
}

// CutoffTime returns the oldest post instant still in range, or the zero
// time when the preset is unbounded.
func (p Preset) CutoffTime(now time.Time) time.Time {
	if p.CutoffAge == 0 {
		return time.Time{}
	}
	return now.Add(-p.CutoffAge)
}
