package submission

import (
	"math"
	"time"

	"github.com/dustin/go-humanize"
)

var byteUnits = []string{"B", "KB", "MB", "GB"}

// FormatBytes renders n in binary multiples: whole bytes, then one decimal
// place for KB and above ("1 KB", "1.5 KB"). Zero and negative counts render
// as "0 B".
func FormatBytes(n int64) string {
	return formatBytes(float64(n))
}

func formatBytes(n float64) string {
	if math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 {
		return "0 B"
	}
	unit := 0
	for n >= 1024 && unit < len(byteUnits)-1 {
		n /= 1024
		unit++
	}
	if unit == 0 {
		return humanize.Ftoa(math.Round(n)) + " " + byteUnits[unit]
	}
	return humanize.Ftoa(math.Round(n*10)/10) + " " + byteUnits[unit]
}

// TimeLayout is hour:minute:second on a 12-hour clock.
const TimeLayout = "3:04:05 PM"

// FormatTime renders the capture time of a history entry.
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}
