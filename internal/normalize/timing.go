package normalize

import (
	"fmt"
	"math"

	"github.com/cognobserve/labeling/internal/model"
)

// millisCeiling is the largest value read as milliseconds (roughly the year
// 5138). Anything above it is a nanosecond timestamp.
const millisCeiling = 1e14

// ToMillis converts a source timestamp to epoch milliseconds. The second result
// is false for missing or malformed values.
func ToMillis(ts model.Timestamp) (float64, bool) {
	if !ts.Valid() {
		return 0, false
	}
	v := float64(ts)
	if v > millisCeiling {
		v /= 1e6
	}
	return v, true
}

// SpanDurationMillis returns end minus start in milliseconds, or NaN when
// either side is unusable.
func SpanDurationMillis(span model.Span) float64 {
	start, ok := ToMillis(span.StartTime)
	if !ok {
		return math.NaN()
	}
	end, ok := ToMillis(span.EndTime)
	if !ok {
		return math.NaN()
	}
	return end - start
}

// FormatDuration renders whole milliseconds below one second and seconds with
// two decimals above. NaN, infinite and negative durations render as "0ms".
func FormatDuration(ms float64) string {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || ms < 0 {
		return "0ms"
	}
	if ms < 1000 {
		return fmt.Sprintf("%dms", int64(math.Floor(ms)))
	}
	return fmt.Sprintf("%.2fs", ms/1000)
}
