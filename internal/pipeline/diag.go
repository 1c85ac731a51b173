package pipeline

import (
	"log/slog"
	"sync/atomic"
)

// diagRateLimit is how many occurrences elapse between log lines for a
// repeating diagnostic condition (timeouts, dropped frames), matching
// the teacher's dxgi_capture_windows.go diagLogInterval convention.
const diagRateLimit = 100

// diagCounter tracks a repeating condition and logs at most once every
// diagRateLimit occurrences, always logging the first.
type diagCounter struct {
	count atomic.Uint64
}

// hit records one occurrence and reports whether this occurrence should
// be logged.
func (d *diagCounter) hit() (n uint64, shouldLog bool) {
	n = d.count.Add(1)
	return n, n == 1 || n%diagRateLimit == 0
}

// log records an occurrence and logs it through logger if rate-limiting
// allows, annotating the record with the total occurrence count.
func (d *diagCounter) log(logger *slog.Logger, msg string, args ...any) {
	n, should := d.hit()
	if !should {
		return
	}
	full := append([]any{"count", n}, args...)
	logger.Warn(msg, full...)
}
