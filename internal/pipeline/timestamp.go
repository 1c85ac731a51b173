package pipeline

import "fmt"

// ticksPerSecond is the 100ns tick rate used throughout (matches
// Media Foundation / DirectShow timestamp conventions the teacher's own
// mft_windows.go sample timing is built on).
const ticksPerSecond int64 = 10_000_000

// CalculateTimestamp computes the 100ns presentation timestamp for frame
// index n at the given frame rate: round(n * 10_000_000 / fps).
// fps must be one of {24, 30, 60, 120, 240}; n may range up to 2^31
// without overflowing the int64 intermediate product.
func CalculateTimestamp(n int64, fps int) (int64, error) {
	if !allowedFPS[fps] {
		return 0, fmt.Errorf("pipeline: fps %d not in {24,30,60,120,240}", fps)
	}
	if n < 0 {
		return 0, fmt.Errorf("pipeline: negative frame index %d", n)
	}
	num := n * ticksPerSecond
	f := int64(fps)
	return (num + f/2) / f, nil
}
