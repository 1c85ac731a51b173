package pipeline

import "fmt"

// allowedFPS enumerates the frame rates the timestamp and GOP math are
// specified against.
var allowedFPS = map[int]bool{24: true, 30: true, 60: true, 120: true, 240: true}

// PoolSize is the fixed number of NV12 surfaces held by the shared
// surface pool (N in spec terms).
const PoolSize = 8

// EncoderConfig is the fixed-shape configuration accepted by NewSession.
// Unlike a general-purpose encoder wrapper, almost everything about the
// HEVC encode (preset, tuning, GOP structure, B-frames, CQP rate
// control) is fixed; only dimensions, frame rate, and quality preset are
// caller-supplied.
type EncoderConfig struct {
	Dimensions Dimensions
	FPS        int
	Quality    QualityPreset

	// Async must be true. Synchronous-mode sessions are rejected at
	// NewSession (see Open Question 1 in DESIGN.md/SPEC_FULL.md).
	Async bool
}

// DefaultEncoderConfig returns a config with Async set and Quality set to
// QualityMedium; callers must still set Dimensions and FPS.
func DefaultEncoderConfig() EncoderConfig {
	return EncoderConfig{Quality: QualityMedium, Async: true}
}

// GOPSize returns the fixed GOP length: fps * 2.
func (c EncoderConfig) GOPSize() int {
	return c.FPS * 2
}

// ForceIDRInterval returns the frame count between forced keyframes,
// identical to GOPSize.
func (c EncoderConfig) ForceIDRInterval() int {
	return c.GOPSize()
}

func (c EncoderConfig) validate() error {
	if !c.Async {
		return fmt.Errorf("%w: synchronous mode is not supported", ErrConfigRejected)
	}
	if !allowedFPS[c.FPS] {
		return fmt.Errorf("%w: fps %d not in {24,30,60,120,240}", ErrConfigRejected, c.FPS)
	}
	if !c.Quality.valid() {
		return fmt.Errorf("%w: invalid quality preset %d", ErrConfigRejected, int(c.Quality))
	}
	if c.Dimensions.Width <= 0 || c.Dimensions.Height <= 0 {
		return fmt.Errorf("%w: dimensions must be positive", ErrConfigRejected)
	}
	if !c.Dimensions.Even() {
		return ErrInvalidDimensions
	}
	return nil
}
