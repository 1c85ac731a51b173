package pipeline

import (
	"errors"
	"testing"
)

func validConfig() EncoderConfig {
	return EncoderConfig{
		Dimensions: Dimensions{Width: 1920, Height: 1080},
		FPS:        60,
		Quality:    QualityHigh,
		Async:      true,
	}
}

func TestEncoderConfigValidateAccepts(t *testing.T) {
	if err := validConfig().validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEncoderConfigRejectsSyncMode(t *testing.T) {
	cfg := validConfig()
	cfg.Async = false
	if err := cfg.validate(); !errors.Is(err, ErrConfigRejected) {
		t.Fatalf("got %v, want ErrConfigRejected", err)
	}
}

func TestEncoderConfigRejectsBadFPS(t *testing.T) {
	cfg := validConfig()
	cfg.FPS = 50
	if err := cfg.validate(); !errors.Is(err, ErrConfigRejected) {
		t.Fatalf("got %v, want ErrConfigRejected", err)
	}
}

func TestEncoderConfigRejectsOddDimensions(t *testing.T) {
	cfg := validConfig()
	cfg.Dimensions.Width = 1921
	if err := cfg.validate(); !errors.Is(err, ErrInvalidDimensions) {
		t.Fatalf("got %v, want ErrInvalidDimensions", err)
	}
}

func TestEncoderConfigRejectsNonPositiveDimensions(t *testing.T) {
	cfg := validConfig()
	cfg.Dimensions.Height = 0
	if err := cfg.validate(); !errors.Is(err, ErrConfigRejected) {
		t.Fatalf("got %v, want ErrConfigRejected", err)
	}
}

func TestGOPSizeAndForceIDRInterval(t *testing.T) {
	cfg := validConfig()
	if cfg.GOPSize() != 120 {
		t.Fatalf("GOPSize = %d, want 120", cfg.GOPSize())
	}
	if cfg.ForceIDRInterval() != cfg.GOPSize() {
		t.Fatal("ForceIDRInterval should equal GOPSize")
	}
}

func TestQualityPresetQP(t *testing.T) {
	cases := []struct {
		q           QualityPreset
		inter, intra int
	}{
		{QualityLow, 28, 24},
		{QualityMedium, 24, 20},
		{QualityHigh, 20, 16},
		{QualityLossless, 16, 12},
	}
	for _, c := range cases {
		inter, intra := c.q.QP()
		if inter != c.inter || intra != c.intra {
			t.Errorf("%s.QP() = (%d,%d), want (%d,%d)", c.q, inter, intra, c.inter, c.intra)
		}
	}
}
