package compressor

import (
	"math"
	"testing"
)

func TestCheckEligibility(t *testing.T) {
	tests := []struct {
		name      string
		size      int64
		threshold int64
		wantSkip  bool
		wantHuman string
	}{
		{"half megabyte under one", 512 * 1024, 1 << 20, true, "512.0KB"},
		{"exactly threshold", 1 << 20, 1 << 20, false, "1.00MB"},
		{"above threshold", 2500000, 1 << 20, false, "2.38MB"},
		{"zero threshold", 10, 0, false, "0.0KB"},
		{"empty file", 0, 1, true, "0.0KB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			skip, human := CheckEligibility(tt.size, tt.threshold)
			if skip != tt.wantSkip {
				t.Errorf("skip = %v, want %v", skip, tt.wantSkip)
			}
			if human != tt.wantHuman {
				t.Errorf("human = %q, want %q", human, tt.wantHuman)
			}
		})
	}
}

func TestCheckEligibilityIsStable(t *testing.T) {
	for _, size := range []int64{0, 1023, 1 << 20, 5 << 20} {
		first, _ := CheckEligibility(size, 1<<20)
		second, _ := CheckEligibility(size, 1<<20)
		if first != second {
			t.Errorf("size %d: decisions differ across calls", size)
		}
	}
}

func TestReductionPercent(t *testing.T) {
	tests := []struct {
		orig, comp int64
		want       float64
	}{
		{2048000, 1024000, 50.0},
		{1000, 1000, 0},
		{1000, 1250, -25.0},
		{0, 10, 0},
		{4, 1, 75.0},
	}
	for _, tt := range tests {
		got := ReductionPercent(tt.orig, tt.comp)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ReductionPercent(%d, %d) = %f, want %f", tt.orig, tt.comp, got, tt.want)
		}
	}
}
