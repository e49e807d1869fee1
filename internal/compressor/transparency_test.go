package compressor

import (
	"testing"
)

func TestSampleStrideHonorsCap(t *testing.T) {
	const sampleCap = 10000
	for _, total := range []int{0, 1, 9999, 10000, 10001, 19999, 250000, 3000 * 2000, 7919 * 6007} {
		stride := SampleStride(total, sampleCap)
		if stride < 1 {
			t.Fatalf("total %d: stride %d < 1", total, stride)
		}
		visited := (total + stride - 1) / stride
		if visited > sampleCap {
			t.Errorf("total %d: stride %d visits %d > %d", total, stride, visited, sampleCap)
		}
	}
}

func TestSampleStrideExactMultiples(t *testing.T) {
	if got := SampleStride(500*500, 10000); got != 25 {
		t.Errorf("stride = %d, want 25", got)
	}
	if got := SampleStride(100, 10000); got != 1 {
		t.Errorf("stride = %d, want 1", got)
	}
	if got := SampleStride(100, 0); got != 1 {
		t.Errorf("zero cap stride = %d, want 1", got)
	}
}

func TestEstimateTransparencyRatio(t *testing.T) {
	tests := []struct {
		name  string
		alpha []uint8
		want  float64
	}{
		{"empty", nil, 0},
		{"all opaque", []uint8{255, 255, 255, 255}, 0},
		{"all transparent", []uint8{0, 0}, 1},
		{"one of four", []uint8{255, 254, 255, 255}, 0.25},
		{"one in twenty", append(make([]uint8, 1), repeat(255, 19)...), 0.05},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateTransparencyRatio(tt.alpha)
			if got != tt.want {
				t.Errorf("ratio = %f, want %f", got, tt.want)
			}
			if got < 0 || got > 1 {
				t.Errorf("ratio %f out of [0,1]", got)
			}
		})
	}
}

func repeat(v uint8, n int) []uint8 {
	out := make([]uint8, n)
	for i := range out {
		out[i] = v
	}
	return out
}
