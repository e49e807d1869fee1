package compressor

import "fmt"

const (
	kib = 1024
	mib = 1024 * 1024
)

// CheckEligibility decides whether a file of size bytes is worth compressing
// under threshold. It also returns the size formatted for reports.
func CheckEligibility(size, threshold int64) (skip bool, human string) {
	return size < threshold, HumanSize(size)
}

// HumanSize renders sizes of at least one MiB as "2.38MB" and smaller ones as
// "512.0KB".
func HumanSize(size int64) string {
	if size >= mib {
		return fmt.Sprintf("%.2fMB", float64(size)/mib)
	}
	return fmt.Sprintf("%.1fKB", float64(size)/kib)
}

// ReductionPercent is (original-compressed)/original*100. It is negative when
// the output grew and zero for an empty original.
func ReductionPercent(original, compressed int64) float64 {
	if original <= 0 {
		return 0
	}
	return float64(original-compressed) * 100 / float64(original)
}
