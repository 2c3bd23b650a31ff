package dataset

import (
	"sort"
	"strconv"
	"strings"
)

// CompareLabels orders variant or unit labels numerically when both parse as
// numbers, lexically otherwise.
func CompareLabels(a, b string) int {
	fa, errA := strconv.ParseFloat(strings.TrimSpace(a), 64)
	fb, errB := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
	}
	return strings.Compare(a, b)
}

// SortLabels sorts in place using CompareLabels.
func SortLabels(labels []string) {
	sort.SliceStable(labels, func(i, j int) bool {
		return CompareLabels(labels[i], labels[j]) < 0
	})
}
