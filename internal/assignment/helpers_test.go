package assignment_test

import (
	"math"

	"github.com/google/go-cmp/cmp"
)

func cmpFloat() cmp.Option {
	return cmp.Comparer(func(a, b float64) bool { return math.Abs(a-b) < 1e-9 })
}
