package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/combin"
)

// maxCountLog is the natural log of the largest count we let combin compute exactly. It stays
// well clear of MaxInt64 so the multiplications inside combin cannot wrap.
var maxCountLog = math.Log(float64(math.MaxInt64)) - 2

func checkCountArgs(n, k int) error {
	if n < 0 || k < 0 {
		return fmt.Errorf("%w: n=%d k=%d", ErrInvalidLayout, n, k)
	}
	if k > n {
		return fmt.Errorf("%w: %d items for %d slots", ErrPoolTooSmall, n, k)
	}
	return nil
}

// PermutationCount returns n!/(n-k)!, the number of ordered k-assignments from n items.
func PermutationCount(n, k int) (int, error) {
	if err := checkCountArgs(n, k); err != nil {
		return 0, err
	}
	lg, _ := math.Lgamma(float64(k + 1))
	if combin.LogGeneralizedBinomial(float64(n), float64(k))+lg > maxCountLog {
		return 0, fmt.Errorf("%w: P(%d,%d)", ErrCountOverflow, n, k)
	}
	return combin.NumPermutations(n, k), nil
}

// CombinationCount returns n!/(k!(n-k)!), the number of unordered k-assignments from n items.
func CombinationCount(n, k int) (int, error) {
	if err := checkCountArgs(n, k); err != nil {
		return 0, err
	}
	if combin.LogGeneralizedBinomial(float64(n), float64(k)) > maxCountLog {
		return 0, fmt.Errorf("%w: C(%d,%d)", ErrCountOverflow, n, k)
	}
	return combin.Binomial(n, k), nil
}

// AssignmentCount dispatches on ordered.
func AssignmentCount(n, k int, ordered bool) (int, error) {
	if ordered {
		return PermutationCount(n, k)
	}
	return CombinationCount(n, k)
}

// arenaEntries is count*k with an overflow check.
func arenaEntries(count, k int) (int, error) {
	if k == 0 {
		return 0, nil
	}
	if count > math.MaxInt/k {
		return 0, fmt.Errorf("%w: %d assignments of %d slots", ErrCountOverflow, count, k)
	}
	return count * k, nil
}
