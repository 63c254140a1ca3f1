package solver

// Generate enumerates every k-sized assignment from pool into arena-backed slices.
// With ordered set it yields all k-permutations, otherwise all k-combinations. Both are produced
// in lexicographic order of pool indices. The arena must already be initialised with room for
// AssignmentCount(len(pool), k, ordered) * k ids.
func Generate(arena *Arena, pool []ItemID, k int, ordered bool) ([][]ItemID, error) {
	n := len(pool)
	count, err := AssignmentCount(n, k, ordered)
	if err != nil {
		return nil, err
	}
	out := make([][]ItemID, 0, count)

	idx := make([]int, k)
	emit := func() error {
		s, err := arena.Alloc(k)
		if err != nil {
			return err
		}
		for i, pi := range idx {
			s[i] = pool[pi]
		}
		out = append(out, s)
		return nil
	}

	if ordered {
		used := make([]bool, n)
		var rec func(depth int) error
		rec = func(depth int) error {
			if depth == k {
				return emit()
			}
			for pi := 0; pi < n; pi++ {
				if used[pi] {
					continue
				}
				used[pi] = true
				idx[depth] = pi
				if err := rec(depth + 1); err != nil {
					return err
				}
				used[pi] = false
			}
			return nil
		}
		if err := rec(0); err != nil {
			return nil, err
		}
		return out, nil
	}

	// combinations: idx is strictly increasing; advance the rightmost index that can move
	for i := range idx {
		idx[i] = i
	}
	for {
		if err := emit(); err != nil {
			return nil, err
		}
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return out, nil
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
