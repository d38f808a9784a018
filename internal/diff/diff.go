// Package diff counts line additions and deletions between two versions of a
// document using Myers' shortest-edit-script search.
package diff

import "strings"

// Lines splits text into lines with their terminators removed. A trailing
// newline does not produce an empty final line, and a "\r\n" terminator is
// stripped completely. Empty text has no lines.
func Lines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// Count returns the number of deleted and added lines in a minimal edit script
// turning old into new.
func Count(old, new []string) (deletions, additions int) {
	deletions, additions, _ = search(old, new, len(old)+len(new))
	return deletions, additions
}

// CountBounded is Count with an upper bound on the edit distance that is
// searched. When old and new differ by more than limit edits the documents are
// treated as a whole-file replacement and (len(old), len(new)) is returned.
// A negative limit means no bound.
func CountBounded(old, new []string, limit int) (deletions, additions int) {
	if limit < 0 || limit > len(old)+len(new) {
		limit = len(old) + len(new)
	}
	deletions, additions, ok := search(old, new, limit)
	if !ok {
		return len(old), len(new)
	}
	return deletions, additions
}

// CountPercent bounds the search to pct percent of the combined line count.
// Values outside 1..99 leave the search unbounded.
func CountPercent(old, new []string, pct int) (deletions, additions int) {
	if pct <= 0 || pct >= 100 {
		return Count(old, new)
	}
	limit := ((len(old)+len(new))*pct + 99) / 100
	return CountBounded(old, new, limit)
}

// Strings counts edits between two texts split with Lines.
func Strings(old, new string) (deletions, additions int) {
	return Count(Lines(old), Lines(new))
}

// search trims the common prefix and suffix, which every minimal script keeps,
// then runs the forward pass for d = 0..limit. Before each round it records
// the furthest-reaching x of diagonals -d..d, and walks that trace back to
// classify every non-diagonal step. ok is false when the end point is not
// reached within limit edits.
func search(old, new []string, limit int) (deletions, additions int, ok bool) {
	for len(old) > 0 && len(new) > 0 && old[0] == new[0] {
		old, new = old[1:], new[1:]
	}
	for len(old) > 0 && len(new) > 0 && old[len(old)-1] == new[len(new)-1] {
		old, new = old[:len(old)-1], new[:len(new)-1]
	}
	n, m := len(old), len(new)
	if n == 0 || m == 0 {
		return n, m, n+m <= limit
	}
	max := n + m

	// v[k+offset] is the furthest x reached on diagonal k.
	offset := max + 1
	v := make([]int, 2*max+3)
	for i := range v {
		v[i] = -1
	}
	v[offset+1] = 0

	// trace[d][k+d] is v[k] as it stood before round d.
	var trace [][]int
	final := -1

forward:
	for d := 0; d <= limit; d++ {
		row := make([]int, 2*d+1)
		copy(row, v[offset-d:offset+d+1])
		trace = append(trace, row)

		for k := -d; k <= d; k += 2 {
			var x int
			if down(v, offset, k, d) {
				x = v[offset+k+1]
			} else {
				x = v[offset+k-1] + 1
			}
			y := x - k
			for x < n && y < m && old[x] == new[y] {
				x++
				y++
			}
			v[offset+k] = x
			if x >= n && y >= m {
				final = d
				break forward
			}
		}
	}
	if final < 0 {
		return 0, 0, false
	}

	k := n - m
	for d := final; d >= 1; d-- {
		if down(trace[d], d, k, d) {
			k++
			additions++
		} else {
			k--
			deletions++
		}
	}
	return deletions, additions, true
}

// down reports whether diagonal k at round d is entered by a vertical
// (insertion) move from diagonal k+1. Ties go to the insertion branch.
func down(v []int, offset, k, d int) bool {
	return k == -d || (k != d && v[offset+k-1] < v[offset+k+1])
}
