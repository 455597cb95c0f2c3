// Package overlap measures how strongly neighboring peak candidates
// intersect and provides the escalating resolver family that separates
// them: weighted EM separation (FBF), sharpen-and-wavelet pre-conditioning,
// joint asymmetric-tail fitting (EMG NLLS), and the composed
// extreme-overlap pipeline.
package overlap

import (
	"sort"

	"github.com/cwbudde/algo-peaks/curve"
)

// PairDegree returns the overlap degree of two peaks:
// max(0, combinedWidth - centerDistance) / combinedWidth, where
// combinedWidth is the sum of both FWHMs. 0 means fully separated,
// values near 1 mean almost coincident.
func PairDegree(a, b *curve.Peak) float64 {
	combined := a.FWHM + b.FWHM
	if combined <= 0 {
		return 0
	}

	dist := a.Center - b.Center
	if dist < 0 {
		dist = -dist
	}

	d := (combined - dist) / combined
	if d < 0 {
		return 0
	}

	return d
}

// Degree returns the mean pairwise overlap degree over all peak pairs.
// Fewer than two peaks yield 0.
func Degree(peaks []*curve.Peak) float64 {
	n := len(peaks)
	if n < 2 {
		return 0
	}

	sum := 0.0
	pairs := 0

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sum += PairDegree(peaks[i], peaks[j])
			pairs++
		}
	}

	return sum / float64(pairs)
}

// groupDegree is the pairwise degree at which two peaks join the same
// overlap group. It equals the default moderate-overlap threshold, so any
// pair the resolver would refine also lands in a shared group.
const groupDegree = 0.2

// overlapping reports whether two peaks belong to the same overlap group.
func overlapping(a, b *curve.Peak) bool {
	return PairDegree(a, b) >= groupDegree
}

// Groups partitions peaks into connected overlap groups: two peaks share a
// group when a chain of pairwise-overlapping peaks links them. Each group
// is sorted by center; groups are ordered by their leftmost center.
func Groups(peaks []*curve.Peak) [][]*curve.Peak {
	n := len(peaks)
	if n == 0 {
		return nil
	}

	sorted := make([]*curve.Peak, n)
	copy(sorted, peaks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Center < sorted[j].Center })

	var groups [][]*curve.Peak

	cur := []*curve.Peak{sorted[0]}

	for i := 1; i < n; i++ {
		if anyOverlap(cur, sorted[i]) {
			cur = append(cur, sorted[i])
			continue
		}

		groups = append(groups, cur)
		cur = []*curve.Peak{sorted[i]}
	}

	return append(groups, cur)
}

// anyOverlap reports whether p overlaps any member of the group. A wide
// early peak can link past a narrow neighbor, so the whole group is
// checked, not just the latest member.
func anyOverlap(group []*curve.Peak, p *curve.Peak) bool {
	for _, g := range group {
		if overlapping(g, p) {
			return true
		}
	}

	return false
}
