// Package vote implements C12: majority-vote aggregation of repeated agent
// runs over the same question, breaking ties by first appearance in the
// input order (spec.md §4.11).
package vote

// Majority returns the most frequent label in labels, breaking ties by
// whichever tied label appeared first. Returns "" if labels is empty.
func Majority(labels []string) string {
	if len(labels) == 0 {
		return ""
	}
	counts := make(map[string]int, len(labels))
	firstSeen := make(map[string]int, len(labels))
	for i, l := range labels {
		counts[l]++
		if _, ok := firstSeen[l]; !ok {
			firstSeen[l] = i
		}
	}
	best := labels[0]
	bestCount := 0
	bestFirst := len(labels)
	for label, count := range counts {
		first := firstSeen[label]
		if count > bestCount || (count == bestCount && first < bestFirst) {
			best = label
			bestCount = count
			bestFirst = first
		}
	}
	return best
}
