package match

// DefaultSimilarityThreshold gates description-update proposals: an
// existing description is only challenged when the new text scores below
// this, or when the existing text is empty.
const DefaultSimilarityThreshold = 85.0

// Similarity is normalized Levenshtein similarity scaled to 0..100:
// (maxLen - editDistance) / maxLen * 100, computed over runes.
func Similarity(a, b string) float64 {
	ar := []rune(a)
	br := []rune(b)
	if len(ar) == 0 && len(br) == 0 {
		return 100
	}
	maxLen := len(ar)
	if len(br) > maxLen {
		maxLen = len(br)
	}

	d := make([][]int, len(ar)+1)
	for i := range d {
		d[i] = make([]int, len(br)+1)
	}
	for i := 0; i <= len(ar); i++ {
		d[i][0] = i
	}
	for j := 0; j <= len(br); j++ {
		d[0][j] = j
	}
	for i := 1; i <= len(ar); i++ {
		for j := 1; j <= len(br); j++ {
			cost := 0
			if ar[i-1] != br[j-1] {
				cost = 1
			}
			del := d[i-1][j] + 1
			ins := d[i][j-1] + 1
			sub := d[i-1][j-1] + cost
			d[i][j] = minInt(del, minInt(ins, sub))
		}
	}

	dist := d[len(ar)][len(br)]
	return float64(maxLen-dist) / float64(maxLen) * 100
}

// NeedsDescriptionUpdate reports whether a newly extracted description
// should be proposed over the existing one.
func NeedsDescriptionUpdate(existing, proposed string, threshold float64) bool {
	if proposed == "" {
		return false
	}
	if existing == "" {
		return true
	}
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return Similarity(existing, proposed) < threshold
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
