package truncate

import (
	"strings"
	"unicode"
)

// truncateEnd keeps the longest prefix that fits, then backs up to the
// nearest boundary inside the window.
func (t *Truncator) truncateEnd(text string, maxTokens int) string {
	targetTokens := maxTokens - t.counter.Count(t.suffix)
	if targetTokens <= 0 {
		return t.suffix
	}

	runes := []rune(text)
	keep := t.prefixFits(runes, targetTokens)
	if keep == 0 {
		return t.suffix
	}

	keep = snapBack(runes, keep, int(float64(keep)*t.window))
	return strings.TrimRightFunc(string(runes[:keep]), unicode.IsSpace) + t.suffix
}

// truncateMiddle removes content from the middle, keeping start and end.
func (t *Truncator) truncateMiddle(text string, maxTokens int) string {
	targetTokens := maxTokens - t.counter.Count(t.suffix)
	if targetTokens <= 0 {
		return t.suffix
	}

	runes := []rune(text)
	half := targetTokens / 2
	head := t.prefixFits(runes, half)
	tail := t.suffixFits(runes, targetTokens-half)
	if tail < head {
		tail = head
	}

	var sb strings.Builder
	sb.WriteString(string(runes[:head]))
	sb.WriteString(t.suffix)
	sb.WriteString(string(runes[tail:]))
	return sb.String()
}

// truncateStart keeps the longest suffix that fits.
func (t *Truncator) truncateStart(text string, maxTokens int) string {
	targetTokens := maxTokens - t.counter.Count(t.suffix)
	if targetTokens <= 0 {
		return t.suffix
	}

	runes := []rune(text)
	start := t.suffixFits(runes, targetTokens)
	if start >= len(runes) {
		return t.suffix
	}
	return t.suffix + string(runes[start:])
}

// prefixFits returns the largest n such that runes[:n] fits in maxTokens.
func (t *Truncator) prefixFits(runes []rune, maxTokens int) int {
	low, high := 0, len(runes)
	for low < high {
		mid := (low + high + 1) / 2
		if t.counter.FitsInLimit(string(runes[:mid]), maxTokens) {
			low = mid
		} else {
			high = mid - 1
		}
	}
	return low
}

// suffixFits returns the smallest i such that runes[i:] fits in maxTokens.
func (t *Truncator) suffixFits(runes []rune, maxTokens int) int {
	low, high := 0, len(runes)
	for low < high {
		mid := (low + high) / 2
		if t.counter.FitsInLimit(string(runes[mid:]), maxTokens) {
			high = mid
		} else {
			low = mid + 1
		}
	}
	return low
}

// snapBack moves end back to the best boundary no more than window runes
// earlier: a blank line, then a sentence end, then whitespace.
// Returns end unchanged when none is found.
func snapBack(runes []rune, end, window int) int {
	if window <= 0 || end >= len(runes) {
		return end
	}
	floor := max(end-window, 1)

	for i := end; i > floor; i-- {
		if runes[i-1] == '\n' && i >= 2 && runes[i-2] == '\n' {
			return i
		}
	}
	for i := end; i > floor; i-- {
		switch runes[i-1] {
		case '.', '!', '?':
			if unicode.IsSpace(runes[i]) {
				return i
			}
		}
	}
	for i := end; i > floor; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return end
}
