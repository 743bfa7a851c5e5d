package monitor

import (
	"fmt"
	"strings"
)

// FormatPercent formats a percentage in [0, 100] as "X.X%".
func FormatPercent(pct float64) string {
	return fmt.Sprintf("%.1f%%", pct)
}

// FormatConfidence formats a confidence score in [0, 1] as "0.00".
func FormatConfidence(score float64) string {
	return fmt.Sprintf("%.2f", score)
}

// FormatCount pluralizes noun for n.
func FormatCount(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// FormatList joins items with ", " and truncates after limit entries.
func FormatList(items []string, limit int) string {
	if len(items) == 0 {
		return "none"
	}
	if limit <= 0 || len(items) <= limit {
		return strings.Join(items, ", ")
	}
	return fmt.Sprintf("%s (+%d more)", strings.Join(items[:limit], ", "), len(items)-limit)
}

// Ratio returns part/total clamped to [0, 1].
func Ratio(part, total int) float64 {
	if total <= 0 || part <= 0 {
		return 0
	}
	if part >= total {
		return 1
	}
	return float64(part) / float64(total)
}
