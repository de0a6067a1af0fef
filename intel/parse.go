package intel

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var numberPattern = regexp.MustCompile(`-?\d+(\.\d+)?`)

// ParseScore extracts the first number from a model response and
// clamps it to [0, 10].
func ParseScore(text string) (float64, error) {
	match := numberPattern.FindString(text)
	if match == "" {
		return 0, fmt.Errorf("no score found in response %q", strings.TrimSpace(text))
	}
	score, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("parse score %q: %w", match, err)
	}
	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	return score, nil
}

// ParseCategories splits a comma- or newline-separated label list,
// trimming list markers and empty entries.
func ParseCategories(text string) []string {
	split := func(r rune) bool { return r == ',' || r == '\n' }

	var categories []string
	for _, raw := range strings.FieldsFunc(text, split) {
		label := strings.TrimSpace(raw)
		label = strings.TrimLeft(label, "-*• ")
		label = strings.Trim(label, `"`)
		if label == "" {
			continue
		}
		categories = append(categories, label)
	}
	return categories
}
