package academic

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/cems/core"
)

// Class ladder bounds
const (
	MinClassNumber = 1
	MaxClassNumber = 10
)

var (
	classNameRegex = regexp.MustCompile(`(?i)^\s*class\s*(\d+)\s*$`)
	sectionRegex   = regexp.MustCompile(`^[A-Z]$`)

	suggestMinRatio = .6
)

// ClassName returns the canonical name of class number n.
func ClassName(n int) string {
	return "Class " + strconv.Itoa(n)
}

// NormalizeClassName returns the canonical "Class N" form of raw and its number N.
// Matching ignores case and whitespace; N must be within the class ladder.
func NormalizeClassName(raw string) (string, int, error) {
	if m := classNameRegex.FindStringSubmatch(raw); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= MinClassNumber && n <= MaxClassNumber {
			return ClassName(n), n, nil
		}
	}

	msg := fmt.Sprintf("Class name must be one of %q to %q (got %q).",
		ClassName(MinClassNumber), ClassName(MaxClassNumber), core.CleanString(raw))
	if suggestion := suggestClassName(raw); suggestion != "" {
		msg += fmt.Sprintf(" Did you mean %q?", suggestion)
	}
	return "", 0, newError(ErrInvalidClassName, "name", msg)
}

// suggestClassName returns the allowed class name closest to raw, if close enough.
func suggestClassName(raw string) string {
	raw = core.CleanString(raw, true /* lower */)
	if raw == "" {
		return ""
	}

	var (
		best      string
		bestRatio float64
	)
	for n := MinClassNumber; n <= MaxClassNumber; n++ {
		name := ClassName(n)
		m := difflib.NewMatcher(strings.Split(raw, ""), strings.Split(strings.ToLower(name), ""))
		if ratio := m.Ratio(); ratio >= suggestMinRatio && ratio > bestRatio {
			best, bestRatio = name, ratio
		}
	}
	return best
}

// NormalizeSection upper-cases and trims raw. The empty section is valid (class without section),
// any other section must be a single letter A-Z.
func NormalizeSection(raw string) (string, error) {
	section := strings.ToUpper(strings.TrimSpace(raw))
	if section == "" || sectionRegex.MatchString(section) {
		return section, nil
	}
	return "", newError(ErrInvalidSection, "section",
		fmt.Sprintf("Section must be a single letter from A to Z (got %q).", section))
}

// SplitSections splits a comma separated list of sections. Blank entries are dropped.
// A list without sections yields the single empty section.
func SplitSections(raw string) []string {
	var sections []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			sections = append(sections, s)
		}
	}
	if len(sections) == 0 {
		return []string{""}
	}
	return sections
}

// NextClassName returns the successor of name on the class ladder.
// There is none for the last class or names that are not on the ladder.
func NextClassName(name string) (string, bool) {
	_, n, err := NormalizeClassName(name)
	if err != nil || n >= MaxClassNumber {
		return "", false
	}
	return ClassName(n + 1), true
}
