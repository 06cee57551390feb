// Package label implements C11: extracting a normalized answer label from an
// LMM's free-text prediction, grounded exactly on
// original_source/eval/answer_extraction.py, including its PANDA
// (prostate-grading in SPEC_FULL.md's naming) JSON special-case and its
// no-fallback-on-invalid-grade rule.
package label

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// fold is a shared Unicode case folder used for the substring matching in
// extractFromOptions; cases.Fold handles non-ASCII case equivalence that
// strings.ToLower misses (e.g. Turkish dotless I, German eszett).
var fold = cases.Fold()

var (
	intRe    = regexp.MustCompile(`-?\d+`)
	letterRe = regexp.MustCompile(`(?i)\b([A-D])\b`)
)

const (
	letterOptionCount = 4
	isupGradeMin      = 0
	isupGradeMax      = 5
)

// Extracted is the result of label extraction: Label is the normalized
// answer string (empty if none could be determined), Raw is the original
// prediction text.
type Extracted struct {
	Label string
	Raw   string
}

// Extract dispatches to the prostate-grading special case when
// benchmarkName == "prostate-grading", otherwise extracts from options (when
// provided) or, failing that, the first integer in the prediction text.
func Extract(prediction, benchmarkName string, options []string) Extracted {
	if benchmarkName == "prostate-grading" {
		if lbl, ok := extractProstateGrade(prediction); ok {
			return Extracted{Label: lbl, Raw: prediction}
		}
		// A present-but-invalid isup_grade key suppresses fallback entirely,
		// matching original_source's "does not fall back" rule; absence of
		// the key at all falls through to generic extraction below.
		if hasISUPGradeKey(prediction) {
			return Extracted{Label: "", Raw: prediction}
		}
	}
	if len(options) > 0 {
		if lbl, ok := extractFromOptions(prediction, options); ok {
			return Extracted{Label: lbl, Raw: prediction}
		}
		return Extracted{Label: "", Raw: prediction}
	}
	if lbl, ok := extractInteger(prediction); ok {
		return Extracted{Label: lbl, Raw: prediction}
	}
	return Extracted{Label: "", Raw: prediction}
}

func extractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < 0 || end < start {
		return "", false
	}
	return s[start : end+1], true
}

// extractProstateGrade special-cases the isup_grade JSON field: null maps to
// grade 0, a missing key yields no result (caller decides fallback), and an
// out-of-range or non-numeric value yields no result without falling back.
func extractProstateGrade(prediction string) (string, bool) {
	obj, ok := extractJSONObject(prediction)
	if !ok {
		return "", false
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(obj), &payload); err != nil {
		return "", false
	}
	raw, present := payload["isup_grade"]
	if !present {
		return "", false
	}
	if raw == nil {
		return "0", true
	}
	var grade int
	switch v := raw.(type) {
	case float64:
		grade = int(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return "", false
		}
		grade = n
	default:
		return "", false
	}
	if grade < isupGradeMin || grade > isupGradeMax {
		return "", false
	}
	return strconv.Itoa(grade), true
}

func hasISUPGradeKey(prediction string) bool {
	obj, ok := extractJSONObject(prediction)
	if !ok {
		return false
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(obj), &payload); err != nil {
		return false
	}
	_, present := payload["isup_grade"]
	return present
}

// extractFromOptions tries, in order: a lettered choice (only when there are
// exactly letterOptionCount options), a bare 1..N integer index, then the
// longest-first case-insensitive substring match against the option texts.
// The returned label is always the option's 1-based index as a string, never
// its text, matching original_source/eval/answer_extraction.py's
// _extract_from_options.
func extractFromOptions(prediction string, options []string) (string, bool) {
	if len(options) == letterOptionCount {
		if m := letterRe.FindStringSubmatch(prediction); m != nil {
			idx := int(strings.ToUpper(m[1])[0] - 'A')
			if idx >= 0 && idx < len(options) {
				return strconv.Itoa(idx + 1), true
			}
		}
	}
	if m := intRe.FindString(prediction); m != "" {
		n, err := strconv.Atoi(m)
		if err == nil && n >= 1 && n <= len(options) {
			return strconv.Itoa(n), true
		}
	}
	type indexed struct {
		text string
		idx  int
	}
	ordered := make([]indexed, len(options))
	for i, opt := range options {
		ordered[i] = indexed{text: opt, idx: i}
	}
	// Longest-first so a short option that's a substring of a longer one
	// (e.g. "yes" inside "yes, definitely") never shadows the better match.
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			if len(ordered[j].text) > len(ordered[i].text) {
				ordered[i], ordered[j] = ordered[j], ordered[i]
			}
		}
	}
	foldedPred := fold.String(prediction)
	for _, opt := range ordered {
		if strings.Contains(foldedPred, fold.String(opt.text)) {
			return strconv.Itoa(opt.idx + 1), true
		}
	}
	return "", false
}

func extractInteger(prediction string) (string, bool) {
	m := intRe.FindString(prediction)
	if m == "" {
		return "", false
	}
	return m, true
}
