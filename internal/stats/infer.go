package stats

import (
	"math"
	"regexp"
	"strings"
	"time"
)

// Type is the inferred kind of a column.
type Type string

const (
	Numeric Type = "numeric"
	Boolean Type = "boolean"
	Date    Type = "date"
	Text    Type = "text"
)

// majority is the share of present values a kind needs to win the vote.
const majority = 0.8

var datePrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

var booleanWords = map[string]struct{}{
	"true": {}, "false": {}, "1": {}, "0": {}, "yes": {}, "no": {},
}

// InferType classifies a column by majority vote over its present values.
// Each value counts toward the first kind it matches: numeric, then boolean,
// then date. Columns with no present values are text.
func InferType(values []any) Type {
	var total, numeric, boolean, date int
	for _, v := range values {
		if IsMissing(v) {
			continue
		}
		total++
		switch {
		case isFiniteNumber(v):
			numeric++
		case isBooleanWord(v):
			boolean++
		case isDate(v):
			date++
		}
	}
	if total == 0 {
		return Text
	}
	need := majority * float64(total)
	switch {
	case float64(numeric) >= need:
		return Numeric
	case float64(boolean) >= need:
		return Boolean
	case float64(date) >= need:
		return Date
	}
	return Text
}

func isFiniteNumber(v any) bool {
	f, ok := ToNumber(v)
	return ok && !math.IsInf(f, 0)
}

func isBooleanWord(v any) bool {
	_, ok := booleanWords[strings.ToLower(FormatRaw(v))]
	return ok
}

func isDate(v any) bool {
	s, ok := v.(string)
	if !ok {
		if t, ok := v.(time.Time); ok {
			return !t.IsZero()
		}
		return false
	}
	s = strings.TrimSpace(s)
	if !datePrefix.MatchString(s) {
		return false
	}
	_, err := time.Parse("2006-01-02", s[:10])
	return err == nil
}
