// Package actdata holds the value extraction rules shared by aggregation and
// post-processing of act line items.
package actdata

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	currencyWords = regexp.MustCompile(`(?i)(руб(лей|ля|ль)?|rub|usd|eur|р)\.?`)
	spaceStripper = strings.NewReplacer(
		"₽", "", "$", "", "€", "",
		" ", "", "\t", "", "\n", "",
		"\u00a0", "", "\u202f", "", "\u2009", "", "'", "",
	)
	firstNumber = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
)

// Normalize strips currency markers and digit-group separators and resolves
// the decimal separator: when both ',' and '.' occur the later one is the
// decimal point, a lone ',' is a decimal comma, repeated separators group
// thousands.
func Normalize(s string) string {
	s = currencyWords.ReplaceAllString(s, "")
	s = spaceStripper.Replace(s)

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = decimalComma(s)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}
	return strings.TrimRight(s, ".")
}

// decimalComma keeps the last comma as the decimal point and drops the rest.
func decimalComma(s string) string {
	i := strings.LastIndex(s, ",")
	return strings.ReplaceAll(s[:i], ",", "") + "." + s[i+1:]
}

// ParseNumber converts a JSON value to a float. Strings are normalized first;
// if the whole string still does not parse, the first number inside it is
// used. ok is false when nothing numeric could be found.
func ParseNumber(v any) (float64, bool) {
	if f, ok := numberValue(v); ok {
		return f, true
	}
	s, isString := v.(string)
	if !isString {
		return 0, false
	}
	norm := Normalize(s)
	if norm == "" {
		return 0, false
	}
	if f, ok := parseFinite(norm); ok {
		return f, true
	}
	if m := firstNumber.FindString(norm); m != "" {
		return parseFinite(m)
	}
	return 0, false
}

// ExtractNumeric is ParseNumber with 0 for anything unparseable.
func ExtractNumeric(v any) float64 {
	f, _ := ParseNumber(v)
	return f
}

// IsDecimal reports whether v is a finite number or a string that parses as
// one once a decimal comma is read as a point. Currency marks, digit grouping
// and nil are not accepted.
func IsDecimal(v any) bool {
	if _, ok := numberValue(v); ok {
		return true
	}
	s, isString := v.(string)
	if !isString {
		return false
	}
	_, ok := parseFinite(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
	return ok
}

func numberValue(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseFinite(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
