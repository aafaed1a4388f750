package sdf

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// TimingValue is the content of a parenthesized SDF delay value: either a
// single scalar (303) or a min:typ:max triplet (1.0:2.0:3.0). Parts that do
// not parse as numbers are nil.
type TimingValue struct {
	Triplet bool
	Scalar  *float64
	Min     *float64
	Typical *float64
	Max     *float64
}

// MarshalJSON renders a scalar as a number (or null) and a triplet as
// {"min":..,"typical":..,"max":..}.
func (v *TimingValue) MarshalJSON() ([]byte, error) {
	if v.Triplet {
		return json.Marshal(struct {
			Min     *float64 `json:"min"`
			Typical *float64 `json:"typical"`
			Max     *float64 `json:"max"`
		}{v.Min, v.Typical, v.Max})
	}
	return json.Marshal(v.Scalar)
}

// Representative returns the value used when a single number is needed:
// the scalar, or the typical/max/min part of a triplet in that preference.
func (v *TimingValue) Representative() (float64, bool) {
	if v == nil {
		return 0, false
	}
	if !v.Triplet {
		return deref(v.Scalar)
	}
	for _, p := range []*float64{v.Typical, v.Max, v.Min} {
		if p != nil {
			return *p, true
		}
	}
	return 0, false
}

// Worst returns the largest known part of the value (the scalar itself, or
// the max/typical/min part of a triplet in that preference).
func (v *TimingValue) Worst() (float64, bool) {
	if v == nil {
		return 0, false
	}
	if !v.Triplet {
		return deref(v.Scalar)
	}
	for _, p := range []*float64{v.Max, v.Typical, v.Min} {
		if p != nil {
			return *p, true
		}
	}
	return 0, false
}

func deref(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

// parseTimingText converts the text found between the parentheses of a
// timing value. "a:b:c" becomes a triplet; anything else is read as a
// single number with parseFloat prefix semantics ("1.5ns" → 1.5).
func parseTimingText(text string) *TimingValue {
	if strings.Contains(text, ":") {
		parts := strings.Split(text, ":")
		if len(parts) == 3 {
			return &TimingValue{
				Triplet: true,
				Min:     floatPtr(parseFloatPrefix(parts[0])),
				Typical: floatPtr(parseFloatPrefix(parts[1])),
				Max:     floatPtr(parseFloatPrefix(parts[2])),
			}
		}
	}
	return &TimingValue{Scalar: floatPtr(parseFloatPrefix(text))}
}

func floatPtr(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}

var floatPrefixRegexp = regexp.MustCompile(`^[+-]?(?:[0-9]+(?:\.[0-9]*)?|\.[0-9]+)(?:[eE][+-]?[0-9]+)?`)

// parseFloatPrefix reads the longest leading decimal number of s after
// leading whitespace, the way ECMAScript parseFloat does. Infinity is
// rejected because it has no JSON representation.
func parseFloatPrefix(s string) (float64, bool) {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	m := floatPrefixRegexp.FindString(s)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// coerceNumber reports whether token is a number whose shortest rendering
// is exactly token. "100" and "1.5" qualify; "007", "1.0", "1e3" and "12a"
// stay strings.
func coerceNumber(token string) (float64, bool) {
	f, ok := parseFloatPrefix(token)
	if !ok {
		return 0, false
	}
	if formatJSNumber(f) != token {
		return 0, false
	}
	return f, true
}

// formatJSNumber renders f the way ECMAScript Number.prototype.toString does
// for finite values.
func formatJSNumber(f float64) string {
	if f == 0 {
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		sign := exp[:1]
		digits := strings.TrimLeft(exp[1:], "0")
		if digits == "" {
			digits = "0"
		}
		return mant + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
