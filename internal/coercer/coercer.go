package coercer

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ValueType is the storage type a column coerces to
type ValueType string

const (
	ValueTypeString    ValueType = "string"
	ValueTypeNumeric   ValueType = "numeric"
	ValueTypeTimestamp ValueType = "timestamp"
	ValueTypeMissing   ValueType = "missing"
)

// TypeCoercer handles deterministic parsing of raw cell text
type TypeCoercer struct {
	config CoercionConfig
}

// CoercionConfig defines the coercion thresholds and rules
type CoercionConfig struct {
	NumericThreshold   float64  `json:"numeric_threshold"`   // % of values that must parse as numbers
	TimestampThreshold float64  `json:"timestamp_threshold"` // % of values that must parse as timestamps
	TimeFormats        []string `json:"time_formats"`        // layouts tried in order
}

// DefaultTimeFormats are the chronological layouts recognized in time columns
var DefaultTimeFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"2006/01/02",
	"02-Jan-2006",
	"02.01.2006",
	"2006-01",
	"Jan 2006",
}

// DefaultCoercionConfig returns sensible defaults
func DefaultCoercionConfig() CoercionConfig {
	return CoercionConfig{
		NumericThreshold:   0.8, // 80% must parse as numbers
		TimestampThreshold: 0.8, // 80% must parse as timestamps
		TimeFormats:        DefaultTimeFormats,
	}
}

// NewTypeCoercer creates a coercer with the given config
func NewTypeCoercer(config CoercionConfig) *TypeCoercer {
	if len(config.TimeFormats) == 0 {
		config.TimeFormats = DefaultTimeFormats
	}
	return &TypeCoercer{config: config}
}

// IsMissing reports whether a cell is empty or a common missing-value token
func IsMissing(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "na", "n/a", "nan", "null", "none", "-":
		return true
	}
	return false
}

// ParseNumeric attempts to parse as numeric with strict rules.
// Handles international formats: parentheses for negatives, European decimals, currency symbols
func (c *TypeCoercer) ParseNumeric(strVal string) (float64, bool) {
	if IsMissing(strVal) {
		return 0, false
	}

	cleanVal := strings.TrimSpace(strVal)

	// Handle parentheses for negative numbers: (123) -> -123
	isNegative := false
	if strings.HasPrefix(cleanVal, "(") && strings.HasSuffix(cleanVal, ")") {
		cleanVal = strings.TrimPrefix(cleanVal, "(")
		cleanVal = strings.TrimSuffix(cleanVal, ")")
		isNegative = true
	}

	for _, symbol := range []string{"$", "€", "£", "¥", "₺", "USD", "EUR", "GBP", "JPY", "TRY"} {
		cleanVal = strings.ReplaceAll(cleanVal, symbol, "")
	}
	cleanVal = strings.TrimSpace(cleanVal)
	cleanVal = strings.ReplaceAll(cleanVal, "%", "")

	hasComma := strings.Contains(cleanVal, ",")
	hasPeriod := strings.Contains(cleanVal, ".")
	hasSpace := strings.Contains(cleanVal, " ")

	// European format: period as thousands separator, comma as decimal
	// French format: space as thousands separator, comma as decimal
	if hasComma && (hasPeriod || hasSpace) {
		commaIdx := strings.LastIndex(cleanVal, ",")
		afterComma := cleanVal[commaIdx+1:]
		if len(afterComma) <= 3 && strings.Trim(afterComma, "0123456789") == "" {
			cleanVal = strings.ReplaceAll(cleanVal, ".", "")
			cleanVal = strings.ReplaceAll(cleanVal, " ", "")
			cleanVal = strings.ReplaceAll(cleanVal, ",", ".")
		} else {
			cleanVal = strings.ReplaceAll(cleanVal, ",", "")
		}
	} else if hasComma && !hasPeriod && thousandsGrouped(cleanVal) {
		// 1,000 and 1,234,567
		cleanVal = strings.ReplaceAll(cleanVal, ",", "")
	} else if hasComma && !hasPeriod {
		// Otherwise a lone comma is a decimal separator
		cleanVal = strings.ReplaceAll(cleanVal, ",", ".")
	} else {
		cleanVal = strings.ReplaceAll(cleanVal, ",", "")
		cleanVal = strings.ReplaceAll(cleanVal, " ", "")
	}

	if isNegative {
		cleanVal = "-" + cleanVal
	}

	val, err := strconv.ParseFloat(cleanVal, 64)
	if err != nil || math.IsInf(val, 0) || math.IsNaN(val) {
		return 0, false
	}
	return val, true
}

// thousandsGrouped reports whether every comma in s is followed by exactly
// three digits and the leading group is one to three digits without a
// leading zero.
func thousandsGrouped(s string) bool {
	groups := strings.Split(strings.TrimLeft(s, "+-"), ",")
	if len(groups) < 2 {
		return false
	}
	lead := groups[0]
	if len(lead) == 0 || len(lead) > 3 || lead[0] == '0' || !allDigits(lead) {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 || !allDigits(g) {
			return false
		}
	}
	return true
}

func allDigits(s string) bool {
	return s != "" && strings.Trim(s, "0123456789") == ""
}

// ParseTimestamp attempts to parse as timestamp with the configured formats
func (c *TypeCoercer) ParseTimestamp(strVal string) (time.Time, bool) {
	if IsMissing(strVal) {
		return time.Time{}, false
	}
	strVal = strings.TrimSpace(strVal)
	for _, format := range c.config.TimeFormats {
		if t, err := time.Parse(format, strVal); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Floats parses every cell; missing or unparseable cells become NaN
func (c *TypeCoercer) Floats(values []string) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if f, ok := c.ParseNumeric(v); ok {
			out[i] = f
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// AnalyzeTypeDistribution analyzes a sample to determine the best type coercion strategy
func (c *TypeCoercer) AnalyzeTypeDistribution(values []string) TypeAnalysis {
	analysis := TypeAnalysis{
		TotalCount: len(values),
	}

	unique := make(map[string]struct{})
	for _, val := range values {
		if IsMissing(val) {
			continue
		}
		analysis.ValidCount++
		unique[strings.TrimSpace(val)] = struct{}{}

		if _, ok := c.ParseNumeric(val); ok {
			analysis.NumericCount++
		}
		if _, ok := c.ParseTimestamp(val); ok {
			analysis.TimestampCount++
		}
	}
	analysis.UniqueCount = len(unique)

	if analysis.ValidCount > 0 {
		analysis.NumericRatio = float64(analysis.NumericCount) / float64(analysis.ValidCount)
		analysis.TimestampRatio = float64(analysis.TimestampCount) / float64(analysis.ValidCount)
	}
	analysis.RecommendedType = c.determineRecommendedType(analysis)

	return analysis
}

// determineRecommendedType chooses the best type based on analysis
func (c *TypeCoercer) determineRecommendedType(analysis TypeAnalysis) ValueType {
	if analysis.ValidCount == 0 {
		return ValueTypeMissing
	}
	if analysis.NumericRatio >= c.config.NumericThreshold {
		return ValueTypeNumeric
	}
	if analysis.TimestampRatio >= c.config.TimestampThreshold {
		return ValueTypeTimestamp
	}
	return ValueTypeString
}

// TypeAnalysis contains the results of type distribution analysis
type TypeAnalysis struct {
	TotalCount      int       `json:"total_count"`
	ValidCount      int       `json:"valid_count"`
	UniqueCount     int       `json:"unique_count"`
	NumericCount    int       `json:"numeric_count"`
	TimestampCount  int       `json:"timestamp_count"`
	NumericRatio    float64   `json:"numeric_ratio"`
	TimestampRatio  float64   `json:"timestamp_ratio"`
	RecommendedType ValueType `json:"recommended_type"`
}
