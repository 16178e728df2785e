package excel

import "gopanel/internal/coercer"

// ColumnProfile summarizes how one column's cells coerce
type ColumnProfile struct {
	Name   string            `json:"name"`
	Type   coercer.ValueType `json:"type"`
	Valid  int               `json:"valid"`  // non-missing cells
	Unique int               `json:"unique"` // distinct non-missing values
}
