package panel

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// TimeEncoding records how the time column was turned into an ordered value
type TimeEncoding int

const (
	// TimeNumeric means the time column was already numeric and kept as is
	TimeNumeric TimeEncoding = iota
	// TimeChronological means values were parsed as dates; the ordinal is Unix seconds
	TimeChronological
	// TimeCategoricalCode means values were mapped to codes in order of first
	// appearance. Equality survives, chronological ordering does not.
	TimeCategoricalCode
)

func (e TimeEncoding) String() string {
	switch e {
	case TimeNumeric:
		return "numeric"
	case TimeChronological:
		return "chronological"
	case TimeCategoricalCode:
		return "categorical_code"
	default:
		return fmt.Sprintf("TimeEncoding(%d)", int(e))
	}
}

// MarshalText encodes the tag as its string name
func (e TimeEncoding) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// PreservesOrder reports whether sorting by the encoded time follows real time
func (e TimeEncoding) PreservesOrder() bool {
	return e != TimeCategoricalCode
}

// PanelIndexKey is the composite (entity, time) index of one observation.
// Time is NaN for the missing-time marker.
type PanelIndexKey struct {
	Entity string  `json:"entity"`
	Time   float64 `json:"time"`
}

// TimeMissing reports whether the key carries the missing-time marker
func (k PanelIndexKey) TimeMissing() bool {
	return math.IsNaN(k.Time)
}

// EntityGroup lists the row positions of one entity in table order
type EntityGroup struct {
	Entity string
	Rows   []int
}

// PanelTable is a table indexed by (entity, time) with numeric data columns.
// The entity and time columns live only in the keys.
type PanelTable struct {
	entityName string
	timeName   string
	encoding   TimeEncoding
	keys       []PanelIndexKey
	timeLabels []string
	names      []string
	columns    map[string][]float64
}

// PanelTableInput carries the pieces a reshaper assembles
type PanelTableInput struct {
	EntityName string
	TimeName   string
	Encoding   TimeEncoding
	Keys       []PanelIndexKey
	TimeLabels []string
	Names      []string
	Columns    map[string][]float64
}

// NewPanelTable validates and copies the input
func NewPanelTable(in PanelTableInput) (*PanelTable, error) {
	n := len(in.Keys)
	if len(in.TimeLabels) != n {
		return nil, fmt.Errorf("time labels length %d does not match %d keys", len(in.TimeLabels), n)
	}

	columns := make(map[string][]float64, len(in.Names))
	for _, name := range in.Names {
		if name == in.EntityName || name == in.TimeName {
			return nil, fmt.Errorf("index column %q cannot also be a data column", name)
		}
		col, ok := in.Columns[name]
		if !ok {
			return nil, fmt.Errorf("missing data for column %q", name)
		}
		if len(col) != n {
			return nil, fmt.Errorf("column %q has %d values, expected %d", name, len(col), n)
		}
		columns[name] = append([]float64(nil), col...)
	}

	return &PanelTable{
		entityName: in.EntityName,
		timeName:   in.TimeName,
		encoding:   in.Encoding,
		keys:       append([]PanelIndexKey(nil), in.Keys...),
		timeLabels: append([]string(nil), in.TimeLabels...),
		names:      append([]string(nil), in.Names...),
		columns:    columns,
	}, nil
}

func (p *PanelTable) EntityName() string { return p.entityName }
func (p *PanelTable) TimeName() string { return p.timeName }
func (p *PanelTable) Encoding() TimeEncoding { return p.encoding }
func (p *PanelTable) Len() int { return len(p.keys) }
func (p *PanelTable) Key(i int) PanelIndexKey { return p.keys[i] }
func (p *PanelTable) TimeLabel(i int) string { return p.timeLabels[i] }
func (p *PanelTable) Columns() []string { return append([]string(nil), p.names...) }
func (p *PanelTable) Keys() []PanelIndexKey { return append([]PanelIndexKey(nil), p.keys...) }

// Has reports whether a numeric data column exists
func (p *PanelTable) Has(name string) bool {
	_, ok := p.columns[name]
	return ok
}

// Column returns a copy of a numeric data column. Missing cells are NaN.
func (p *PanelTable) Column(name string) ([]float64, error) {
	col, ok := p.columns[name]
	if !ok {
		return nil, fmt.Errorf("column %q not found in panel", name)
	}
	return append([]float64(nil), col...), nil
}

// Groups returns entities in order of first appearance with their rows
func (p *PanelTable) Groups() []EntityGroup {
	pos := make(map[string]int)
	var groups []EntityGroup
	for i, k := range p.keys {
		g, ok := pos[k.Entity]
		if !ok {
			g = len(groups)
			pos[k.Entity] = g
			groups = append(groups, EntityGroup{Entity: k.Entity})
		}
		groups[g].Rows = append(groups[g].Rows, i)
	}
	return groups
}

// SortedOrder returns row positions sorted by entity, then time. Missing
// times sort last within their entity; ties keep table order.
func (p *PanelTable) SortedOrder() []int {
	order := make([]int, len(p.keys))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ka, kb := p.keys[order[a]], p.keys[order[b]]
		if ka.Entity != kb.Entity {
			return entityLess(ka.Entity, kb.Entity)
		}
		return timeLess(ka.Time, kb.Time)
	})
	return order
}

// entityLess compares numerically when both identifiers are numbers so that
// "2" sorts before "10".
func entityLess(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil && fa != fb {
		return fa < fb
	}
	return a < b
}

func timeLess(a, b float64) bool {
	switch {
	case math.IsNaN(a):
		return false
	case math.IsNaN(b):
		return true
	default:
		return a < b
	}
}
