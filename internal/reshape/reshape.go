// Package reshape turns a flat uploaded table into a panel indexed by
// (entity, time).
package reshape

import (
	"fmt"
	"strings"

	"gopanel/domain/core"
	"gopanel/domain/panel"
	"gopanel/internal"
	"gopanel/internal/coercer"
)

// Reshaper builds PanelTables. It never mutates its input.
type Reshaper struct {
	coercer *coercer.TypeCoercer
	logger  *internal.Logger
}

// NewReshaper creates a reshaper using the given coercer
func NewReshaper(c *coercer.TypeCoercer) *Reshaper {
	if c == nil {
		c = coercer.NewTypeCoercer(coercer.DefaultCoercionConfig())
	}
	return &Reshaper{
		coercer: c,
		logger:  internal.DefaultLogger.WithComponent("Reshape"),
	}
}

// Reshape re-indexes table by (entityCol, timeCol). The time column is
// coerced to numeric, chronological, or categorical-code ordinals; the
// chosen tier is recorded on the result. Duplicate keys are kept.
func (r *Reshaper) Reshape(table *panel.RawTable, entityCol, timeCol string) (*panel.PanelTable, error) {
	if table == nil {
		return nil, core.NewSelectionError("table", "is nil")
	}
	if entityCol == timeCol {
		return nil, core.NewSelectionError("time column", "must differ from the entity column")
	}

	entities, err := table.Column(entityCol)
	if err != nil {
		return nil, fmt.Errorf("%w: entity %q", core.ErrColumnNotFound, entityCol)
	}
	times, err := table.Column(timeCol)
	if err != nil {
		return nil, fmt.Errorf("%w: time %q", core.ErrColumnNotFound, timeCol)
	}

	coerced := r.coercer.CoerceTime(times)
	switch {
	case coerced.Encoding == panel.TimeCategoricalCode:
		r.logger.Warn("time column %q is neither numeric nor a date; using first-appearance codes, chronological order is lost", timeCol)
	case coerced.Missing > 0:
		r.logger.Info("time column %q coerced as %s with %d missing values", timeCol, coerced.Encoding, coerced.Missing)
	default:
		r.logger.Debug("time column %q coerced as %s", timeCol, coerced.Encoding)
	}

	keys := make([]panel.PanelIndexKey, table.Len())
	for i := range keys {
		keys[i] = panel.PanelIndexKey{
			Entity: strings.TrimSpace(entities[i]),
			Time:   coerced.Ordinals[i],
		}
	}

	var names []string
	columns := make(map[string][]float64)
	for _, h := range table.Headers() {
		if h == entityCol || h == timeCol {
			continue
		}
		raw, err := table.Column(h)
		if err != nil {
			return nil, err
		}
		names = append(names, h)
		columns[h] = r.coercer.Floats(raw)
	}

	if dups := countDuplicateKeys(keys); dups > 0 {
		r.logger.Warn("%d rows share an (entity, time) key with an earlier row; keeping them", dups)
	}

	return panel.NewPanelTable(panel.PanelTableInput{
		EntityName: entityCol,
		TimeName:   timeCol,
		Encoding:   coerced.Encoding,
		Keys:       keys,
		TimeLabels: times,
		Names:      names,
		Columns:    columns,
	})
}

func countDuplicateKeys(keys []panel.PanelIndexKey) int {
	seen := make(map[panel.PanelIndexKey]struct{}, len(keys))
	dups := 0
	for _, k := range keys {
		if k.TimeMissing() {
			continue
		}
		if _, ok := seen[k]; ok {
			dups++
			continue
		}
		seen[k] = struct{}{}
	}
	return dups
}

// DuplicateKeys counts rows whose (entity, time) key repeats an earlier row
func DuplicateKeys(p *panel.PanelTable) int {
	return countDuplicateKeys(p.Keys())
}
