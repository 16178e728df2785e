package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopanel/domain/panel"
	"gopanel/internal/coercer"
	"gopanel/internal/errors"

	"github.com/xuri/excelize/v2"
)

// Supported file types
const (
	FileTypeCSV  = "csv"
	FileTypeXLSX = "xlsx"
)

// DataReader handles reading Excel and CSV files into raw tables
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	config   ReaderConfig
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string, config ReaderConfig) *DataReader {
	return &DataReader{filePath: filePath, fileType: FileTypeOf(filePath), config: config}
}

// FileTypeOf maps a file name to a supported file type by extension.
// Anything that is not .csv is treated as xlsx.
func FileTypeOf(name string) string {
	if strings.ToLower(filepath.Ext(name)) == ".csv" {
		return FileTypeCSV
	}
	return FileTypeXLSX
}

// ReadTable reads the file into a raw table
func (r *DataReader) ReadTable() (*panel.RawTable, error) {
	log.Printf("[DataReader] Starting to read %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, errors.InvalidInput(fmt.Sprintf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath))
	}

	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open data file")
	}
	defer file.Close()

	return ReadTableFrom(file, r.fileType, r.config)
}

// ReadTableFrom reads an uploaded stream of the given file type
func ReadTableFrom(src io.Reader, fileType string, config ReaderConfig) (*panel.RawTable, error) {
	var (
		rows [][]string
		err  error
	)
	switch fileType {
	case FileTypeCSV:
		rows, err = readCSVRows(src)
	case FileTypeXLSX:
		rows, err = readExcelRows(src, config.Sheet)
	default:
		return nil, errors.InvalidInput(fmt.Sprintf("unsupported file type: %s", fileType))
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, errors.InvalidInput(fmt.Sprintf("%s file must have at least a header row and one data row", strings.ToUpper(fileType)))
	}
	return processRows(rows, fileType)
}

// readExcelRows reads the configured sheet, or the first one
func readExcelRows(src io.Reader, sheet string) ([][]string, error) {
	startTime := time.Now()
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("failed to open Excel file: %w", err))
	}
	defer f.Close()
	log.Printf("[DataReader] Excel file opened in %.2fms", float64(time.Since(startTime).Nanoseconds())/1e6)

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.InvalidInput("Excel file has no sheets")
		}
		sheet = sheets[0]
	}

	readStart := time.Now()
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("failed to read sheet %q: %w", sheet, err))
	}
	log.Printf("[DataReader] %s read in %.2fms (%d rows)", sheet, float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))
	return rows, nil
}

// readCSVRows reads every CSV record. Records may have differing lengths.
func readCSVRows(src io.Reader) ([][]string, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	readStart := time.Now()
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("failed to read CSV file: %w", err))
	}
	log.Printf("[DataReader] CSV file read in %.2fms (%d rows)", float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))
	return rows, nil
}

// processRows trims every cell, pads short rows with empty cells and drops
// rows that are entirely empty. Cells beyond the header are ignored.
func processRows(rows [][]string, fileType string) (*panel.RawTable, error) {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = strings.TrimSpace(header)
	}

	dataRows := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		cells := make([]string, len(headers))
		empty := true
		for j := range headers {
			if j < len(row) {
				cells[j] = strings.TrimSpace(row[j])
			}
			if cells[j] != "" {
				empty = false
			}
		}
		if !empty {
			dataRows = append(dataRows, cells)
		}
	}

	table, err := panel.NewRawTable(headers, dataRows)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err)
	}

	log.Printf("[DataReader] %s file processed (%d columns, %d rows)",
		strings.ToUpper(fileType), len(headers), table.Len())
	return table, nil
}

// InferColumnTypes profiles every column of the table with the coercer
func InferColumnTypes(table *panel.RawTable, config ReaderConfig) []ColumnProfile {
	c := coercer.NewTypeCoercer(config.Coercion)

	profiles := make([]ColumnProfile, 0, len(table.Headers()))
	for _, header := range table.Headers() {
		values, _ := table.Column(header)
		analysis := c.AnalyzeTypeDistribution(values)
		profiles = append(profiles, ColumnProfile{
			Name:   header,
			Type:   analysis.RecommendedType,
			Valid:  analysis.ValidCount,
			Unique: analysis.UniqueCount,
		})
	}
	return profiles
}

var (
	commonEntityColumns = []string{"id", "entity", "entity_id", "firm", "company", "country", "region", "unit", "il", "ulke", "firma"}
	commonTimeColumns   = []string{"year", "time", "period", "date", "quarter", "month", "yil", "tarih", "donem"}
)

// SuggestIndexColumns guesses the entity and time columns of a panel.
// Well-known names win; otherwise the entity is the first string column
// with repeated values and the time is the first timestamp column. Empty
// results mean no guess.
func SuggestIndexColumns(profiles []ColumnProfile) (entity, timeCol string) {
	byName := make(map[string]string, len(profiles))
	for _, p := range profiles {
		byName[strings.ToLower(p.Name)] = p.Name
	}
	for _, name := range commonEntityColumns {
		if h, ok := byName[name]; ok {
			entity = h
			break
		}
	}
	for _, name := range commonTimeColumns {
		if h, ok := byName[name]; ok && h != entity {
			timeCol = h
			break
		}
	}

	for _, p := range profiles {
		if entity == "" && p.Type == coercer.ValueTypeString && p.Unique < p.Valid && p.Name != timeCol {
			entity = p.Name
		}
		if timeCol == "" && p.Type == coercer.ValueTypeTimestamp && p.Name != entity {
			timeCol = p.Name
		}
	}
	return entity, timeCol
}
