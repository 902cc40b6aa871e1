package excel

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"govote/domain/featureset"
	"govote/internal/errors"

	"github.com/xuri/excelize/v2"
)

// DataReader handles reading Excel, CSV and TSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx", "csv" or "tsv"
	config   ReaderConfig
}

// NewDataReader creates a reader for filePath, choosing the format from
// its extension.
func NewDataReader(filePath string, config ReaderConfig) (*DataReader, error) {
	fileType, err := fileTypeOf(filePath)
	if err != nil {
		return nil, err
	}
	return &DataReader{filePath: filePath, fileType: fileType, config: config.withDefaults()}, nil
}

func fileTypeOf(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return "csv", nil
	case ".tsv":
		return "tsv", nil
	case ".xlsx":
		return "xlsx", nil
	default:
		return "", errors.ConfigurationError("unsupported data file extension %q for %s", ext, path)
	}
}

// ReadFeatureSet reads path into a FeatureSet using the default columns.
func ReadFeatureSet(path string) (*featureset.FeatureSet, error) {
	r, err := NewDataReader(path, DefaultReaderConfig())
	if err != nil {
		return nil, err
	}
	return r.ReadFeatureSet()
}

// ReadData reads the file into header and row maps
func (r *DataReader) ReadData() (*ExcelData, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, errors.NotFound(fmt.Sprintf("%s file %s", strings.ToUpper(r.fileType), r.filePath))
	}

	switch r.fileType {
	case "csv":
		return r.readDelimited(',')
	case "tsv":
		return r.readDelimited('\t')
	default:
		return r.readExcelData()
	}
}

// readExcelData reads the configured sheet
func (r *DataReader) readExcelData() (*ExcelData, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open Excel file")
	}
	defer f.Close()

	rows, err := f.GetRows(r.config.Sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", r.config.Sheet)
	}
	return r.processRows(rows)
}

func (r *DataReader) readDelimited(sep rune) (*ExcelData, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s file", strings.ToUpper(r.fileType))
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = sep
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s file", strings.ToUpper(r.fileType))
	}
	return r.processRows(rows)
}

// processRows converts raw string rows into ExcelData format
func (r *DataReader) processRows(rows [][]string) (*ExcelData, error) {
	if len(rows) < 2 {
		return nil, errors.InvalidInput(fmt.Sprintf(
			"%s must have a header row and at least one data row", r.filePath))
	}

	headers := make([]string, len(rows[0]))
	seen := make(map[string]bool, len(headers))
	for i, header := range rows[0] {
		headers[i] = strings.TrimSpace(header)
		if seen[headers[i]] {
			return nil, errors.InvalidInput(fmt.Sprintf("duplicate column %q in %s", headers[i], r.filePath))
		}
		seen[headers[i]] = true
	}

	dataRows := make([]RawRowData, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rowData := make(RawRowData, len(headers))
		for j, cell := range row {
			if j < len(headers) {
				rowData[headers[j]] = strings.TrimSpace(cell)
			}
		}
		dataRows = append(dataRows, rowData)
	}

	log.Printf("[DataReader] %s file processed (%d columns, %d rows)",
		strings.ToUpper(r.fileType), len(headers), len(dataRows))

	return &ExcelData{Headers: headers, Rows: dataRows}, nil
}

// ReadFeatureSet reads the file and splits it into ids, labels and
// numeric features. Without an id column, ids are EXAMPLE_<row>; without a
// label column the set is unlabeled. Every other column is a feature;
// empty feature cells read as 0.
func (r *DataReader) ReadFeatureSet() (*featureset.FeatureSet, error) {
	data, err := r.ReadData()
	if err != nil {
		return nil, err
	}

	var features []string
	hasID, hasLabel := false, false
	for _, h := range data.Headers {
		switch h {
		case r.config.IDColumn:
			hasID = true
		case r.config.LabelColumn:
			hasLabel = true
		default:
			features = append(features, h)
		}
	}
	if len(features) == 0 {
		return nil, errors.InvalidInput(fmt.Sprintf("%s has no feature columns", r.filePath))
	}

	ids := make([]string, len(data.Rows))
	rows := make([][]float64, len(data.Rows))
	var labels []string
	if hasLabel {
		labels = make([]string, len(data.Rows))
	}
	for i, row := range data.Rows {
		ids[i] = fmt.Sprintf("EXAMPLE_%d", i)
		if hasID {
			ids[i] = row[r.config.IDColumn]
		}
		if hasLabel {
			labels[i] = row[r.config.LabelColumn]
		}
		rows[i] = make([]float64, len(features))
		for j, name := range features {
			cell := row[name]
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, errors.InvalidInput(fmt.Sprintf(
					"%s row %d column %q: %q is not a number", r.filePath, i+2, name, cell))
			}
			rows[i][j] = v
		}
	}

	name := strings.TrimSuffix(filepath.Base(r.filePath), filepath.Ext(r.filePath))
	return featureset.New(name, ids, rows, labels, features)
}
