package excel

import (
	"encoding/csv"
	"os"
	"strconv"

	"govote/domain/featureset"
	"govote/internal/errors"

	"github.com/xuri/excelize/v2"
)

// WriteFeatureSet writes fs to path in the format given by its extension,
// with the id column first and the label column last.
func WriteFeatureSet(path string, fs *featureset.FeatureSet, config ReaderConfig) error {
	config = config.withDefaults()
	fileType, err := fileTypeOf(path)
	if err != nil {
		return err
	}

	header := append([]string{config.IDColumn}, fs.FeatureNames()...)
	if fs.HasLabels() {
		header = append(header, config.LabelColumn)
	}
	labels := fs.Labels()
	records := make([][]string, 0, fs.Len()+1)
	records = append(records, header)
	for i := 0; i < fs.Len(); i++ {
		rec := []string{fs.ID(i)}
		for _, v := range fs.Row(i) {
			rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if labels != nil {
			rec = append(rec, labels[i])
		}
		records = append(records, rec)
	}

	if fileType == "xlsx" {
		return writeExcel(path, config.Sheet, records)
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	w := csv.NewWriter(file)
	if fileType == "tsv" {
		w.Comma = '\t'
	}
	if err := w.WriteAll(records); err != nil {
		file.Close()
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return file.Close()
}

func writeExcel(path, sheet string, records [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return errors.Wrap(err, "failed to name sheet")
		}
	}
	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := make([]interface{}, len(rec))
		for j, v := range rec {
			row[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrapf(err, "failed to write row %d", i+1)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return errors.Wrapf(err, "failed to save %s", path)
	}
	return nil
}
