package excel

// ReaderConfig names the special columns of a data file
type ReaderConfig struct {
	IDColumn    string `json:"id_col"`
	LabelColumn string `json:"label_col"`
	Sheet       string `json:"sheet"`
}

// DefaultReaderConfig returns the conventional column names
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		IDColumn:    "id",
		LabelColumn: "y",
		Sheet:       "Sheet1",
	}
}

func (c ReaderConfig) withDefaults() ReaderConfig {
	d := DefaultReaderConfig()
	if c.IDColumn == "" {
		c.IDColumn = d.IDColumn
	}
	if c.LabelColumn == "" {
		c.LabelColumn = d.LabelColumn
	}
	if c.Sheet == "" {
		c.Sheet = d.Sheet
	}
	return c
}
