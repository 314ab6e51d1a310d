package export

import "fmt"

// Column describes one table column. Width is in millimetres and only used by the PDF
// renderer; zero widths share the remaining page width.
type Column struct {
	Header string
	Width  float64
}

// Dataset is a titled table ready to render.
type Dataset struct {
	Title    string
	Subtitle string
	Columns  []Column
	Rows     [][]string
}

// Headers returns the column headers in order.
func (d Dataset) Headers() []string {
	headers := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		headers[i] = col.Header
	}
	return headers
}

func (d Dataset) validate() error {
	if len(d.Columns) == 0 {
		return fmt.Errorf("dataset requires at least one column")
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(d.Columns))
		}
	}
	return nil
}
