package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Table collects rows and prints them as one table on Close.
type Table struct {
	out  io.Writer
	rows []Row
}

// NewTable returns a Table printing to out.
func NewTable(out io.Writer) *Table {
	return &Table{out: out}
}

// Write buffers r.
func (t *Table) Write(r Row) error {
	t.rows = append(t.rows, r)
	return nil
}

// Close renders the buffered rows.
func (t *Table) Close() error {
	if len(t.rows) == 0 {
		return nil
	}
	_, err := fmt.Fprintln(t.out, t.String())
	return err
}

// String renders the buffered rows.
func (t *Table) String() string {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"#", "Detector", "Descriptor", "Keypoints", "Matches", "Size", "Detect ms", "Extract ms", "Vehicle"})
	for i, r := range t.rows {
		tw.AppendRow(table.Row{
			i + 1,
			r.Detector,
			r.Descriptor,
			fmt.Sprintf("%.1f", r.AvgKeyPoints),
			fmt.Sprintf("%.1f", r.AvgMatches),
			fmt.Sprintf("%.2f", r.AvgKeyPointSize),
			fmt.Sprintf("%.2f ± %.2f", r.AvgDetectionMs, r.StdDetectionMs),
			fmt.Sprintf("%.2f ± %.2f", r.AvgExtractionMs, r.StdExtractionMs),
			r.FocusOnVehicle,
		})
	}
	return tw.Render()
}
