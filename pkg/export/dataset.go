package export

import "fmt"

// Column describes one exported column. Weight controls its share of the
// printable width in PDF output; zero means 1.
type Column struct {
	Key    string
	Label  string
	Weight float64
}

// Dataset defines tabular export content.
type Dataset struct {
	Title   string
	Columns []Column
	Rows    []map[string]string
}

func (d Dataset) validate(format string) error {
	if len(d.Columns) == 0 {
		return fmt.Errorf("%s requires at least one column", format)
	}
	return nil
}

func (c Column) label() string {
	if c.Label != "" {
		return c.Label
	}
	return c.Key
}

func (c Column) weight() float64 {
	if c.Weight <= 0 {
		return 1
	}
	return c.Weight
}
