package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/san-kum/tlmsim/internal/core"
	"github.com/san-kum/tlmsim/internal/experiment"
)

// ErrBadHeader is returned for a node CSV whose header is not
// "time,node:variable,...".
var ErrBadHeader = errors.New("storage: malformed node csv header")

type NodeExport struct {
	Name      string      `json:"name"`
	Type      string      `json:"type"`
	Variables []string    `json:"variables"`
	Units     []string    `json:"units"`
	Times     []float64   `json:"times"`
	Values    [][]float64 `json:"values"`
}

type ExportData struct {
	Model    string             `json:"model"`
	Timestep float64            `json:"timestep"`
	Start    float64            `json:"start"`
	Stop     float64            `json:"stop"`
	Steps    int                `json:"steps"`
	Nodes    []NodeExport       `json:"nodes"`
	Metrics  map[string]float64 `json:"metrics"`
}

func NewExportData(meta RunMetadata, logs []experiment.NodeLog) ExportData {
	data := ExportData{
		Model:    meta.Model,
		Timestep: meta.Timestep,
		Start:    meta.Start,
		Stop:     meta.Stop,
		Steps:    meta.Steps,
		Nodes:    make([]NodeExport, len(logs)),
		Metrics:  meta.Metrics,
	}
	for i, l := range logs {
		ne := NodeExport{Name: l.Name, Type: string(l.Type), Times: l.Times, Values: l.Values}
		for _, d := range l.Variables {
			ne.Variables = append(ne.Variables, d.Name)
			ne.Units = append(ne.Units, d.Unit)
		}
		data.Nodes[i] = ne
	}
	return data
}

func WriteJSON(w io.Writer, data ExportData) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 12, 64)
}

// WriteCSV writes the logs as one table: a time column followed by one
// column per node variable, headed "node:variable". The time column is taken
// from the longest log; shorter logs leave their cells empty.
func WriteCSV(w io.Writer, logs []experiment.NodeLog) error {
	cw := csv.NewWriter(w)

	header := []string{"time"}
	var times []float64
	for _, l := range logs {
		for _, d := range l.Variables {
			header = append(header, l.Name+":"+d.Name)
		}
		if len(l.Times) > len(times) {
			times = l.Times
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for i, t := range times {
		row = row[:0]
		row = append(row, formatFloat(t))
		for _, l := range logs {
			for j := range l.Variables {
				if i < len(l.Values) {
					row = append(row, formatFloat(l.Values[i][j]))
				} else {
					row = append(row, "")
				}
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV reads a table written by WriteCSV. Node types are not part of the
// table and are left empty.
func ReadCSV(r io.Reader) ([]experiment.NodeLog, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || len(records[0]) == 0 || records[0][0] != "time" {
		return nil, ErrBadHeader
	}

	type column struct {
		log  int
		slot int
	}
	var logs []experiment.NodeLog
	index := make(map[string]int)
	cols := make([]column, len(records[0]))
	for c, h := range records[0][1:] {
		name, variable, ok := strings.Cut(h, ":")
		if !ok {
			return nil, fmt.Errorf("%w: column %q", ErrBadHeader, h)
		}
		i, seen := index[name]
		if !seen {
			i = len(logs)
			index[name] = i
			logs = append(logs, experiment.NodeLog{Name: name})
		}
		logs[i].Variables = append(logs[i].Variables, core.DataDescription{Name: variable})
		cols[c+1] = column{log: i, slot: len(logs[i].Variables) - 1}
	}

	for n, rec := range records[1:] {
		t, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n+1, err)
		}
		rows := make([][]float64, len(logs))
		for c := 1; c < len(rec); c++ {
			if rec[c] == "" {
				continue
			}
			v, err := strconv.ParseFloat(rec[c], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", n+1, err)
			}
			col := cols[c]
			if rows[col.log] == nil {
				rows[col.log] = make([]float64, len(logs[col.log].Variables))
			}
			rows[col.log][col.slot] = v
		}
		for i, row := range rows {
			if row == nil {
				continue
			}
			logs[i].Times = append(logs[i].Times, t)
			logs[i].Values = append(logs[i].Values, row)
		}
	}
	return logs, nil
}
