package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/qmfsim/internal/dynamo"
)

var channelNames = [dynamo.Channels]string{"L", "X", "Y", "Z", "VX", "VY", "VZ"}

// HistoryHeader names the columns of a history with n particles:
// L0,X0,Y0,Z0,VX0,VY0,VZ0,L1,...
func HistoryHeader(n int) []string {
	header := make([]string, 0, n*dynamo.Channels)
	for p := 0; p < n; p++ {
		for _, c := range channelNames {
			header = append(header, c+strconv.Itoa(p))
		}
	}
	return header
}

// WriteHistoryCSV writes one row per recorded timepoint.
func WriteHistoryCSV(w io.Writer, h *dynamo.History) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(HistoryHeader(h.Particles())); err != nil {
		return err
	}

	record := make([]string, h.Particles()*dynamo.Channels)
	for t := 0; t < h.Steps(); t++ {
		for i, v := range h.Row(t) {
			if i%dynamo.Channels == 0 {
				record[i] = strconv.Itoa(int(v))
			} else {
				record[i] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ReadHistoryCSV(r io.Reader, times []float64) (*dynamo.History, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: history has no header", dynamo.ErrDimensionMismatch)
	}

	rows := make([][]float64, 0, len(records)-1)
	for i, rec := range records[1:] {
		row, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("history row %d: %w", i+1, err)
		}
		rows = append(rows, row)
	}
	return dynamo.NewHistoryFromRows(times, rows)
}

func WriteTimeCSV(w io.Writer, times []float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time"}); err != nil {
		return err
	}
	for _, t := range times {
		if err := cw.Write([]string{strconv.FormatFloat(t, 'g', -1, 64)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ReadTimeCSV(r io.Reader) ([]float64, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []float64{}, nil
	}
	times := make([]float64, 0, len(records)-1)
	for i, rec := range records[1:] {
		t, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, fmt.Errorf("time row %d: %w", i+1, err)
		}
		times = append(times, t)
	}
	return times, nil
}

func parseRow(rec []string) ([]float64, error) {
	row := make([]float64, len(rec))
	for j, field := range rec {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, err
		}
		row[j] = v
	}
	return row, nil
}
