package config

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	speciesColumns = 11
	deviceColumns  = 6
)

// ErrTagNotFound is returned when no row carries the requested tag.
var ErrTagNotFound = errors.New("config: tag not found")

// LoadSpeciesCSV reads species rows of the form
//
//	tag, count, mass(amu), charge(e), spread x(mm), spread y(mm),
//	spread vx(mm/s), spread vy(mm/s), spread vz(m/s), speed(km/s), phase(rad)
//
// A leading header row is skipped. Rows are returned in file order.
func LoadSpeciesCSV(r io.Reader) ([]SpeciesConfig, error) {
	rows, err := readRows(r, speciesColumns)
	if err != nil {
		return nil, err
	}
	out := make([]SpeciesConfig, 0, len(rows))
	for _, row := range rows {
		p := parser{row: row.fields, line: row.line}
		sc := SpeciesConfig{
			Tag:       row.fields[0],
			Count:     p.integer(1),
			MassAMU:   p.float(2),
			Charge:    p.float(3),
			SpreadXMM: p.float(4),
			SpreadYMM: p.float(5),
			SpreadVX:  p.float(6) * milli,
			SpreadVY:  p.float(7) * milli,
			SpreadVZ:  p.float(8),
			SpeedKMS:  p.float(9),
			Phase:     p.float(10),
		}
		if p.err != nil {
			return nil, p.err
		}
		out = append(out, sc)
	}
	return out, nil
}

// LoadDeviceCSV returns the device row with the given tag. Columns are
//
//	tag, rf(V), dc(V), frequency(MHz), radius(mm), max potential(V)
func LoadDeviceCSV(r io.Reader, tag string) (DeviceConfig, error) {
	rows, err := readRows(r, deviceColumns)
	if err != nil {
		return DeviceConfig{}, err
	}
	for _, row := range rows {
		if row.fields[0] != tag {
			continue
		}
		p := parser{row: row.fields, line: row.line}
		dc := DeviceConfig{
			Tag:          tag,
			RF:           p.float(1),
			DC:           p.float(2),
			FrequencyMHz: p.float(3),
			RadiusMM:     p.float(4),
			MaxPotential: p.float(5),
		}
		return dc, p.err
	}
	return DeviceConfig{}, fmt.Errorf("%w: device %q", ErrTagNotFound, tag)
}

// FindSpecies picks the rows with the given tags, in the order asked.
func FindSpecies(rows []SpeciesConfig, tags ...string) ([]SpeciesConfig, error) {
	byTag := make(map[string]SpeciesConfig, len(rows))
	for _, r := range rows {
		byTag[r.Tag] = r
	}
	out := make([]SpeciesConfig, 0, len(tags))
	for _, tag := range tags {
		sc, ok := byTag[tag]
		if !ok {
			return nil, fmt.Errorf("%w: species %q", ErrTagNotFound, tag)
		}
		out = append(out, sc)
	}
	return out, nil
}

type record struct {
	fields []string
	line   int
}

func readRows(r io.Reader, columns int) ([]record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var out []record
	for first := true; ; first = false {
		fields, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		if first && isHeader(fields) {
			continue
		}
		if len(fields) < columns {
			return nil, fmt.Errorf("line %d: %d columns, want %d", line, len(fields), columns)
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		out = append(out, record{fields: fields, line: line})
	}
}

func isHeader(fields []string) bool {
	if len(fields) < 2 {
		return true
	}
	_, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	return err != nil
}

type parser struct {
	row  []string
	line int
	err  error
}

func (p *parser) float(i int) float64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(p.row[i], 64)
	if err != nil {
		p.err = fmt.Errorf("line %d column %d: %w", p.line, i+1, err)
	}
	return v
}

func (p *parser) integer(i int) int {
	if p.err != nil {
		return 0
	}
	v, err := strconv.Atoi(p.row[i])
	if err != nil {
		p.err = fmt.Errorf("line %d column %d: %w", p.line, i+1, err)
	}
	return v
}
