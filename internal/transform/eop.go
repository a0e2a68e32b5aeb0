package transform

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pauladam316/overpass-planner/internal/errs"
)

// EOP holds the Earth-orientation parameters at one instant: the UT1−UTC
// offset in seconds and the polar-motion components in arcseconds.
type EOP struct {
	DUT1   float64
	PolarX float64
	PolarY float64
}

// EOPProvider supplies Earth-orientation parameters for an instant. A lookup
// outside the provider's coverage fails with CalculationError; the frame
// pipeline never falls back to a reduced model silently.
type EOPProvider interface {
	Lookup(t time.Time) (EOP, error)
}

// ConstantEOP serves fixed parameters for every instant. Zero values give a
// pure GMST rotation; intended for tests and explicitly opted-in offline use.
type ConstantEOP struct {
	Values EOP
}

func (c ConstantEOP) Lookup(time.Time) (EOP, error) {
	return c.Values, nil
}

// TableEOP serves parameters from a per-day table keyed by integer MJD,
// as published in IERS finals data.
type TableEOP struct {
	byMJD  map[int]EOP
	minMJD int
	maxMJD int
}

// Lookup returns the parameters for the UTC day containing t.
func (p *TableEOP) Lookup(t time.Time) (EOP, error) {
	mjd := int(ModifiedJulianDate(t.UTC()))
	eop, ok := p.byMJD[mjd]
	if !ok {
		return EOP{}, errs.Errorf(errs.Calculation,
			"EOP data unavailable at %s (MJD %d, table covers %d-%d)",
			t.UTC().Format(time.RFC3339), mjd, p.minMJD, p.maxMJD)
	}
	return eop, nil
}

// Span returns the MJD range covered by the table.
func (p *TableEOP) Span() (minMJD, maxMJD int) {
	return p.minMJD, p.maxMJD
}

// LoadFinals reads an IERS finals.all/finals.data file (the fixed-column
// Bulletin A format) into a TableEOP. Lines without rapid-service values
// (the far prediction tail) are skipped.
func LoadFinals(path string) (*TableEOP, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening EOP file: %w", err)
	}
	defer f.Close()

	table, err := parseFinals(f)
	if err != nil {
		return nil, fmt.Errorf("parsing EOP file %s: %w", path, err)
	}
	return table, nil
}

// Fixed column ranges of the finals format (0-indexed byte offsets):
// MJD 7:15, PM-x 18:27, PM-y 37:46, UT1-UTC 58:68.
func parseFinals(r io.Reader) (*TableEOP, error) {
	table := &TableEOP{byMJD: make(map[int]EOP)}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < 68 {
			continue
		}

		mjdStr := strings.TrimSpace(line[7:15])
		xStr := strings.TrimSpace(line[18:27])
		yStr := strings.TrimSpace(line[37:46])
		dut1Str := strings.TrimSpace(line[58:68])
		if mjdStr == "" || xStr == "" || yStr == "" || dut1Str == "" {
			continue
		}

		mjdF, err := strconv.ParseFloat(mjdStr, 64)
		if err != nil {
			continue
		}
		x, errX := strconv.ParseFloat(xStr, 64)
		y, errY := strconv.ParseFloat(yStr, 64)
		dut1, errD := strconv.ParseFloat(dut1Str, 64)
		if errX != nil || errY != nil || errD != nil {
			continue
		}

		mjd := int(mjdF)
		table.byMJD[mjd] = EOP{DUT1: dut1, PolarX: x, PolarY: y}
		if table.minMJD == 0 || mjd < table.minMJD {
			table.minMJD = mjd
		}
		if mjd > table.maxMJD {
			table.maxMJD = mjd
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(table.byMJD) == 0 {
		return nil, fmt.Errorf("no usable EOP rows found")
	}
	return table, nil
}
