package tle

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pauladam316/overpass-planner/internal/errs"
)

// FindByID scans a raw catalog blob for the element set of noradID.
//
// The scan looks for a line starting "1 " whose columns 3-7 carry the
// requested id, requires the next non-blank line to start "2 " with the same
// id, and takes the nearest preceding non-element line as the name. Blank
// lines between records are tolerated; all lines are trimmed.
func FindByID(noradID int, blob []byte) (TLE, error) {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(blob))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return TLE{}, errs.Errorf(errs.Parse, "reading catalog: %w", err)
	}

	for i, line := range lines {
		if !strings.HasPrefix(line, "1 ") {
			continue
		}
		id, err := lineNORADID(line)
		if err != nil || id != noradID {
			continue
		}

		if i+1 >= len(lines) || !strings.HasPrefix(lines[i+1], "2 ") {
			return TLE{}, errs.Errorf(errs.Tle, "NORAD %d: line 2 missing after line 1", noradID)
		}
		id2, err := lineNORADID(lines[i+1])
		if err != nil || id2 != noradID {
			return TLE{}, errs.Errorf(errs.Tle, "NORAD %d: line 2 carries a different catalog id", noradID)
		}

		// The name is the most recent non-element line before line 1,
		// however far back; a catalog with no name lines at all gets the
		// synthetic fallback.
		name := fmt.Sprintf("NORAD %d", noradID)
		for j := i - 1; j >= 0; j-- {
			if strings.HasPrefix(lines[j], "1 ") || strings.HasPrefix(lines[j], "2 ") {
				continue
			}
			name = lines[j]
			break
		}

		t := TLE{
			NORADID: noradID,
			Name:    name,
			Line1:   line,
			Line2:   lines[i+1],
		}
		if epoch, err := parseEpoch(line); err == nil {
			t.Epoch = epoch
		}
		if err := Validate(t); err != nil {
			return TLE{}, err
		}
		return t, nil
	}

	return TLE{}, errs.Errorf(errs.Parse, "NORAD %d not found in catalog", noradID)
}

// Validate checks the assembled triple: three non-empty lines, one starting
// "1 " and one starting "2 ". Checksum verification is deliberately skipped;
// upstream catalogs occasionally publish entries with stale checksums.
func Validate(t TLE) error {
	if strings.TrimSpace(t.Name) == "" || strings.TrimSpace(t.Line1) == "" || strings.TrimSpace(t.Line2) == "" {
		return errs.Errorf(errs.Tle, "NORAD %d: record requires three non-empty lines", t.NORADID)
	}
	if !strings.HasPrefix(t.Line1, "1 ") {
		return errs.Errorf(errs.Tle, "NORAD %d: line 1 must start with \"1 \"", t.NORADID)
	}
	if !strings.HasPrefix(t.Line2, "2 ") {
		return errs.Errorf(errs.Tle, "NORAD %d: line 2 must start with \"2 \"", t.NORADID)
	}
	return nil
}

// lineNORADID extracts the catalog number from columns 3-7 of an element line.
func lineNORADID(line string) (int, error) {
	if len(line) < 7 {
		return 0, fmt.Errorf("element line too short: %q", line)
	}
	return strconv.Atoi(strings.TrimSpace(line[2:7]))
}

// parseEpoch converts the YYDDD.DDDDDDDD epoch field of line 1 to time.Time.
// Year 00-56 maps to the 2000s, 57-99 to the 1900s.
func parseEpoch(line1 string) (time.Time, error) {
	if len(line1) < 32 {
		return time.Time{}, fmt.Errorf("line 1 too short for epoch field")
	}
	s := strings.TrimSpace(line1[18:32])
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch field too short: %q", s)
	}

	year, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch year %q: %w", s[:2], err)
	}
	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	dayOfYear, err := strconv.ParseFloat(s[2:], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch day %q: %w", s[2:], err)
	}

	// dayOfYear is 1-based: day 1.0 is Jan 1 00:00.
	t := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return t.Add(time.Duration((dayOfYear - 1) * float64(24*time.Hour))), nil
}
