package tle

import (
	"strings"
	"testing"

	"github.com/pauladam316/overpass-planner/internal/errs"
)

const catalogBlob = "ISS (ZARYA)\n" +
	"1 25544U 98067A   25045.18032407  .00016717  00000+0  30099-3 0  9993\n" +
	"2 25544  51.6412 193.5765 0003457 126.2851 233.8519 15.49874301495058\n" +
	"\n" +
	"NOAA 15\n" +
	"1 25338U 98030A   25045.50000000  .00000100  00000-0  50000-4 0  9993\n" +
	"2 25338  98.7000 150.0000 0010000  90.0000 270.1000 14.26000000    08\n"

func TestFindByID(t *testing.T) {
	got, err := FindByID(25544, []byte(catalogBlob))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "ISS (ZARYA)" {
		t.Errorf("name = %q, want ISS (ZARYA)", got.Name)
	}
	if got.NORADID != 25544 {
		t.Errorf("norad id = %d, want 25544", got.NORADID)
	}
	if !strings.HasPrefix(got.Line2, "2 25544") {
		t.Errorf("line 2 = %q", got.Line2)
	}
	if got.Epoch.Year() != 2025 {
		t.Errorf("epoch year = %d, want 2025", got.Epoch.Year())
	}
}

func TestFindByIDSecondRecord(t *testing.T) {
	got, err := FindByID(25338, []byte(catalogBlob))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "NOAA 15" {
		t.Errorf("name = %q, want NOAA 15", got.Name)
	}
}

func TestFindByIDNotFound(t *testing.T) {
	_, err := FindByID(99999, []byte(catalogBlob))
	if err == nil {
		t.Fatal("expected error for unknown id")
	}
	if !errs.IsKind(err, errs.Parse) {
		t.Errorf("error kind = %v, want ParseError", err)
	}
}

func TestFindByIDMismatchedLines(t *testing.T) {
	blob := "BROKEN SAT\n" +
		"1 25544U 98067A   25045.18032407  .00016717  00000+0  30099-3 0  9993\n" +
		"2 11111  51.6412 193.5765 0003457 126.2851 233.8519 15.49874301495058\n"

	_, err := FindByID(25544, []byte(blob))
	if err == nil {
		t.Fatal("expected error for mismatched catalog ids")
	}
	if !errs.IsKind(err, errs.Tle) {
		t.Errorf("error kind = %v, want TleError", err)
	}
}

func TestFindByIDMissingLine2(t *testing.T) {
	blob := "TRUNCATED\n" +
		"1 25544U 98067A   25045.18032407  .00016717  00000+0  30099-3 0  9993\n"

	_, err := FindByID(25544, []byte(blob))
	if !errs.IsKind(err, errs.Tle) {
		t.Errorf("error kind = %v, want TleError", err)
	}
}

func TestFindByIDNoNameLine(t *testing.T) {
	// First record in the blob with no preceding name line gets a synthetic one.
	blob := "1 25544U 98067A   25045.18032407  .00016717  00000+0  30099-3 0  9993\n" +
		"2 25544  51.6412 193.5765 0003457 126.2851 233.8519 15.49874301495058\n"

	got, err := FindByID(25544, []byte(blob))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "NORAD 25544" {
		t.Errorf("name = %q, want synthetic NORAD 25544", got.Name)
	}
}

// TestFindByIDNameAcrossPrecedingRecord: when a record has no name line of
// its own, the lookup walks back past the preceding record's element lines to
// the most recent non-element line.
func TestFindByIDNameAcrossPrecedingRecord(t *testing.T) {
	blob := "ALPHA\n" +
		"1 25544U 98067A   25045.18032407  .00016717  00000+0  30099-3 0  9993\n" +
		"2 25544  51.6412 193.5765 0003457 126.2851 233.8519 15.49874301495058\n" +
		"1 25338U 98030A   25045.50000000  .00000100  00000-0  50000-4 0  9993\n" +
		"2 25338  98.7000 150.0000 0010000  90.0000 270.1000 14.26000000    08\n"

	got, err := FindByID(25338, []byte(blob))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "ALPHA" {
		t.Errorf("name = %q, want ALPHA", got.Name)
	}
}

// TestParseIdempotent: a record that parsed once always re-validates.
func TestParseIdempotent(t *testing.T) {
	got, err := FindByID(25544, []byte(catalogBlob))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Validate(got); err != nil {
		t.Errorf("validate after successful parse: %v", err)
	}

	// Re-parsing the rendered record round-trips.
	again, err := FindByID(25544, []byte(got.Text()))
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if again.Line1 != got.Line1 || again.Line2 != got.Line2 {
		t.Error("reparse produced different element lines")
	}
}

func TestValidateRejectsEmptyLines(t *testing.T) {
	bad := TLE{NORADID: 1, Name: "X", Line1: "1 00001U ...", Line2: ""}
	if err := Validate(bad); err == nil {
		t.Error("expected error for empty line 2")
	}
}
