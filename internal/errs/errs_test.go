package errs

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestRendering(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{New(Tle, "line1 malformed"), "TleError: line1 malformed"},
		{Errorf(Parse, "no TLE found for NORAD ID %d", 99999), "ParseError: no TLE found for NORAD ID 99999"},
		{Wrap(Network, errors.New("connection refused")), "NetworkError: connection refused"},
	}
	for _, c := range cases {
		if got := c.err.Error(); got != c.want {
			t.Errorf("Error() = %q, want %q", got, c.want)
		}
	}
}

func TestWrapPreservesKind(t *testing.T) {
	inner := New(Calculation, "EOP data unavailable")
	outer := Wrap(Network, inner)

	if !IsKind(outer, Calculation) {
		t.Errorf("wrapped error lost its original kind: %v", outer)
	}
	if IsKind(outer, Network) {
		t.Error("Wrap must not replace an existing kind")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(Tle, nil) != nil {
		t.Error("Wrap(nil) should be nil")
	}
}

func TestErrorfWrapsCause(t *testing.T) {
	err := Errorf(Network, "fetching catalog: %w", io.ErrUnexpectedEOF)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("cause not reachable through errors.Is")
	}
	if !IsKind(err, Network) {
		t.Errorf("kind = %v, want NetworkError", err)
	}
}

func TestKindOf(t *testing.T) {
	if k, ok := KindOf(New(InvalidInput, "latitude out of range")); !ok || k != InvalidInput {
		t.Errorf("KindOf = %v, %v", k, ok)
	}
	if _, ok := KindOf(errors.New("plain")); ok {
		t.Error("plain error should have no kind")
	}
	if _, ok := KindOf(fmt.Errorf("wrapped: %w", New(Tle, "bad"))); !ok {
		t.Error("kind should survive fmt.Errorf wrapping")
	}
}
