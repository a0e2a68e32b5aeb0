package tle

import "time"

// TLE is a validated three-line element record for one satellite: a free-form
// name line followed by the two element lines.
type TLE struct {
	NORADID int
	Name    string
	Epoch   time.Time
	Line1   string
	Line2   string
}

// Text renders the record back to its three-line wire form.
func (t TLE) Text() string {
	return t.Name + "\n" + t.Line1 + "\n" + t.Line2 + "\n"
}
