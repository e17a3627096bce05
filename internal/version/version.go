// Package version exposes the build version embedded at release time.
package version

import (
	_ "embed"
	"strings"
)

//go:embed COMMIT
var commit string

//go:embed VERSION
var number string

func Commit() string {
	return strings.TrimSpace(commit)
}

func Number() string {
	return strings.TrimSpace(number)
}

// String returns the version and commit in the form printed by the version command.
func String() string {
	c := Commit()
	if c == "" {
		c = "unknown"
	}
	return Number() + " (" + c + ")"
}
