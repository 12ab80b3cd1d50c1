// Package output centralizes terminal capability detection so every
// component renders with the same color profile.
package output

import (
	"io"

	"github.com/muesli/termenv"
)

// ColorProfile returns the detected terminal color profile, honoring
// NO_COLOR and CLICOLOR conventions.
func ColorProfile() termenv.Profile {
	return termenv.EnvColorProfile()
}

// New creates a termenv output for w using the detected profile.
func New(w io.Writer) *termenv.Output {
	return termenv.NewOutput(w, termenv.WithProfile(ColorProfile()))
}

// NewWithProfile creates a termenv output for w with an explicit profile.
// Tests use it to force deterministic rendering.
func NewWithProfile(w io.Writer, profile termenv.Profile) *termenv.Output {
	return termenv.NewOutput(w, termenv.WithProfile(profile))
}
