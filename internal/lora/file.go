package lora

import (
	"fmt"
	"path"
	"strings"

	apperrors "kritactl/internal/errors"
)

// DefaultStrength is the strength applied to a LoRA with no stored metadata.
const DefaultStrength = 1.0

// MaxStrength is the upper bound accepted for a LoRA strength (400%).
const MaxStrength = 4.0

// FileSource indicates where a LoRA file is known from.
type FileSource string

const (
	// SourceLocal marks a file found on disk during the last scan.
	SourceLocal FileSource = "local"
	// SourceUnavailable marks a file that has stored metadata but was not
	// found during the last scan.
	SourceUnavailable FileSource = "unavailable"
)

// Validate ensures the source is one of the supported values.
func (s FileSource) Validate() error {
	switch s {
	case SourceLocal, SourceUnavailable:
		return nil
	}
	return apperrors.New(apperrors.CodeInvalidSource,
		fmt.Sprintf("invalid file source %q", string(s)), nil)
}

// File is a single LoRA model file known to the manager.
type File struct {
	// ID is the path relative to the LoRA directory, '/'-separated.
	ID string
	// Name is the display name: the base filename without its extension.
	Name string
	// Source records whether the file was present during the last scan.
	Source FileSource
	// Triggers is optional text added to the prompt when the LoRA is used.
	Triggers string
	// Strength scales the LoRA's influence; 1.0 is neutral.
	Strength float64
}

// Meta is the persisted per-file metadata.
type Meta struct {
	Triggers string
	Strength float64
}

// displayName derives the display name from a file ID.
func displayName(id string) string {
	base := path.Base(id)
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// validateStrength bounds-checks a strength value.
func validateStrength(v float64) error {
	if v < 0 || v > MaxStrength {
		return apperrors.New(apperrors.CodeInvalidStrength,
			fmt.Sprintf("strength %.2f out of range [0, %.0f]", v, MaxStrength), nil)
	}
	return nil
}
