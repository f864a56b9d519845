package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrSchema             = errors.New("schema violation")
	ErrDataLoad           = errors.New("dataset load failed")
	ErrInsufficientData   = errors.New("insufficient data")
	ErrModelNotLoaded     = errors.New("model not loaded")
	ErrCorruptArtifact    = errors.New("corrupt model artifact")
	ErrNotFound           = errors.New("model artifact not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrTrainingInProgress = errors.New("training already in progress")
)

// SchemaError reports missing or mistyped columns and feature keys.
type SchemaError struct {
	Missing []string
	Invalid map[string]string
}

func (e *SchemaError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing: "+strings.Join(e.Missing, ", "))
	}
	keys := make([]string, 0, len(e.Invalid))
	for k := range e.Invalid {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Invalid[k]))
	}
	if len(parts) == 0 {
		return ErrSchema.Error()
	}
	return fmt.Sprintf("%s (%s)", ErrSchema.Error(), strings.Join(parts, "; "))
}

// Unwrap lets errors.Is(err, ErrSchema) match.
func (e *SchemaError) Unwrap() error { return ErrSchema }
