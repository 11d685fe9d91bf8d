package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSetup         = errors.New("setup error")
	ErrDecode        = errors.New("decode error")
	ErrEncode        = errors.New("encode error")
	ErrSupplier      = errors.New("supplier resolution error")
	ErrMerge         = errors.New("merge error")
	ErrOutput        = errors.New("output error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether err must abort the whole run instead of a single asset.
func IsFatal(err error) bool {
	return errors.Is(err, ErrSetup)
}

// Reason returns a single-line, human-readable failure reason suitable for the
// run summary. The marker prefix is kept so operators can tell failure classes
// apart at a glance.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.Join(strings.Fields(err.Error()), " ")
	if msg == "" {
		return "unknown failure"
	}
	return msg
}

// Marker returns the sentinel attached to err, or nil when err carries none.
func Marker(err error) error {
	for _, marker := range []error{
		ErrSetup,
		ErrDecode,
		ErrEncode,
		ErrSupplier,
		ErrMerge,
		ErrOutput,
		ErrValidation,
		ErrConfiguration,
		ErrNotFound,
	} {
		if errors.Is(err, marker) {
			return marker
		}
	}
	return nil
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
