package assets

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownAssetType is returned when no loader is registered for an asset type.
	// It is a configuration error and is never retried.
	ErrUnknownAssetType = errors.New("unknown asset type")

	// ErrRetriesExhausted is returned when every attempt of a load failed
	ErrRetriesExhausted = errors.New("asset load retries exhausted")

	// ErrUnsupportedFormat is returned by loaders for content they can never
	// decode, such as a glTF 1.0 document. A load failing with it stops after
	// the failed attempt.
	ErrUnsupportedFormat = errors.New("unsupported asset format")
)

// LoadError describes a terminal asset load failure
type LoadError struct {
	// Kind is ErrUnknownAssetType, ErrUnsupportedFormat or ErrRetriesExhausted
	Kind      error
	AssetType string
	AssetKey  string
	Attempts  int

	// Err is the error of the last attempt
	Err error
}

// Error returns the error message
func (e *LoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: type %q, key %q", e.Kind, e.AssetType, e.AssetKey)
	}
	return fmt.Sprintf("%s: type %q, key %q after %d attempt(s): %v",
		e.Kind, e.AssetType, e.AssetKey, e.Attempts, e.Err)
}

// Unwrap returns both the failure kind and the cause so errors.Is matches either
func (e *LoadError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
