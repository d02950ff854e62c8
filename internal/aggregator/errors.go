package aggregator

import (
	"errors"
	"fmt"

	"github.com/neexbeast/travel-aggregator/internal/travel"
)

// ErrInfrastructure is matched by every InfrastructureError.
var ErrInfrastructure = errors.New("aggregation infrastructure failure")

// ProviderError is a reported failure isolated to one category.
type ProviderError struct {
	Category travel.Category
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider %s: %v", e.Category, e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// failure converts the error into its response descriptor.
func (e *ProviderError) failure() travel.ProviderFailure {
	return travel.ProviderFailure{
		Category: e.Category,
		Provider: e.Provider,
		Error:    e.Err.Error(),
	}
}

// InfrastructureError means a provider call crashed instead of returning an error.
// It aborts the whole aggregation.
type InfrastructureError struct {
	Category travel.Category
	Provider string
	Panic    any
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s provider %s crashed: %v", e.Category, e.Provider, e.Panic)
}

func (e *InfrastructureError) Is(target error) bool {
	return target == ErrInfrastructure
}
