package protocol

import (
	"errors"
	"fmt"
)

var ErrConfiguration = errors.New("configuration error")

// ConfigurationError is returned from Init when a component is not usable as
// configured. It surfaces before any message is accepted.
type ConfigurationError struct {
	Component string
	Field     string
	Err       error
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: invalid %s: %v", e.Component, e.Field, e.Err)
	}

	return fmt.Sprintf("%s: %v", e.Component, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func NewConfigurationError(component, field string, err error) *ConfigurationError {
	return &ConfigurationError{Component: component, Field: field, Err: err}
}

func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError

	return errors.As(err, &cfgErr)
}
