package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode copies a component's free-form settings into out and validates the
// result against its `validate` tags. Numbers and strings are converted
// loosely and durations may be given as strings such as "30s".
func Decode(input map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}

	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("failed to decode settings: %w", err)
	}

	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	return nil
}
