package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/marmos91/wormfs/pkg/vfs"
	"github.com/marmos91/wormfs/pkg/vfs/ratelimit"
	"github.com/marmos91/wormfs/pkg/vfs/worm"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for complex rules
// that cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing the first validation failure.
func Validate(cfg *Config) error {
	// Run struct tag validation
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	// Custom validation rules that can't be expressed in tags
	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// Validate at least one share exists
	if len(cfg.Shares) == 0 {
		return fmt.Errorf("shares: at least one share must be configured")
	}

	// Validate share names are unique and every share resolves its store
	names := make(map[string]bool)
	for i, share := range cfg.Shares {
		if names[share.Name] {
			return fmt.Errorf("shares[%d]: duplicate share name %q", i, share.Name)
		}
		names[share.Name] = true

		if _, ok := cfg.Metadata.Stores[share.MetadataStore]; !ok {
			return fmt.Errorf("shares[%d]: metadata store %q is not configured", i, share.MetadataStore)
		}

		// Validate no layer is stacked twice on the same share
		layers := make(map[string]bool)
		for _, layer := range share.Layers {
			if layers[layer] {
				return fmt.Errorf("shares[%d]: layer %q listed twice", i, layer)
			}
			layers[layer] = true
		}

		// Layer options are checked here so a bad value fails at startup
		// rather than on the first connection.
		params := vfs.ParamMap(share.Options)
		if _, err := worm.NewPolicyConfig(params); err != nil {
			return fmt.Errorf("shares[%d]: %w", i, err)
		}
		if _, _, err := ratelimit.Limits(params); err != nil {
			return fmt.Errorf("shares[%d]: %w", i, err)
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		// Return the first validation error with context
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
