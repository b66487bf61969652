package policy

import (
	"fmt"
	"os"

	"github.com/guillermoBallester/strata/internal/core/domain"
	"gopkg.in/yaml.v3"
)

// Load returns Default when path is empty and LoadFromFile otherwise.
func Load(path string) (*Policy, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFromFile(path)
}

// LoadFromFile reads a YAML policy file over the defaults and validates it.
// Keys absent from the file keep their default values. Every failure wraps
// domain.ErrConfiguration.
func LoadFromFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading policy file: %w", domain.ErrConfiguration, err)
	}

	pol := Default()
	if err := yaml.Unmarshal(data, pol); err != nil {
		return nil, fmt.Errorf("%w: parsing policy YAML: %w", domain.ErrConfiguration, err)
	}

	if err := validate(pol); err != nil {
		return nil, fmt.Errorf("%w: validating policy: %w", domain.ErrConfiguration, err)
	}

	return pol, nil
}

func validate(pol *Policy) error {
	if _, err := pol.EnumerationPolicy(); err != nil {
		return fmt.Errorf("enumeration: %w", err)
	}
	seen := make(map[string]bool, len(pol.Consistency.Rules))
	for i, r := range pol.Consistency.Rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("consistency.rules[%d]: %w", i, err)
		}
		if seen[r.Name] {
			return fmt.Errorf("consistency.rules[%d]: duplicate rule name %q", i, r.Name)
		}
		seen[r.Name] = true
	}
	for key, tc := range pol.Context.Tables {
		if key == "" {
			return fmt.Errorf("context.tables contains an empty key")
		}
		for col, cc := range tc.Columns {
			if col == "" {
				return fmt.Errorf("context.tables[%q].columns contains an empty key", key)
			}
			if cc.Mask != "" && !cc.Mask.Valid() {
				return fmt.Errorf("context.tables[%q].columns[%q].mask: invalid value %q (allowed: redact, hash, partial, null)", key, col, cc.Mask)
			}
		}
	}
	return nil
}
