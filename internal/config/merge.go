package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Top-level YAML config key names used for shallow merge.
const (
	keyRewrite = "rewrite"
	keyApply   = "apply"
	keyLogging = "logging"
)

// knownTopLevelKeys lists the YAML keys that correspond to exported Config fields.
// Keys not in this list are silently ignored during merge.
//
//nolint:gochecknoglobals // Compile-time constant lookup table.
var knownTopLevelKeys = map[string]bool{
	keyRewrite: true,
	keyApply:   true,
	keyLogging: true,
}

// ShallowMergeYAML loads a YAML file and merges its top-level sections onto
// the target Config. Within a section, keys present in the overlay replace
// the target's values and absent keys keep them. Sections absent in the
// overlay are left unchanged.
func ShallowMergeYAML(target *Config, overlayPath string) error {
	if target == nil {
		return errors.New("nil target *Config in ShallowMergeYAML")
	}

	data, err := os.ReadFile(overlayPath)
	if err != nil {
		return fmt.Errorf("reading overlay file %s: %w", overlayPath, err)
	}

	var overlay map[string]interface{}
	if err = yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parsing overlay YAML from %s: %w", overlayPath, err)
	}

	// Empty or comment-only file: nothing to merge.
	if len(overlay) == 0 {
		return nil
	}

	for key, value := range overlay {
		if !knownTopLevelKeys[key] {
			continue
		}

		// Re-marshal the single section so it can be decoded onto the typed field.
		sectionBytes, marshalErr := yaml.Marshal(value)
		if marshalErr != nil {
			return fmt.Errorf("re-marshalling overlay section %q: %w", key, marshalErr)
		}

		if err = unmarshalSection(target, key, sectionBytes); err != nil {
			return fmt.Errorf("applying overlay section %q: %w", key, err)
		}
	}

	return nil
}

// unmarshalSection decodes data onto a copy of the target's section, so only
// the keys present in data change. The target is updated only on success.
func unmarshalSection(target *Config, key string, data []byte) error {
	switch key {
	case keyRewrite:
		v := target.Rewrite
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Rewrite = v
	case keyApply:
		v := target.Apply
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Apply = v
	case keyLogging:
		v := target.Logging
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Logging = v
	default:
		return fmt.Errorf("unknown config section %q", key)
	}
	return nil
}
