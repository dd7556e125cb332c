package config

import (
	"os"
	"strings"
)

// EnvFeatures lists extra runtime features, comma separated.
const EnvFeatures = "NUBESYNC_FEATURES"

// FeatureVersionMigration enables the state migration code path.
const FeatureVersionMigration = "version_migration"

// Capabilities are the optional code paths enabled for this process.
// They are resolved once at startup.
type Capabilities struct {
	Migration bool
}

// ResolveCapabilities combines the features compiled into the build
// (comma separated), the NUBESYNC_FEATURES environment variable and the
// configuration file. Any source can enable a feature; none can disable
// one enabled by another.
func ResolveCapabilities(buildFeatures string, cfg *Config) Capabilities {
	features := parseFeatures(buildFeatures)
	for name := range parseFeatures(os.Getenv(EnvFeatures)) {
		features[name] = true
	}

	caps := Capabilities{Migration: features[FeatureVersionMigration]}
	if cfg != nil && cfg.Migration.Enabled {
		caps.Migration = true
	}
	return caps
}

func parseFeatures(raw string) map[string]bool {
	features := make(map[string]bool)
	for _, f := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' }) {
		features[strings.ToLower(f)] = true
	}
	return features
}

// Names returns the enabled feature names.
func (c Capabilities) Names() []string {
	var names []string
	if c.Migration {
		names = append(names, FeatureVersionMigration)
	}
	return names
}
