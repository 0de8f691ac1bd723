package config

import "github.com/spf13/pflag"

// Load builds a Config from defaults, the JSON file named by --config,
// the environment and finally explicitly set flags. fs must have been
// populated by RegisterFlags and parsed.
func Load(fs *pflag.FlagSet) (*Config, error) {
	return load(fs, nil)
}

func load(fs *pflag.FlagSet, environ map[string]string) (*Config, error) {
	cfg := Defaults()

	path, err := fs.GetString(FlagConfig)
	if err != nil {
		return nil, err
	}
	if err := parseJson(cfg, path); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, environ); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, fs); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
