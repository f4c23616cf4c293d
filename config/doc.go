// Package config loads client configuration from YAML files, .env files and
// the process environment.
//
//	var cfg rest.Config
//	err := config.LoadConfig("github", &cfg, config.WithEnvPrefix("GITHUB"))
//
// Sources are layered in this order, later ones winning:
//
//   - <name>.yml (or an explicit WithConfigFile path)
//   - .env.<name> or .env, loaded into the process environment
//   - environment variables carrying the prefix, e.g. GITHUB_BASE_URL or
//     GITHUB_TRANSPORT_TIMEOUT
//
// After unmarshalling, cfg.ApplyDefaults and cfg.Validate run when cfg
// implements them.
package config
