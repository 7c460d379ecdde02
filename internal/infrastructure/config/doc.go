// Package config handles loading and validating pairgen configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Loading a .env file before environment overrides are read
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Broker passwords and InfluxDB tokens should be set via environment variables
//   - The lockdown directory holds pairing credentials; pairgen only reads it
//
// Usage:
//
//	if err := config.LoadDotEnv(".env"); err != nil {
//	    return err
//	}
//	cfg, err := config.LoadOptional("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Transport.LockdownDir)
package config
