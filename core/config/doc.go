// Package config provides configuration management for app-host.
//
// It utilizes Viper for loading configuration from environment variables and an optional
// .env file. Defaults come from the `default` struct tags of each section.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP listener, API key and admin prefix
//   - App: descriptor path, application root and reload behaviour
//   - Instances: entrypoint process launch settings (base port, shell, timeouts)
//   - Scaling: local autoscaler interval, instance cap and cooldown
//   - Static: static file source (local root or bucket)
//   - Storage: S3/MinIO credentials and bucket settings
//   - Log: Logging level and format
//   - Database: release history database
//
// Every key maps to an environment variable, e.g. app.descriptor -> APP_DESCRIPTOR.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.App.Descriptor)
package config
