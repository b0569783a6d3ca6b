// Package config provides configuration management for the bucket deployer.
//
// It utilizes Viper for loading configuration from environment variables
// and an optional .env file, with defaults taken from struct tags.
//
// # Configuration Structure
//
// The Config struct is the central repository for all settings, divided
// into subsections:
//   - Storage: S3/MinIO credentials and endpoint settings
//   - CDN: CloudFront invalidation client settings
//   - Callback: orchestrator callback delivery timeouts
//   - Deploy: staging root, skip flag, invalidation wait budget
//   - Log: logging level and format
//
// Environment variables map to nested keys with "_" as the separator,
// e.g. DEPLOY_SKIP=true sets deploy.skip.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Deploy.StagingRoot)
package config
