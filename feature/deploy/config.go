package deploy

import "time"

// Config holds configuration for the deployment engine.
type Config struct {
	// StagingRoot is the local ephemeral directory holding per-request
	// staging areas.
	StagingRoot string `mapstructure:"staging_root" default:"/tmp/bucket-deployer"`

	// Skip short-circuits the whole reconciliation and reports immediate
	// success. Operator escape hatch for unblocking a stuck deployment
	// (env: DEPLOY_SKIP).
	Skip bool `mapstructure:"skip" default:"false"`

	// InvalidationWaitTimeoutSeconds bounds the wait for one invalidation
	// to complete when the action requests waiting.
	InvalidationWaitTimeoutSeconds int `mapstructure:"invalidation_wait_timeout_seconds" default:"600"`
}

// InvalidationWaitTimeout returns the per-action wait budget.
func (c Config) InvalidationWaitTimeout() time.Duration {
	if c.InvalidationWaitTimeoutSeconds <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.InvalidationWaitTimeoutSeconds) * time.Second
}
