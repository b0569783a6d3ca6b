package cdn

// Config holds configuration for the CDN provider.
type Config struct {
	// Region is the AWS region for the CloudFront API.
	// CloudFront is a global service fronted by us-east-1.
	Region string `mapstructure:"region" default:"us-east-1"`
}
