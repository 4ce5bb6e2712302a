package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
)

var DiscoverRegion = discoverRegion

func SetConfigLoader(loader func(context.Context, string) (aws.Config, error)) (restore func()) {
	old := configLoader
	configLoader = loader
	return func() { configLoader = old }
}
