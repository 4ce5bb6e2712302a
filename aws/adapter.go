package aws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/linki/instrumented_http"
)

// EC2API is the subset of the EC2 API used by the Adapter.
type EC2API interface {
	DescribeImages(ctx context.Context, params *ec2.DescribeImagesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeImagesOutput, error)
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	CreateTags(ctx context.Context, params *ec2.CreateTagsInput, optFns ...func(*ec2.Options)) (*ec2.CreateTagsOutput, error)
	DeleteTags(ctx context.Context, params *ec2.DeleteTagsInput, optFns ...func(*ec2.Options)) (*ec2.DeleteTagsOutput, error)
}

// AutoScalingAPI is the subset of the Auto Scaling API used by the Adapter.
type AutoScalingAPI interface {
	DescribeAutoScalingGroups(ctx context.Context, params *autoscaling.DescribeAutoScalingGroupsInput, optFns ...func(*autoscaling.Options)) (*autoscaling.DescribeAutoScalingGroupsOutput, error)
}

// SecretsManagerAPI is the subset of the Secrets Manager API used to fetch
// device credentials.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// IMDSAPI is the subset of the EC2 instance metadata client used to discover
// the region when none is configured.
type IMDSAPI interface {
	GetRegion(ctx context.Context, params *imds.GetRegionInput, optFns ...func(*imds.Options)) (*imds.GetRegionOutput, error)
}

// An Adapter can be used to discover F5 instances and manage their tags.
type Adapter struct {
	ec2            EC2API
	autoscaling    AutoScalingAPI
	secretsmanager SecretsManagerAPI

	region string
}

const (
	// DefaultImageNamePattern matches the names of the AMIs published by F5 Networks.
	DefaultImageNamePattern = "F5 Networks*"

	nameTag = "Name"
)

// ErrMissingRegion is returned when no region was configured and none could be
// discovered through the instance metadata service.
var ErrMissingRegion = errors.New("unable to determine AWS region")

var configLoader = defaultConfigLoader

func defaultConfigLoader(ctx context.Context, region string) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithHTTPClient(instrumented_http.NewClient(&http.Client{}, nil)),
	}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	return config.LoadDefaultConfig(ctx, opts...)
}

// NewAdapter returns a new Adapter that talks to EC2, Auto Scaling and
// Secrets Manager in the given region. When region is empty the SDK's default
// resolution chain is used, and as a last resort the region of the EC2 host
// we are running on.
func NewAdapter(ctx context.Context, region string) (*Adapter, error) {
	cfg, err := configLoader(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if cfg.Region == "" {
		cfg.Region, err = discoverRegion(ctx, imds.NewFromConfig(cfg))
		if err != nil {
			return nil, err
		}
	}

	return &Adapter{
		ec2:            ec2.NewFromConfig(cfg),
		autoscaling:    autoscaling.NewFromConfig(cfg),
		secretsmanager: secretsmanager.NewFromConfig(cfg),
		region:         cfg.Region,
	}, nil
}

func discoverRegion(ctx context.Context, svc IMDSAPI) (string, error) {
	resp, err := svc.GetRegion(ctx, &imds.GetRegionInput{})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMissingRegion, err)
	}
	region := strings.TrimSpace(resp.Region)
	if region == "" {
		return "", ErrMissingRegion
	}
	return region, nil
}

// WithCustomEc2Client returns the receiver adapter after changing the EC2 client.
func (a *Adapter) WithCustomEc2Client(c EC2API) *Adapter {
	a.ec2 = c
	return a
}

// WithCustomAutoScalingClient returns the receiver adapter after changing the Auto Scaling client.
func (a *Adapter) WithCustomAutoScalingClient(c AutoScalingAPI) *Adapter {
	a.autoscaling = c
	return a
}

// WithCustomSecretsManagerClient returns the receiver adapter after changing the Secrets Manager client.
func (a *Adapter) WithCustomSecretsManagerClient(c SecretsManagerAPI) *Adapter {
	a.secretsmanager = c
	return a
}

// Region returns the region the adapter operates in.
func (a *Adapter) Region() string {
	return a.region
}

// FindImages returns the IDs of all images whose name matches namePattern.
// EC2 wildcards (* and ?) are supported.
func (a *Adapter) FindImages(ctx context.Context, namePattern string) ([]string, error) {
	return findImageIDs(ctx, a.ec2, namePattern)
}

// FindInstances returns all running instances launched from one of the given
// images. An empty imageIDs yields no instances without calling EC2.
func (a *Adapter) FindInstances(ctx context.Context, imageIDs []string) ([]*Instance, error) {
	if len(imageIDs) == 0 {
		return nil, nil
	}
	return findRunningInstances(ctx, a.ec2, imageIDs)
}

// CreateTags adds or overwrites the given tags on an instance.
func (a *Adapter) CreateTags(ctx context.Context, instanceID string, tags map[string]string) error {
	if len(tags) == 0 {
		return nil
	}
	_, err := a.ec2.CreateTags(ctx, &ec2.CreateTagsInput{
		Resources: []string{instanceID},
		Tags:      TagsToEC2(tags),
	})
	if err != nil {
		return fmt.Errorf("failed to create tags on %s: %w", instanceID, err)
	}
	return nil
}

// DeleteTags removes the given tags from an instance. A tag is only removed
// when its current value matches.
func (a *Adapter) DeleteTags(ctx context.Context, instanceID string, tags map[string]string) error {
	if len(tags) == 0 {
		return nil
	}
	_, err := a.ec2.DeleteTags(ctx, &ec2.DeleteTagsInput{
		Resources: []string{instanceID},
		Tags:      TagsToEC2(tags),
	})
	if err != nil {
		return fmt.Errorf("failed to delete tags from %s: %w", instanceID, err)
	}
	return nil
}

// ExistingAutoScalingGroups reports which of the given names refer to an
// existing Auto Scaling Group.
func (a *Adapter) ExistingAutoScalingGroups(ctx context.Context, names []string) (map[string]bool, error) {
	return getExistingAutoScalingGroups(ctx, a.autoscaling, names)
}

// SecretsManagerCredentials returns a credentials provider backed by the
// given Secrets Manager secret.
func (a *Adapter) SecretsManagerCredentials(secretID string) *SecretsManagerCredentials {
	return NewSecretsManagerCredentials(a.secretsmanager, secretID)
}

func getNameTag(tags map[string]string) (string, error) {
	if name, ok := tags[nameTag]; ok {
		return name, nil
	}
	return "", ErrMissingNameTag
}

// ErrMissingNameTag is used to signal that the Name tag on a given resource is missing.
var ErrMissingNameTag = errors.New("Name tag not found")
