package mock

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/zalando-incubator/f5-aws-autoscale-tagger/aws"

	"github.com/stretchr/testify/mock"
)

// AutoScalingAPI is a mock implementation of [aws.AutoScalingAPI]
type AutoScalingAPI struct {
	mock.Mock
}

var _ aws.AutoScalingAPI = &AutoScalingAPI{}

func (m *AutoScalingAPI) DescribeAutoScalingGroups(ctx context.Context, params *autoscaling.DescribeAutoScalingGroupsInput, optFns ...func(*autoscaling.Options)) (*autoscaling.DescribeAutoScalingGroupsOutput, error) {
	args := m.Called(ctx, params, optFns)
	return args.Get(0).(*autoscaling.DescribeAutoScalingGroupsOutput), args.Error(1)
}

// EC2API is a mock implementation of [aws.EC2API]
type EC2API struct {
	mock.Mock
}

var _ aws.EC2API = &EC2API{}

func (m *EC2API) DescribeImages(ctx context.Context, params *ec2.DescribeImagesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeImagesOutput, error) {
	args := m.Called(ctx, params, optFns)
	return args.Get(0).(*ec2.DescribeImagesOutput), args.Error(1)
}

func (m *EC2API) DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	args := m.Called(ctx, params, optFns)
	return args.Get(0).(*ec2.DescribeInstancesOutput), args.Error(1)
}

func (m *EC2API) CreateTags(ctx context.Context, params *ec2.CreateTagsInput, optFns ...func(*ec2.Options)) (*ec2.CreateTagsOutput, error) {
	args := m.Called(ctx, params, optFns)
	return args.Get(0).(*ec2.CreateTagsOutput), args.Error(1)
}

func (m *EC2API) DeleteTags(ctx context.Context, params *ec2.DeleteTagsInput, optFns ...func(*ec2.Options)) (*ec2.DeleteTagsOutput, error) {
	args := m.Called(ctx, params, optFns)
	return args.Get(0).(*ec2.DeleteTagsOutput), args.Error(1)
}

// SecretsManagerAPI is a mock implementation of [aws.SecretsManagerAPI]
type SecretsManagerAPI struct {
	mock.Mock
}

var _ aws.SecretsManagerAPI = &SecretsManagerAPI{}

func (m *SecretsManagerAPI) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	args := m.Called(ctx, params, optFns)
	return args.Get(0).(*secretsmanager.GetSecretValueOutput), args.Error(1)
}

// IMDSAPI is a mock implementation of [aws.IMDSAPI]
type IMDSAPI struct {
	mock.Mock
}

var _ aws.IMDSAPI = &IMDSAPI{}

func (m *IMDSAPI) GetRegion(ctx context.Context, params *imds.GetRegionInput, optFns ...func(*imds.Options)) (*imds.GetRegionOutput, error) {
	args := m.Called(ctx, params, optFns)
	return args.Get(0).(*imds.GetRegionOutput), args.Error(1)
}
