package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// Instance is an EC2 instance running an F5 image.
type Instance struct {
	ID      string
	ImageID string
	// ManagementAddress is the host name or IP the device's REST API
	// listens on.
	ManagementAddress string
	Tags              map[string]string
}

// Name returns the value of the Name tag, or a placeholder.
func (i *Instance) Name() string {
	if n, err := getNameTag(i.Tags); err == nil {
		return n
	}
	return "unknown instance"
}

func (i *Instance) String() string {
	return fmt.Sprintf("%s (%s)", i.ID, i.Name())
}

func findImageIDs(ctx context.Context, svc EC2API, namePattern string) ([]string, error) {
	params := &ec2.DescribeImagesInput{
		Filters: []types.Filter{
			{
				Name:   aws.String("name"),
				Values: []string{namePattern},
			},
		},
	}

	var ids []string
	paginator := ec2.NewDescribeImagesPaginator(svc, params)
	for paginator.HasMorePages() {
		resp, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe images matching %q: %w", namePattern, err)
		}
		for _, img := range resp.Images {
			ids = append(ids, aws.ToString(img.ImageId))
		}
	}
	return ids, nil
}

// maxFilterValuesPerCall is the upper bound DescribeInstances accepts for the
// values of a single filter.
const maxFilterValuesPerCall = 200

func findRunningInstances(ctx context.Context, svc EC2API, imageIDs []string) ([]*Instance, error) {
	var instances []*Instance
	for start := 0; start < len(imageIDs); start += maxFilterValuesPerCall {
		end := min(start+maxFilterValuesPerCall, len(imageIDs))
		params := &ec2.DescribeInstancesInput{
			Filters: []types.Filter{
				{
					Name:   aws.String("image-id"),
					Values: imageIDs[start:end],
				},
				{
					Name:   aws.String("instance-state-name"),
					Values: []string{string(types.InstanceStateNameRunning)},
				},
			},
		}

		paginator := ec2.NewDescribeInstancesPaginator(svc, params)
		for paginator.HasMorePages() {
			resp, err := paginator.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to describe instances: %w", err)
			}
			for _, r := range resp.Reservations {
				for _, i := range r.Instances {
					instances = append(instances, newInstance(i))
				}
			}
		}
	}
	return instances, nil
}

func newInstance(i types.Instance) *Instance {
	return &Instance{
		ID:                aws.ToString(i.InstanceId),
		ImageID:           aws.ToString(i.ImageId),
		ManagementAddress: managementAddress(i),
		Tags:              TagsFromEC2(i.Tags),
	}
}

// managementAddress prefers the private DNS name of the first network
// interface, which is where single-NIC BIG-IP deployments expose the
// management API.
func managementAddress(i types.Instance) string {
	if len(i.NetworkInterfaces) > 0 {
		if dns := aws.ToString(i.NetworkInterfaces[0].PrivateDnsName); dns != "" {
			return dns
		}
	}
	if dns := aws.ToString(i.PrivateDnsName); dns != "" {
		return dns
	}
	return aws.ToString(i.PrivateIpAddress)
}
