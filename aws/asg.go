package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
)

// maxGroupNamesPerCall is the upper bound DescribeAutoScalingGroups accepts
// for AutoScalingGroupNames.
const maxGroupNamesPerCall = 50

func getExistingAutoScalingGroups(ctx context.Context, svc AutoScalingAPI, names []string) (map[string]bool, error) {
	result := make(map[string]bool, len(names))
	for _, name := range names {
		result[name] = false
	}

	for start := 0; start < len(names); start += maxGroupNamesPerCall {
		end := min(start+maxGroupNamesPerCall, len(names))
		params := &autoscaling.DescribeAutoScalingGroupsInput{
			AutoScalingGroupNames: names[start:end],
		}

		paginator := autoscaling.NewDescribeAutoScalingGroupsPaginator(svc, params)
		for paginator.HasMorePages() {
			resp, err := paginator.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to describe auto scaling groups: %w", err)
			}
			for _, g := range resp.AutoScalingGroups {
				result[aws.ToString(g.AutoScalingGroupName)] = true
			}
		}
	}
	return result, nil
}
