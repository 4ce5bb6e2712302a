package fake

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling/types"
)

type ASGOutputs struct {
	DescribeAutoScalingGroups *APIResponse
}

// ASGClient answers DescribeAutoScalingGroups from Outputs when set, or
// else with the requested names that are present in Groups.
type ASGClient struct {
	Outputs ASGOutputs
	Groups  []string

	DescribeAutoScalingGroupsInputs []*autoscaling.DescribeAutoScalingGroupsInput
}

func (m *ASGClient) DescribeAutoScalingGroups(_ context.Context, params *autoscaling.DescribeAutoScalingGroupsInput, _ ...func(*autoscaling.Options)) (*autoscaling.DescribeAutoScalingGroupsOutput, error) {
	m.DescribeAutoScalingGroupsInputs = append(m.DescribeAutoScalingGroupsInputs, params)
	if m.Outputs.DescribeAutoScalingGroups != nil {
		out, ok := m.Outputs.DescribeAutoScalingGroups.Response().(*autoscaling.DescribeAutoScalingGroupsOutput)
		if !ok {
			return nil, m.Outputs.DescribeAutoScalingGroups.Err()
		}
		return out, m.Outputs.DescribeAutoScalingGroups.Err()
	}

	var found []string
	for _, name := range params.AutoScalingGroupNames {
		for _, g := range m.Groups {
			if g == name {
				found = append(found, name)
			}
		}
	}
	return MockDescribeAutoScalingGroupOutput(found...), nil
}

func MockDescribeAutoScalingGroupOutput(names ...string) *autoscaling.DescribeAutoScalingGroupsOutput {
	groups := make([]types.AutoScalingGroup, 0, len(names))
	for _, name := range names {
		groups = append(groups, types.AutoScalingGroup{AutoScalingGroupName: aws.String(name)})
	}
	return &autoscaling.DescribeAutoScalingGroupsOutput{AutoScalingGroups: groups}
}
