package aws

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalando-incubator/f5-aws-autoscale-tagger/aws/fake"
)

func TestGetExistingAutoScalingGroups(t *testing.T) {
	client := &fake.ASGClient{Groups: []string{"web-asg", "api-asg"}}

	got, err := getExistingAutoScalingGroups(context.Background(), client, []string{"web-asg", "gone-asg", "api-asg"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"web-asg": true, "api-asg": true, "gone-asg": false}, got)
}

func TestGetExistingAutoScalingGroupsChunks(t *testing.T) {
	names := make([]string, 0, 120)
	for i := 0; i < 120; i++ {
		names = append(names, fmt.Sprintf("asg-%d", i))
	}
	client := &fake.ASGClient{Groups: names}

	got, err := getExistingAutoScalingGroups(context.Background(), client, names)
	require.NoError(t, err)
	assert.Len(t, got, 120)
	assert.Len(t, client.DescribeAutoScalingGroupsInputs, 3)
	for _, in := range client.DescribeAutoScalingGroupsInputs {
		assert.LessOrEqual(t, len(in.AutoScalingGroupNames), maxGroupNamesPerCall)
	}
}

func TestGetExistingAutoScalingGroupsNoNames(t *testing.T) {
	client := &fake.ASGClient{}
	got, err := getExistingAutoScalingGroups(context.Background(), client, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, client.DescribeAutoScalingGroupsInputs)
}

func TestGetExistingAutoScalingGroupsError(t *testing.T) {
	client := &fake.ASGClient{Outputs: fake.ASGOutputs{DescribeAutoScalingGroups: fake.R(nil, fake.ErrDummy)}}
	_, err := getExistingAutoScalingGroups(context.Background(), client, []string{"web-asg"})
	assert.ErrorIs(t, err, fake.ErrDummy)
}
