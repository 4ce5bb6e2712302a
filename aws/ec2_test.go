package aws

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalando-incubator/f5-aws-autoscale-tagger/aws/fake"
)

func TestFindImageIDs(t *testing.T) {
	for _, test := range []struct {
		name    string
		client  *fake.EC2Client
		want    []string
		wantErr bool
	}{
		{
			name: "matching images",
			client: &fake.EC2Client{Images: map[string]string{
				"ami-1": "F5 Networks BIGIP-15.1.8 PAYG-Best 25Mbps",
				"ami-2": "F5 Networks BIGIP-16.1.3 BYOL-All Modules",
				"ami-3": "amzn2-ami-hvm-2.0.20230404.1-x86_64-gp2",
			}},
			want: []string{"ami-1", "ami-2"},
		},
		{
			name:   "no images",
			client: &fake.EC2Client{},
			want:   nil,
		},
		{
			name:    "api error",
			client:  &fake.EC2Client{Outputs: fake.EC2Outputs{DescribeImages: fake.R(nil, fake.ErrDummy)}},
			wantErr: true,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			got, err := findImageIDs(context.Background(), test.client, DefaultImageNamePattern)
			if test.wantErr {
				assert.ErrorIs(t, err, fake.ErrDummy)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.want, got)
		})
	}
}

func TestFindRunningInstances(t *testing.T) {
	client := &fake.EC2Client{Instances: []*fake.TestInstance{
		{Id: "i-1", ImageId: "ami-1", PrivateDnsName: "ip-10-0-0-1.ec2.internal", PrivateIp: "10.0.0.1", Tags: fake.Tags{"Name": "bigip-1"}},
		{Id: "i-2", ImageId: "ami-2", PrivateDnsName: "ip-10-0-0-2.ec2.internal", PrivateIp: "10.0.0.2"},
		{Id: "i-3", ImageId: "ami-1", PrivateIp: "10.0.0.3", State: types.InstanceStateNameStopped},
		{Id: "i-4", ImageId: "ami-9", PrivateIp: "10.0.0.4"},
	}}

	got, err := findRunningInstances(context.Background(), client, []string{"ami-1", "ami-2"})
	require.NoError(t, err)
	assert.Equal(t, []*Instance{
		{ID: "i-1", ImageID: "ami-1", ManagementAddress: "ip-10-0-0-1.ec2.internal", Tags: map[string]string{"Name": "bigip-1"}},
		{ID: "i-2", ImageID: "ami-2", ManagementAddress: "ip-10-0-0-2.ec2.internal", Tags: map[string]string{}},
	}, got)
}

func TestFindRunningInstancesManyImages(t *testing.T) {
	imageIDs := make([]string, 0, 450)
	for i := 0; i < 450; i++ {
		imageIDs = append(imageIDs, fmt.Sprintf("ami-%d", i))
	}
	client := &fake.EC2Client{Instances: []*fake.TestInstance{
		{Id: "i-1", ImageId: "ami-0", PrivateIp: "10.0.0.1"},
		{Id: "i-2", ImageId: "ami-250", PrivateIp: "10.0.0.2"},
		{Id: "i-3", ImageId: "ami-449", PrivateIp: "10.0.0.3"},
	}}

	got, err := findRunningInstances(context.Background(), client, imageIDs)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, id := range []string{"i-1", "i-2", "i-3"} {
		assert.Equal(t, id, got[i].ID)
	}

	var sizes []int
	for _, in := range client.DescribeInstancesInputs {
		sizes = append(sizes, len(in.Filters[0].Values))
	}
	assert.Equal(t, []int{200, 200, 50}, sizes)
}

func TestFindRunningInstancesPages(t *testing.T) {
	instances := []fake.TestInstance{
		{Id: "i-1", ImageId: "ami-1", PrivateIp: "10.0.0.1"},
		{Id: "i-2", ImageId: "ami-1", PrivateIp: "10.0.0.2"},
		{Id: "i-3", ImageId: "ami-1", PrivateIp: "10.0.0.3"},
	}
	client := &fake.EC2Client{Outputs: fake.EC2Outputs{
		DescribeInstancesPages: fake.MockDescribeInstancesPagesOutput(nil, 2, instances...),
	}}

	got, err := findRunningInstances(context.Background(), client, []string{"ami-1"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, id := range []string{"i-1", "i-2", "i-3"} {
		assert.Equal(t, id, got[i].ID)
	}
}

func TestFindRunningInstancesEmptyReservations(t *testing.T) {
	client := &fake.EC2Client{Outputs: fake.EC2Outputs{
		DescribeInstances: fake.R(fake.MockDescribeInstancesOutput(), nil),
	}}
	got, err := findRunningInstances(context.Background(), client, []string{"ami-1"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindRunningInstancesError(t *testing.T) {
	client := &fake.EC2Client{Outputs: fake.EC2Outputs{
		DescribeInstances: fake.R(nil, fake.ErrDummy),
	}}
	_, err := findRunningInstances(context.Background(), client, []string{"ami-1"})
	assert.ErrorIs(t, err, fake.ErrDummy)
}

func TestManagementAddress(t *testing.T) {
	for _, test := range []struct {
		name     string
		instance fake.TestInstance
		want     string
	}{
		{
			name:     "network interface dns name",
			instance: fake.TestInstance{Id: "i-1", PrivateDnsName: "ip-10-0-0-1.ec2.internal", PrivateIp: "10.0.0.1"},
			want:     "ip-10-0-0-1.ec2.internal",
		},
		{
			name:     "instance dns name",
			instance: fake.TestInstance{Id: "i-1", PrivateDnsName: "ip-10-0-0-1.ec2.internal", PrivateIp: "10.0.0.1", NoNetworkInterfaces: true},
			want:     "ip-10-0-0-1.ec2.internal",
		},
		{
			name:     "private ip",
			instance: fake.TestInstance{Id: "i-1", PrivateIp: "10.0.0.1"},
			want:     "10.0.0.1",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			out := fake.MockDescribeInstancesOutput(test.instance)
			assert.Equal(t, test.want, managementAddress(out.Reservations[0].Instances[0]))
		})
	}
}

func TestInstanceName(t *testing.T) {
	assert.Equal(t, "bigip-1", (&Instance{Tags: map[string]string{"Name": "bigip-1"}}).Name())
	assert.Equal(t, "unknown instance", (&Instance{}).Name())
	assert.Equal(t, "i-1 (bigip-1)", (&Instance{ID: "i-1", Tags: map[string]string{"Name": "bigip-1"}}).String())
}
