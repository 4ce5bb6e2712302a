package fake

import (
	"context"
	"fmt"
	"path"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

type EC2Outputs struct {
	DescribeImages         *APIResponse
	DescribeInstances      *APIResponse
	DescribeInstancesPages []*APIResponse
	CreateTags             *APIResponse
	DeleteTags             *APIResponse
}

// EC2Client serves canned Outputs when they are set. Otherwise Images and
// Instances act as an in-memory EC2, and CreateTags and DeleteTags change the
// tags of Instances.
type EC2Client struct {
	Outputs   EC2Outputs
	Images    map[string]string
	Instances []*TestInstance

	DescribeInstancesInputs []*ec2.DescribeInstancesInput
	CreateTagsInputs        []*ec2.CreateTagsInput
	DeleteTagsInputs        []*ec2.DeleteTagsInput

	pagesServed int
}

type TestInstance struct {
	Id             string
	ImageId        string
	Tags           Tags
	PrivateDnsName string
	PrivateIp      string
	// State defaults to running.
	State types.InstanceStateName
	// NoNetworkInterfaces omits the interface list so that the instance
	// level private DNS name is used.
	NoNetworkInterfaces bool
}

func (m *EC2Client) DescribeImages(_ context.Context, params *ec2.DescribeImagesInput, _ ...func(*ec2.Options)) (*ec2.DescribeImagesOutput, error) {
	if m.Outputs.DescribeImages != nil {
		out, ok := m.Outputs.DescribeImages.Response().(*ec2.DescribeImagesOutput)
		if !ok {
			return nil, m.Outputs.DescribeImages.Err()
		}
		return out, m.Outputs.DescribeImages.Err()
	}

	patterns := filterValues(params.Filters, "name")
	ids := make([]string, 0, len(m.Images))
	for id, name := range m.Images {
		for _, p := range patterns {
			if ok, _ := path.Match(p, name); ok {
				ids = append(ids, id)
				break
			}
		}
	}
	slices.Sort(ids)
	return MockDescribeImagesOutput(ids...), nil
}

func (m *EC2Client) DescribeInstances(_ context.Context, params *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	m.DescribeInstancesInputs = append(m.DescribeInstancesInputs, params)
	if len(m.Outputs.DescribeInstancesPages) != 0 {
		return m.nextInstancesPage()
	}
	if m.Outputs.DescribeInstances != nil {
		out, ok := m.Outputs.DescribeInstances.Response().(*ec2.DescribeInstancesOutput)
		if !ok {
			return nil, m.Outputs.DescribeInstances.Err()
		}
		return out, m.Outputs.DescribeInstances.Err()
	}

	imageIDs := filterValues(params.Filters, "image-id")
	states := filterValues(params.Filters, "instance-state-name")
	out := &ec2.DescribeInstancesOutput{}
	for _, i := range m.Instances {
		if imageIDs != nil && !slices.Contains(imageIDs, i.ImageId) {
			continue
		}
		if states != nil && !slices.Contains(states, string(i.state())) {
			continue
		}
		// one reservation per instance, as for separate launches
		out.Reservations = append(out.Reservations, types.Reservation{Instances: []types.Instance{i.ec2Instance()}})
	}
	return out, nil
}

func (m *EC2Client) nextInstancesPage() (*ec2.DescribeInstancesOutput, error) {
	pages := m.Outputs.DescribeInstancesPages
	idx := m.pagesServed % len(pages)
	m.pagesServed++

	resp := pages[idx]
	out, ok := resp.Response().(*ec2.DescribeInstancesOutput)
	if !ok || resp.Err() != nil {
		return nil, resp.Err()
	}
	page := *out
	page.NextToken = nil
	if idx < len(pages)-1 {
		page.NextToken = aws.String(fmt.Sprintf("page-%d", idx+1))
	}
	return &page, nil
}

func (m *EC2Client) CreateTags(_ context.Context, params *ec2.CreateTagsInput, _ ...func(*ec2.Options)) (*ec2.CreateTagsOutput, error) {
	m.CreateTagsInputs = append(m.CreateTagsInputs, params)
	if err := m.Outputs.CreateTags.Err(); err != nil {
		return nil, err
	}

	for _, id := range params.Resources {
		i := m.instance(id)
		if i == nil {
			continue
		}
		if i.Tags == nil {
			i.Tags = Tags{}
		}
		for _, t := range params.Tags {
			i.Tags[aws.ToString(t.Key)] = aws.ToString(t.Value)
		}
	}
	return &ec2.CreateTagsOutput{}, nil
}

func (m *EC2Client) DeleteTags(_ context.Context, params *ec2.DeleteTagsInput, _ ...func(*ec2.Options)) (*ec2.DeleteTagsOutput, error) {
	m.DeleteTagsInputs = append(m.DeleteTagsInputs, params)
	if err := m.Outputs.DeleteTags.Err(); err != nil {
		return nil, err
	}

	for _, id := range params.Resources {
		i := m.instance(id)
		if i == nil {
			continue
		}
		for _, t := range params.Tags {
			key := aws.ToString(t.Key)
			current, ok := i.Tags[key]
			if !ok {
				continue
			}
			// a value only deletes the tag when it matches
			if t.Value == nil || aws.ToString(t.Value) == current {
				delete(i.Tags, key)
			}
		}
	}
	return &ec2.DeleteTagsOutput{}, nil
}

func (m *EC2Client) instance(id string) *TestInstance {
	for _, i := range m.Instances {
		if i.Id == id {
			return i
		}
	}
	return nil
}

func (i *TestInstance) state() types.InstanceStateName {
	if i.State == "" {
		return types.InstanceStateNameRunning
	}
	return i.State
}

func (i *TestInstance) ec2Instance() types.Instance {
	tags := make([]types.Tag, 0, len(i.Tags))
	for k, v := range i.Tags {
		tags = append(tags, types.Tag{Key: aws.String(k), Value: aws.String(v)})
	}
	instance := types.Instance{
		InstanceId:       aws.String(i.Id),
		ImageId:          aws.String(i.ImageId),
		Tags:             tags,
		State:            &types.InstanceState{Name: i.state()},
		PrivateIpAddress: aws.String(i.PrivateIp),
		PrivateDnsName:   aws.String(i.PrivateDnsName),
	}
	if !i.NoNetworkInterfaces {
		instance.NetworkInterfaces = []types.InstanceNetworkInterface{
			{PrivateDnsName: aws.String(i.PrivateDnsName), PrivateIpAddress: aws.String(i.PrivateIp)},
		}
	}
	return instance
}

func filterValues(filters []types.Filter, name string) []string {
	for _, f := range filters {
		if aws.ToString(f.Name) == name {
			return f.Values
		}
	}
	return nil
}

func MockDescribeImagesOutput(ids ...string) *ec2.DescribeImagesOutput {
	images := make([]types.Image, 0, len(ids))
	for _, id := range ids {
		images = append(images, types.Image{ImageId: aws.String(id)})
	}
	return &ec2.DescribeImagesOutput{Images: images}
}

func MockDescribeInstancesOutput(mockedInstances ...TestInstance) *ec2.DescribeInstancesOutput {
	instances := make([]types.Instance, 0, len(mockedInstances))
	for _, i := range mockedInstances {
		instances = append(instances, i.ec2Instance())
	}
	return &ec2.DescribeInstancesOutput{Reservations: []types.Reservation{{Instances: instances}}}
}

func MockDescribeInstancesPagesOutput(e error, pageSize int, mockedInstances ...TestInstance) []*APIResponse {
	var result []*APIResponse
	for start := 0; start < len(mockedInstances); start += pageSize {
		end := min(start+pageSize, len(mockedInstances))
		result = append(result, R(MockDescribeInstancesOutput(mockedInstances[start:end]...), e))
	}
	return result
}
