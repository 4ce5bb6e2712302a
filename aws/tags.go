package aws

import (
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// TagsFromEC2 converts an EC2 tag list into a map. Later duplicates win.
func TagsFromEC2(tags []types.Tag) map[string]string {
	result := make(map[string]string, len(tags))
	for _, t := range tags {
		result[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}
	return result
}

// TagsToEC2 converts a tag map into an EC2 tag list sorted by key.
func TagsToEC2(tags map[string]string) []types.Tag {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]types.Tag, 0, len(tags))
	for _, k := range keys {
		result = append(result, types.Tag{Key: aws.String(k), Value: aws.String(tags[k])})
	}
	return result
}
