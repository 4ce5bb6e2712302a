package main

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/zalando-incubator/f5-aws-autoscale-tagger/aws"
	"github.com/zalando-incubator/f5-aws-autoscale-tagger/bigip"
	"github.com/zalando-incubator/f5-aws-autoscale-tagger/problem"
)

const (
	poolTagPrefix          = "f5:pool:"
	autoScalingGroupPrefix = "aws:AutoScalingGroup:"
)

// deviceClient is a session with the management API of one device.
type deviceClient interface {
	Open(ctx context.Context) (string, error)
	Pools(ctx context.Context) ([]bigip.Pool, error)
	Close()
}

type deviceDialer func(address string, creds bigip.Credentials) (deviceClient, error)

func newDeviceDialer(port uint, caFile string, insecure bool, timeout time.Duration, logger log.FieldLogger) deviceDialer {
	return func(address string, creds bigip.Credentials) (deviceClient, error) {
		cfg := bigip.NewConfig(address, port, creds)
		cfg.CAFile = caFile
		cfg.Insecure = insecure
		cfg.Timeout = timeout
		c, err := bigip.NewClient(cfg, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

type reconciler struct {
	aws              *aws.Adapter
	credentials      bigip.CredentialsProvider
	dial             deviceDialer
	imageNamePattern string
	dryRun           bool
	continueOnError  bool
	verifyGroups     bool
	metrics          *metrics
	log              log.FieldLogger
}

// Result summarizes a reconciliation pass.
type Result struct {
	Instances   []*InstanceResult
	TagsCreated int
	TagsDeleted int
	Errors      []error
}

// InstanceResult holds the tag changes made on one instance.
type InstanceResult struct {
	ID      string
	Created map[string]string
	Deleted map[string]string
	// UnknownGroups lists referenced Auto Scaling Groups that do not exist.
	UnknownGroups []string
}

// Run performs one pass over all running F5 instances. Without
// continueOnError the first failure aborts the pass.
func (r *reconciler) Run(ctx context.Context) (*Result, error) {
	r.log.Debug("getting list of F5 images...")
	imageIDs, err := r.aws.FindImages(ctx, r.imageNamePattern)
	if err != nil {
		return nil, err
	}
	r.log.Debugf("found %d images matching %q", len(imageIDs), r.imageNamePattern)

	r.log.Debug("getting list of F5 instances...")
	instances, err := r.aws.FindInstances(ctx, imageIDs)
	if err != nil {
		return nil, err
	}
	r.log.Infof("found %d F5 instances", len(instances))
	r.metrics.instancesTotal.Set(float64(len(instances)))

	result := &Result{}
	var problems problem.List
	for _, inst := range instances {
		ir, err := r.reconcileInstance(ctx, inst)
		if err != nil {
			r.metrics.errorsTotal.Inc()
			if !r.continueOnError {
				return result, fmt.Errorf("instance %s: %w", inst.ID, err)
			}
			r.log.WithField("instance", inst.ID).Errorf("failed to reconcile tags: %v", err)
			problems.Add("instance %s: %w", inst.ID, err)
			continue
		}
		result.Instances = append(result.Instances, ir)
		result.TagsCreated += len(ir.Created)
		result.TagsDeleted += len(ir.Deleted)
	}
	result.Errors = problems.Errors()

	if err := problems.Err(); err != nil {
		return result, err
	}
	r.metrics.lastSyncTimestamp.SetToCurrentTime()
	r.log.Debug("complete")
	return result, nil
}

func (r *reconciler) reconcileInstance(ctx context.Context, inst *aws.Instance) (*InstanceResult, error) {
	logger := r.log.WithField("instance", inst.ID)
	logger.WithField("image", inst.ImageID).Debugf("reconciling %s", inst)

	creds, err := r.credentials.Credentials(ctx, inst.ManagementAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to get device credentials: %w", err)
	}

	logger.Debugf("connecting to F5 API at %s...", inst.ManagementAddress)
	device, err := r.dial(inst.ManagementAddress, creds)
	if err != nil {
		return nil, err
	}
	defer device.Close()
	if _, err := device.Open(ctx); err != nil {
		return nil, err
	}

	logger.Debug("getting list of pools...")
	pools, err := device.Pools(ctx)
	if err != nil {
		return nil, err
	}

	desired := desiredTags(pools)
	result := &InstanceResult{
		ID:      inst.ID,
		Created: tagsToCreate(inst.Tags, desired),
		Deleted: staleTags(inst.Tags, desired),
	}

	if r.verifyGroups {
		result.UnknownGroups = r.unknownGroups(ctx, logger, pools)
	}

	for k, v := range result.Created {
		logger.WithField("tag", k).Infof("adding tag with value %q", v)
	}
	for k := range result.Deleted {
		logger.WithField("tag", k).Info("removing stale tag")
	}
	if r.dryRun {
		logger.Debug("dry run, not changing tags")
		return result, nil
	}

	logger.Debug("adding tags...")
	if err := r.aws.CreateTags(ctx, inst.ID, result.Created); err != nil {
		return nil, err
	}
	r.metrics.changesTotal.created(len(result.Created))

	logger.Debug("removing tags if necessary...")
	if err := r.aws.DeleteTags(ctx, inst.ID, result.Deleted); err != nil {
		return nil, err
	}
	r.metrics.changesTotal.deleted(len(result.Deleted))

	logger.Debug("completed")
	return result, nil
}

// unknownGroups only reports. Lookup failures are logged and ignored since
// they never change the tag set.
func (r *reconciler) unknownGroups(ctx context.Context, logger log.FieldLogger, pools []bigip.Pool) []string {
	var names []string
	for _, p := range pools {
		if p.AutoscaleGroupID != "" && !slices.Contains(names, p.AutoscaleGroupID) {
			names = append(names, p.AutoscaleGroupID)
		}
	}
	if len(names) == 0 {
		return nil
	}

	existing, err := r.aws.ExistingAutoScalingGroups(ctx, names)
	if err != nil {
		logger.Warnf("unable to verify auto scaling groups: %v", err)
		return nil
	}

	var unknown []string
	for _, p := range pools {
		if p.AutoscaleGroupID == "" || existing[p.AutoscaleGroupID] {
			continue
		}
		logger.WithField("pool", p.String()).Warnf("pool references unknown auto scaling group %q", p.AutoscaleGroupID)
		if !slices.Contains(unknown, p.AutoscaleGroupID) {
			unknown = append(unknown, p.AutoscaleGroupID)
		}
	}
	return unknown
}

// desiredTags maps every pool bound to an Auto Scaling Group to its tag.
func desiredTags(pools []bigip.Pool) map[string]string {
	tags := make(map[string]string)
	for _, p := range pools {
		if p.AutoscaleGroupID == "" {
			continue
		}
		tags[poolTagPrefix+p.Name] = autoScalingGroupPrefix + p.AutoscaleGroupID
	}
	return tags
}

// tagsToCreate returns the desired tags that are missing or differ.
func tagsToCreate(existing, desired map[string]string) map[string]string {
	tags := make(map[string]string)
	for k, v := range desired {
		if cur, ok := existing[k]; !ok || cur != v {
			tags[k] = v
		}
	}
	return tags
}

// staleTags returns the existing pool tags that are not desired.
func staleTags(existing, desired map[string]string) map[string]string {
	tags := make(map[string]string)
	for k, v := range existing {
		if !strings.HasPrefix(k, poolTagPrefix) {
			continue
		}
		if _, ok := desired[k]; !ok {
			tags[k] = v
		}
	}
	return tags
}
