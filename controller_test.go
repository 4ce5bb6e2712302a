package main

import (
	"context"
	"encoding/json"
	"io"
	"net/url"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalando-incubator/f5-aws-autoscale-tagger/aws"
	"github.com/zalando-incubator/f5-aws-autoscale-tagger/aws/fake"
	"github.com/zalando-incubator/f5-aws-autoscale-tagger/bigip"
	"github.com/zalando-incubator/f5-aws-autoscale-tagger/bigip/apitest"
)

func withArgs(t *testing.T, args ...string) {
	oldArgs := os.Args
	t.Cleanup(func() { os.Args = oldArgs })
	os.Args = append([]string{"cmd"}, args...)
}

func TestDefaultLoadSettings(t *testing.T) {
	withArgs(t, "--bigip-credentials-secret", "f5/admin")

	err := loadSettings()

	require.NoError(t, err)
	require.Equal(t, false, versionFlag)
	require.Equal(t, false, debugFlag)
	require.Equal(t, false, quietFlag)
	require.Equal(t, aws.DefaultImageNamePattern, imageNamePattern)
	require.Equal(t, uint(443), bigipPort)
	require.Equal(t, "", bigipUsername)
	require.Equal(t, "", bigipPassword)
	require.Equal(t, "f5/admin", bigipCredentialsSecret)
	require.Equal(t, "", bigipCAFile)
	require.Equal(t, false, bigipInsecure)
	require.Equal(t, 10*time.Second, bigipTimeout)
	require.Equal(t, false, dryRun)
	require.Equal(t, false, continueOnError)
	require.Equal(t, false, verifyGroups)
	require.Equal(t, 5*time.Minute, pollingInterval)
	require.Equal(t, false, runOnce)
	require.Equal(t, ":7979", metricsAddress)
	require.Equal(t, "Not set", buildstamp)
	require.Equal(t, "Not set", githash)
	require.Equal(t, "Not set", version)
}

func TestLoadSettingsFromEnvironment(t *testing.T) {
	withArgs(t)
	t.Setenv("AWS_REGION", "eu-central-1")
	t.Setenv("BIGIP_CREDENTIALS_SECRET", "f5/admin")
	t.Setenv("BIGIP_PORT", "8443")
	t.Setenv("DRY_RUN", "true")
	t.Setenv("CONTINUE_ON_ERROR", "true")
	t.Setenv("IMAGE_NAME_PATTERN", "F5 BIGIP-16*")

	require.NoError(t, loadSettings())
	assert.Equal(t, "eu-central-1", region)
	assert.Equal(t, "f5/admin", bigipCredentialsSecret)
	assert.Equal(t, uint(8443), bigipPort)
	assert.True(t, dryRun)
	assert.True(t, continueOnError)
	assert.Equal(t, "F5 BIGIP-16*", imageNamePattern)
}

func TestLoadSettingsErrors(t *testing.T) {
	for _, args := range [][]string{
		{},
		{"--bigip-username", "admin"},
		{"--bigip-password", "secret"},
		{"--bigip-username", "admin", "--bigip-password", "secret", "--polling-interval", "0s"},
		{"--bigip-username", "admin", "--bigip-password", "secret", "--bigip-port", "https"},
		{"--unknown-flag"},
	} {
		withArgs(t, args...)
		assert.Error(t, loadSettings(), "args %v", args)
	}
}

func TestLoadSettingsStaticCredentials(t *testing.T) {
	withArgs(t, "--bigip-username", "operator", "--bigip-password", "secret")
	require.NoError(t, loadSettings())
	assert.Equal(t, "operator", bigipUsername)
	assert.Equal(t, "secret", bigipPassword)
}

func TestLoadSettingsVersionOnly(t *testing.T) {
	withArgs(t, "--version")
	require.NoError(t, loadSettings())
	assert.True(t, versionFlag)
}

func TestCredentialsProvider(t *testing.T) {
	adapter := &aws.Adapter{}

	bigipCredentialsSecret = ""
	bigipUsername = "admin"
	bigipPassword = "secret"
	assert.Equal(t, bigip.StaticCredentials{Username: "admin", Password: "secret"}, credentialsProvider(adapter))

	bigipCredentialsSecret = "f5/admin"
	defer func() { bigipCredentialsSecret = "" }()
	assert.IsType(t, &aws.SecretsManagerCredentials{}, credentialsProvider(adapter))
}

func TestLambdaHandler(t *testing.T) {
	var gotRunID string
	handler := lambdaHandler(func(_ context.Context, runID string) error {
		gotRunID = runID
		return nil
	})

	ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{AwsRequestID: "req-1"})
	require.NoError(t, handler(ctx, json.RawMessage(`{"source":"aws.events"}`)))
	assert.Equal(t, "req-1", gotRunID)

	require.NoError(t, handler(context.Background(), json.RawMessage(`{}`)))
	assert.NotEmpty(t, gotRunID)
	assert.NotEqual(t, "req-1", gotRunID)
}

func logrusDiscard() log.FieldLogger {
	l := log.New()
	l.Out = io.Discard
	return l
}

func TestLogResult(t *testing.T) {
	err := logResult(logrusDiscard(), &Result{TagsCreated: 1}, nil)
	assert.NoError(t, err)

	err = logResult(logrusDiscard(), nil, assert.AnError)
	assert.Equal(t, assert.AnError, err)
}

func TestMetricsRegister(t *testing.T) {
	m := newMetrics()
	reg := prometheus.NewPedanticRegistry()
	m.register(reg)

	m.changesTotal.created(2)
	m.changesTotal.deleted(1)
	m.errorsTotal.Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.changesTotal.WithLabelValues("create")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.changesTotal.WithLabelValues("delete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorsTotal))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestNewRunner(t *testing.T) {
	s := apitest.NewTLSApiServer(t, "operator", "secret", map[string]apitest.ApiHandler{
		"GET /mgmt/tm/sys/version": apitest.JsonFromYamlHandler("bigip/testdata/version.yaml"),
		"GET /mgmt/tm/ltm/pool":    apitest.JsonFromYamlHandler("bigip/testdata/pools.yaml"),
	})
	defer s.Close()

	u, err := url.Parse(s.URL)
	require.NoError(t, err)
	port, err := strconv.ParseUint(u.Port(), 10, 32)
	require.NoError(t, err)

	oldPort, oldInsecure, oldPattern := bigipPort, bigipInsecure, imageNamePattern
	defer func() { bigipPort, bigipInsecure, imageNamePattern = oldPort, oldInsecure, oldPattern }()
	bigipPort = uint(port)
	bigipInsecure = true
	imageNamePattern = aws.DefaultImageNamePattern

	inst := &fake.TestInstance{Id: "i-1", ImageId: "ami-f5", PrivateDnsName: u.Hostname(), Tags: fake.Tags{"Name": "f5-1"}}
	ec2 := &fake.EC2Client{
		Images:    map[string]string{"ami-f5": "F5 Networks BIGIP-15.1.8"},
		Instances: []*fake.TestInstance{inst},
	}
	m := newMetrics()
	run := newRunner((&aws.Adapter{}).WithCustomEc2Client(ec2), bigip.StaticCredentials{Username: "operator", Password: "secret"}, m)

	require.NoError(t, run(context.Background(), "run-1"))
	assert.Equal(t, fake.Tags{
		"Name":        "f5-1",
		"f5:pool:web": "aws:AutoScalingGroup:web-asg",
		"f5:pool:api": "aws:AutoScalingGroup:api-asg",
	}, inst.Tags)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.changesTotal.WithLabelValues("create")))
	assert.NotZero(t, testutil.ToFloat64(m.lastSyncTimestamp))
}

func TestNewRunnerError(t *testing.T) {
	ec2 := &fake.EC2Client{Outputs: fake.EC2Outputs{DescribeImages: fake.R(nil, fake.ErrDummy)}}
	run := newRunner((&aws.Adapter{}).WithCustomEc2Client(ec2), bigip.StaticCredentials{}, newMetrics())

	assert.ErrorIs(t, run(context.Background(), "run-1"), fake.ErrDummy)
}
