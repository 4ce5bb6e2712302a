package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/zalando-incubator/f5-aws-autoscale-tagger/aws"
	"github.com/zalando-incubator/f5-aws-autoscale-tagger/bigip"
)

const lambdaRuntimeAPIEnv = "AWS_LAMBDA_RUNTIME_API"

var (
	buildstamp = "Not set"
	githash    = "Not set"
	version    = "Not set"

	versionFlag            bool
	debugFlag              bool
	quietFlag              bool
	imageNamePattern       string
	region                 string
	bigipPort              uint
	bigipUsername          string
	bigipPassword          string
	bigipCredentialsSecret string
	bigipCAFile            string
	bigipInsecure          bool
	bigipTimeout           time.Duration
	dryRun                 bool
	continueOnError        bool
	verifyGroups           bool
	pollingInterval        time.Duration
	runOnce                bool
	metricsAddress         string
)

var errMissingCredentials = errors.New("either --bigip-credentials-secret or --bigip-username and --bigip-password must be set")

func loadSettings() error {
	app := kingpin.New("f5-aws-autoscale-tagger", "Tags F5 BIG-IP EC2 instances with the Auto Scaling Groups their pools are bound to.")

	app.Flag("version", "Print version and exit").Default("false").BoolVar(&versionFlag)
	app.Flag("debug", "Enables debug logging level").Default("false").BoolVar(&debugFlag)
	app.Flag("quiet", "Enables quiet logging level, only warnings and errors are logged").Default("false").BoolVar(&quietFlag)
	app.Flag("image-name-pattern", "Name pattern of the AMIs that F5 instances are launched from.").
		Envar("IMAGE_NAME_PATTERN").Default(aws.DefaultImageNamePattern).StringVar(&imageNamePattern)
	app.Flag("region", "AWS region. Falls back to the SDK default chain and the instance metadata service.").
		Envar("AWS_REGION").Default("").StringVar(&region)
	app.Flag("bigip-port", "Port of the BIG-IP management API.").
		Envar("BIGIP_PORT").Default(fmt.Sprint(bigip.DefaultPort)).UintVar(&bigipPort)
	app.Flag("bigip-username", "Username for the BIG-IP management API.").
		Envar("BIGIP_USERNAME").Default("").StringVar(&bigipUsername)
	app.Flag("bigip-password", "Password for the BIG-IP management API.").
		Envar("BIGIP_PASSWORD").Default("").StringVar(&bigipPassword)
	app.Flag("bigip-credentials-secret", "Secrets Manager secret holding a JSON or YAML document with username and password. Takes precedence over --bigip-username and --bigip-password.").
		Envar("BIGIP_CREDENTIALS_SECRET").Default("").StringVar(&bigipCredentialsSecret)
	app.Flag("bigip-ca-file", "CA bundle used to verify the BIG-IP management certificate.").
		Envar("BIGIP_CA_FILE").Default("").StringVar(&bigipCAFile)
	app.Flag("bigip-insecure", "Skip verification of the BIG-IP management certificate.").
		Envar("BIGIP_INSECURE").Default("false").BoolVar(&bigipInsecure)
	app.Flag("bigip-timeout", "Timeout of a single BIG-IP management API request.").
		Envar("BIGIP_TIMEOUT").Default(bigip.DefaultTimeout.String()).DurationVar(&bigipTimeout)
	app.Flag("dry-run", "Log tag changes without applying them.").
		Envar("DRY_RUN").Default("false").BoolVar(&dryRun)
	app.Flag("continue-on-error", "Keep reconciling the remaining instances when one fails.").
		Envar("CONTINUE_ON_ERROR").Default("false").BoolVar(&continueOnError)
	app.Flag("verify-groups", "Warn about pools bound to Auto Scaling Groups that do not exist.").
		Envar("VERIFY_GROUPS").Default("false").BoolVar(&verifyGroups)
	app.Flag("polling-interval", "Interval between reconciliation runs when not running in Lambda.").
		Envar("POLLING_INTERVAL").Default("5m").DurationVar(&pollingInterval)
	app.Flag("once", "Run a single reconciliation and exit.").
		Envar("ONCE").Default("false").BoolVar(&runOnce)
	app.Flag("metrics-address", "Address to serve metrics on when polling.").
		Envar("METRICS_ADDRESS").Default(":7979").StringVar(&metricsAddress)

	if _, err := app.Parse(os.Args[1:]); err != nil {
		return err
	}

	if versionFlag {
		return nil
	}
	if bigipCredentialsSecret == "" && (bigipUsername == "" || bigipPassword == "") {
		return errMissingCredentials
	}
	if pollingInterval <= 0 {
		return fmt.Errorf("invalid polling interval %s", pollingInterval)
	}
	return nil
}

func configureLogging(inLambda bool) {
	if inLambda {
		log.SetFormatter(&log.JSONFormatter{})
	}
	if debugFlag {
		log.SetLevel(log.DebugLevel)
	}
	if quietFlag {
		log.SetLevel(log.WarnLevel)
	}
}

func credentialsProvider(awsAdapter *aws.Adapter) bigip.CredentialsProvider {
	if bigipCredentialsSecret != "" {
		return awsAdapter.SecretsManagerCredentials(bigipCredentialsSecret)
	}
	return bigip.StaticCredentials{Username: bigipUsername, Password: bigipPassword}
}

type runner func(ctx context.Context, runID string) error

func newRunner(awsAdapter *aws.Adapter, creds bigip.CredentialsProvider, m *metrics) runner {
	return func(ctx context.Context, runID string) error {
		logger := log.WithField("run", runID)
		r := &reconciler{
			aws:              awsAdapter,
			credentials:      creds,
			dial:             newDeviceDialer(bigipPort, bigipCAFile, bigipInsecure, bigipTimeout, logger),
			imageNamePattern: imageNamePattern,
			dryRun:           dryRun,
			continueOnError:  continueOnError,
			verifyGroups:     verifyGroups,
			metrics:          m,
			log:              logger,
		}
		result, err := r.Run(ctx)
		return logResult(logger, result, err)
	}
}

func logResult(logger log.FieldLogger, result *Result, err error) error {
	if result != nil {
		logger.WithFields(log.Fields{
			"instances": len(result.Instances),
			"created":   result.TagsCreated,
			"deleted":   result.TagsDeleted,
			"failed":    len(result.Errors),
		}).Info("reconciliation finished")
	}
	if err != nil {
		logger.Errorf("reconciliation failed: %v", err)
	}
	return err
}

func lambdaHandler(run runner) func(context.Context, json.RawMessage) error {
	return func(ctx context.Context, event json.RawMessage) error {
		runID := uuid.New().String()
		if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
			runID = lc.AwsRequestID
		}
		log.WithField("run", runID).WithField("event", string(event)).Info("received event")
		return run(ctx, runID)
	}
}

func waitForTerminationSignals(signals ...os.Signal) chan os.Signal {
	c := make(chan os.Signal, 1)
	signal.Notify(c, signals...)
	return c
}

func startPolling(ctx context.Context, run runner, interval time.Duration) {
	quit := waitForTerminationSignals(syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	for {
		// failures are logged by the runner and retried on the next tick
		_ = run(ctx, uuid.New().String())

		log.Debugf("Start polling sleep %s", interval)
		select {
		case <-quit:
			return
		case <-time.After(interval):
		}
	}
}

func main() {
	if err := loadSettings(); err != nil {
		log.Fatal(err)
	}

	if versionFlag {
		fmt.Printf(`%s
===========================
  Version: %s
  Buildtime: %s
  GitHash: %s
`, os.Args[0], version, buildstamp, githash)
		os.Exit(0)
	}

	inLambda := os.Getenv(lambdaRuntimeAPIEnv) != ""
	configureLogging(inLambda)

	ctx := context.Background()
	awsAdapter, err := aws.NewAdapter(ctx, region)
	if err != nil {
		log.Fatal(err)
	}

	log.Debug("Started F5 autoscale tagger")
	log.Infof("Version: %s, region: %s, image pattern: %q", version, awsAdapter.Region(), imageNamePattern)
	if dryRun {
		log.Warn("Dry run enabled, tags will not be changed")
	}

	m := newMetrics()
	run := newRunner(awsAdapter, credentialsProvider(awsAdapter), m)

	if inLambda {
		lambda.Start(lambdaHandler(run))
		return
	}

	if runOnce {
		if err := run(ctx, uuid.New().String()); err != nil {
			os.Exit(1)
		}
		return
	}

	go m.serve(metricsAddress)
	startPolling(ctx, run, pollingInterval)
	log.Infof("Terminating %s", os.Args[0])
}
