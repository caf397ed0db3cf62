package apply

import (
	"context"
	"fmt"
	"log"

	"github.com/mlopshq/sagectl/cmd/sagectl/config/profiles"
	"github.com/mlopshq/sagectl/cmd/sagectl/env"
	"github.com/mlopshq/sagectl/cmd/sagectl/handoff"
	"github.com/mlopshq/sagectl/cmd/sagectl/platform"
	"github.com/mlopshq/sagectl/cmd/sagectl/subcommands/common"
	"github.com/youta-t/flarc"
)

// DefaultSchedule runs the monitoring job at the top of every hour.
const DefaultSchedule = "cron(0 * * * ? *)"

// DefaultImage is the model-monitor analyzer container for the region.
func DefaultImage(region string) string {
	return fmt.Sprintf("156813124566.dkr.ecr.%s.amazonaws.com/sagemaker-model-monitor-analyzer", region)
}

type Flags struct {
	Endpoint     string `flag:"endpoint" help:"endpoint name. When omitted, it is read from --name-file."`
	NameFile     string `flag:"name-file" help:"file holding the endpoint name, as written by 'endpoint deploy'"`
	Schedule     string `flag:"schedule" help:"cron expression of the monitoring job"`
	InstanceType string `flag:"instance-type" help:"instance type of the monitoring job"`
	Image        string `flag:"image" help:"analyzer container image. Default: the regional model-monitor analyzer."`
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Set up a recurring monitoring schedule on an endpoint.",
		Flags{
			NameFile:     "endpoint_name.txt",
			Schedule:     DefaultSchedule,
			InstanceType: "ml.m5.xlarge",
		},
		flarc.Args{},
		common.NewTask(Task()),
		flarc.WithDescription(`
Register the monitoring schedule <endpoint>-monitor, analyzing the
traffic captured by "endpoint deploy". An already-registered schedule
is left as is.

The analysis itself runs on the platform; this command only registers
the schedule.
`),
	)
}

func Task() common.Task[Flags] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		prof profiles.Profile,
		sageEnv env.SageEnv,
		client platform.Client,
		cl flarc.Commandline[Flags],
		params []any,
	) error {
		flags := cl.Flags()

		endpointName := flags.Endpoint
		if endpointName == "" {
			n, err := handoff.LoadText(flags.NameFile)
			if err != nil {
				logger.Printf("endpoint name is not given and not readable from %s: %s", flags.NameFile, err)
				return flarc.ErrUsage
			}
			endpointName = n
		}

		name := endpointName + "-monitor"

		exists, err := client.MonitoringScheduleExists(ctx, name)
		if err != nil {
			return fmt.Errorf("%w: failed to look monitoring schedule %s up", err, name)
		}
		if exists {
			logger.Printf("monitoring schedule %s already exists", name)
			return nil
		}

		bucket := prof.Bucket
		if bucket == "" {
			account, err := client.Account(ctx)
			if err != nil {
				return fmt.Errorf("%w: failed to resolve the monitoring output bucket", err)
			}
			bucket = platform.DefaultBucket(prof.Region, account)
		}

		image := flags.Image
		if image == "" {
			image = DefaultImage(prof.Region)
		}

		if err := client.CreateMonitoringSchedule(ctx, platform.MonitoringSchedule{
			Name:               name,
			EndpointName:       endpointName,
			ScheduleExpression: flags.Schedule,
			OutputS3Uri:        fmt.Sprintf("s3://%s/%s/monitoring", bucket, endpointName),
			ImageUri:           image,
			RoleArn:            prof.RoleArn,
			InstanceType:       flags.InstanceType,
			InstanceCount:      1,
			VolumeSizeInGB:     20,
			// The analyzer reads the captured traffic from these well-known
			// locations inside the processing container.
			Environment: map[string]string{
				"dataset_format":             `{"sagemakerCaptureJson": {"captureIndexNames": ["endpointInput", "endpointOutput"]}}`,
				"dataset_source":             "/opt/ml/processing/input/endpoint",
				"output_path":                "/opt/ml/processing/output",
				"publish_cloudwatch_metrics": "Enabled",
			},
		}); err != nil {
			return fmt.Errorf("%w: failed to create monitoring schedule %s", err, name)
		}

		logger.Printf("monitoring schedule %s is created ( %s )", name, flags.Schedule)
		fmt.Fprintln(cl.Stdout(), name)
		return nil
	}
}
