package deploy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mlopshq/sagectl/cmd/sagectl/config/profiles"
	"github.com/mlopshq/sagectl/cmd/sagectl/env"
	"github.com/mlopshq/sagectl/cmd/sagectl/handoff"
	"github.com/mlopshq/sagectl/cmd/sagectl/platform"
	"github.com/mlopshq/sagectl/cmd/sagectl/subcommands/common"
	"github.com/youta-t/flarc"
)

// VariantName is the production variant every deployed endpoint serves
// all its traffic on.
const VariantName = "AllTraffic"

const (
	scaleInCooldownSeconds  = 300
	scaleOutCooldownSeconds = 60
)

type Flags struct {
	ModelPackage  string `flag:"model-package" help:"ARN of the model package to deploy. When omitted, it is read from --arn-file."`
	ArnFile       string `flag:"arn-file" help:"file holding the model package ARN, as written by 'model latest'"`
	InstanceType  string `flag:"instance-type" help:"instance type of the endpoint. Default: the sagenv value."`
	InstanceCount int    `flag:"instance-count" help:"number of instances behind the endpoint"`
	Output        string `flag:"output" alias:"o" help:"file to write the endpoint name to"`

	Autoscale         bool    `flag:"autoscale" help:"attach a target-tracking autoscaling policy to the endpoint"`
	MinCapacity       int     `flag:"min-capacity" help:"autoscaling lower bound"`
	MaxCapacity       int     `flag:"max-capacity" help:"autoscaling upper bound"`
	TargetInvocations float64 `flag:"target-invocations" help:"invocations per instance the autoscaler keeps"`
}

const ARG_ENDPOINT_NAME = "ENDPOINT_NAME"

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Deploy a model package to an inference endpoint.",
		Flags{
			ArnFile:           "model_package_arn.txt",
			InstanceCount:     1,
			Output:            "endpoint_name.txt",
			MinCapacity:       1,
			MaxCapacity:       10,
			TargetInvocations: 70,
		},
		flarc.Args{
			{
				Name: ARG_ENDPOINT_NAME, Required: true,
				Help: "name of the endpoint to create or update",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Create a model and an endpoint configuration from the model package,
then create the endpoint, or update it in place when it already exists.
Data capture is always on; captured traffic feeds "monitor apply".

Deployment is asynchronous. Use "endpoint wait" to block until the
endpoint is in service.
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
		endpointName := cl.Args()[ARG_ENDPOINT_NAME][0]

		packageArn := flags.ModelPackage
		if packageArn == "" {
			arn, err := handoff.LoadText(flags.ArnFile)
			if err != nil {
				logger.Printf("model package ARN is not given and not readable from %s: %s", flags.ArnFile, err)
				return flarc.ErrUsage
			}
			packageArn = arn
		}

		instanceType := flags.InstanceType
		if instanceType == "" {
			instanceType = sageEnv.InferenceInstance()
		}

		bucket := prof.Bucket
		if bucket == "" {
			account, err := client.Account(ctx)
			if err != nil {
				return fmt.Errorf("%w: failed to resolve the data capture bucket", err)
			}
			bucket = platform.DefaultBucket(prof.Region, account)
		}

		stamp := time.Now().Unix()
		modelName := fmt.Sprintf("%s-model-%d", endpointName, stamp)
		configName := fmt.Sprintf("%s-config-%d", endpointName, stamp)

		if err := client.CreateModel(ctx, modelName, packageArn, prof.RoleArn); err != nil {
			return fmt.Errorf("%w: failed to create model %s", err, modelName)
		}
		logger.Printf("model %s is created from %s", modelName, packageArn)

		if err := client.CreateEndpointConfig(ctx, platform.EndpointConfig{
			Name:            configName,
			VariantName:     VariantName,
			ModelName:       modelName,
			InstanceType:    instanceType,
			InstanceCount:   int32(flags.InstanceCount),
			CaptureS3Uri:    fmt.Sprintf("s3://%s/%s/datacapture", bucket, endpointName),
			CaptureSampling: sageEnv.CaptureSamplingPercent(),
		}); err != nil {
			return fmt.Errorf("%w: failed to create endpoint config %s", err, configName)
		}

		_, err := client.GetEndpoint(ctx, endpointName)
		switch {
		case err == nil:
			if err := client.UpdateEndpoint(ctx, endpointName, configName); err != nil {
				return fmt.Errorf("%w: failed to update endpoint %s", err, endpointName)
			}
			logger.Printf("endpoint %s is updating to config %s", endpointName, configName)
		case errors.Is(err, platform.ErrNotFound):
			if err := client.CreateEndpoint(ctx, endpointName, configName); err != nil {
				return fmt.Errorf("%w: failed to create endpoint %s", err, endpointName)
			}
			logger.Printf("endpoint %s is creating with config %s", endpointName, configName)
		default:
			return fmt.Errorf("%w: failed to inspect endpoint %s", err, endpointName)
		}

		if flags.Autoscale {
			if err := client.EnableAutoscaling(ctx, platform.AutoscalingPolicy{
				EndpointName:                 endpointName,
				VariantName:                  VariantName,
				MinCapacity:                  int32(flags.MinCapacity),
				MaxCapacity:                  int32(flags.MaxCapacity),
				TargetInvocationsPerInstance: flags.TargetInvocations,
				ScaleInCooldown:              scaleInCooldownSeconds,
				ScaleOutCooldown:             scaleOutCooldownSeconds,
			}); err != nil {
				return fmt.Errorf("%w: failed to enable autoscaling on %s", err, endpointName)
			}
			logger.Printf(
				"autoscaling %d..%d instances, targeting %.1f invocations/instance",
				flags.MinCapacity, flags.MaxCapacity, flags.TargetInvocations,
			)
		}

		if err := handoff.SaveText(flags.Output, endpointName); err != nil {
			return fmt.Errorf("%w: failed to write %s", err, flags.Output)
		}
		fmt.Fprintln(cl.Stdout(), endpointName)
		return nil
	}
}
