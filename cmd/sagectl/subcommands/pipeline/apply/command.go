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
	"github.com/mlopshq/sagectl/pkg/pipelines"
	"github.com/youta-t/flarc"
)

type Flags struct {
	Project     string  `flag:"project" alias:"p" help:"project name. The pipeline is named <project>-pipeline."`
	Output      string  `flag:"output" alias:"o" help:"file to write the pipeline ARN to"`
	MinAccuracy float64 `flag:"min-accuracy" help:"accuracy a trained model must reach to be registered. 0 means the sagenv value."`
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Create or update the training pipeline of a project.",
		Flags{
			Output: "pipeline_arn.txt",
		},
		flarc.Args{},
		common.NewTask(Task()),
		flarc.WithDescription(`
Assemble the pipeline definition ( preprocess -> train -> evaluate ->
register, gated on evaluation accuracy ) and create the pipeline, or
update it when a pipeline with the same name already exists.

The definition expects preprocess.py and evaluate.py to be uploaded at
s3://<bucket>/<project>/code/ beforehand.

The pipeline ARN is written to --output for later commands.
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
		if flags.Project == "" {
			logger.Println("--project is required")
			return flarc.ErrUsage
		}

		bucket := prof.Bucket
		if bucket == "" {
			account, err := client.Account(ctx)
			if err != nil {
				return fmt.Errorf("%w: failed to resolve the default bucket", err)
			}
			bucket = platform.DefaultBucket(prof.Region, account)
		}

		threshold := flags.MinAccuracy
		if threshold <= 0 {
			threshold = sageEnv.RegisterThreshold()
		}

		cfg := pipelines.Config{
			ProjectName:            flags.Project,
			Region:                 prof.Region,
			RoleArn:                prof.RoleArn,
			Bucket:                 bucket,
			AccuracyThreshold:      threshold,
			ProcessingImage:        pipelines.DefaultProcessingImage(prof.Region),
			TrainingImage:          pipelines.DefaultTrainingImage(prof.Region),
			ProcessingInstanceType: sageEnv.ProcessingInstance(),
			TrainingInstanceType:   sageEnv.TrainingInstance(),
			Hyperparameters:        sageEnv.Hyperparameters,
		}

		definition, err := pipelines.Build(cfg).Marshal()
		if err != nil {
			return err
		}

		arn, err := client.UpsertPipeline(ctx, cfg.PipelineName(), prof.RoleArn, definition)
		if err != nil {
			return fmt.Errorf("%w: failed to apply pipeline %s", err, cfg.PipelineName())
		}

		if err := handoff.SaveText(flags.Output, arn); err != nil {
			return fmt.Errorf("%w: failed to write %s", err, flags.Output)
		}

		logger.Printf("pipeline %s is applied ( registering models over accuracy %.4f )", cfg.PipelineName(), threshold)
		fmt.Fprintln(cl.Stdout(), arn)
		return nil
	}
}
