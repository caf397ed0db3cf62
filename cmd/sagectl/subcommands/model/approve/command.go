package approve

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

type Flags struct {
	Results     string  `flag:"results" help:"results file written by 'pipeline results'"`
	MinAccuracy float64 `flag:"min-accuracy" help:"accuracy required to approve. 0 means the sagenv value."`
	Note        string  `flag:"note" help:"comment recorded with the approval"`
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Approve the model package a pipeline execution registered.",
		Flags{
			Results: "results.json",
		},
		flarc.Args{},
		common.NewTask(Task()),
		flarc.WithDescription(`
Approve the model package recorded in the results file, if its
evaluation accuracy reaches the threshold. An approved package is what
"model latest" and "endpoint deploy" pick up.

A results file without a model package, or without accuracy, never
approves anything.
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

		results, err := handoff.LoadResults(flags.Results)
		if err != nil {
			logger.Printf("results are not readable from %s: %s", flags.Results, err)
			return flarc.ErrUsage
		}

		if results.ModelPackageArn == "" {
			return fmt.Errorf(
				"no model package in %s: the pipeline did not register a model",
				flags.Results,
			)
		}
		if results.Accuracy == nil {
			return fmt.Errorf(
				"no accuracy in %s: refusing to approve without an evaluation report",
				flags.Results,
			)
		}

		threshold := flags.MinAccuracy
		if threshold <= 0 {
			threshold = sageEnv.ApprovalThreshold()
		}
		if *results.Accuracy < threshold {
			return fmt.Errorf(
				"accuracy %.4f is below the approval threshold %.4f",
				*results.Accuracy, threshold,
			)
		}

		description := flags.Note
		if description == "" {
			description = fmt.Sprintf(
				"accuracy %.4f passed threshold %.4f", *results.Accuracy, threshold,
			)
		}

		if err := client.SetModelApproval(
			ctx, results.ModelPackageArn, platform.ApprovalApproved, description,
		); err != nil {
			return fmt.Errorf("%w: failed to approve %s", err, results.ModelPackageArn)
		}

		logger.Printf("approved ( accuracy %.4f >= %.4f )", *results.Accuracy, threshold)
		fmt.Fprintln(cl.Stdout(), results.ModelPackageArn)
		return nil
	}
}
