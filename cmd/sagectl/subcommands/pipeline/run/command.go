package run

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mlopshq/sagectl/cmd/sagectl/config/profiles"
	"github.com/mlopshq/sagectl/cmd/sagectl/env"
	"github.com/mlopshq/sagectl/cmd/sagectl/handoff"
	"github.com/mlopshq/sagectl/cmd/sagectl/platform"
	"github.com/mlopshq/sagectl/cmd/sagectl/subcommands/common"
	"github.com/mlopshq/sagectl/pkg/pipelines"
	"github.com/youta-t/flarc"
)

type Flags struct {
	Project string `flag:"project" alias:"p" help:"project name. The pipeline <project>-pipeline is executed."`
	Name    string `flag:"name" help:"display name of the execution. Default: run-<timestamp>"`
	Output  string `flag:"output" alias:"o" help:"file to write the execution ARN to"`
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Start an execution of the training pipeline.",
		Flags{
			Output: "execution_arn.txt",
		},
		flarc.Args{},
		common.NewTask(Task()),
		flarc.WithDescription(`
Start an execution of the project's pipeline and return immediately.
Use "pipeline wait" to block until the execution finishes.

The execution ARN is written to --output for later commands.
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

		displayName := flags.Name
		if displayName == "" {
			displayName = fmt.Sprintf("run-%d", time.Now().Unix())
		}

		pipelineName := pipelines.Config{ProjectName: flags.Project}.PipelineName()
		arn, err := client.StartExecution(ctx, pipelineName, displayName)
		if err != nil {
			return fmt.Errorf("%w: failed to start execution of %s", err, pipelineName)
		}

		if err := handoff.SaveText(flags.Output, arn); err != nil {
			return fmt.Errorf("%w: failed to write %s", err, flags.Output)
		}

		logger.Printf("execution %s of %s is started", displayName, pipelineName)
		fmt.Fprintln(cl.Stdout(), arn)
		return nil
	}
}
