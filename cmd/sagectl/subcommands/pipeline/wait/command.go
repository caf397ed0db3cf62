package wait

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
	"github.com/mlopshq/sagectl/pkg/loop"
	"github.com/youta-t/flarc"
)

type Flags struct {
	ArnFile  string        `flag:"arn-file" help:"file holding the execution ARN, as written by 'pipeline run'"`
	Timeout  time.Duration `flag:"timeout" help:"give up waiting after this duration"`
	Interval time.Duration `flag:"interval" help:"polling interval"`
}

const ARG_EXECUTION_ARN = "EXECUTION_ARN"

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Wait until a pipeline execution finishes.",
		Flags{
			ArnFile:  "execution_arn.txt",
			Timeout:  time.Hour,
			Interval: 30 * time.Second,
		},
		flarc.Args{
			{
				Name: ARG_EXECUTION_ARN, Required: false,
				Help: "execution ARN to wait for. When omitted, it is read from --arn-file.",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Poll the execution status until it reaches a terminal state.

Exit status is 0 only when the execution succeeded. A failed or stopped
execution, or one still running at --timeout, is an error.
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

		arn := ""
		if args := cl.Args()[ARG_EXECUTION_ARN]; 0 < len(args) {
			arn = args[0]
		}
		if arn == "" {
			a, err := handoff.LoadText(flags.ArnFile)
			if err != nil {
				logger.Printf("execution ARN is not given and not readable from %s: %s", flags.ArnFile, err)
				return flarc.ErrUsage
			}
			arn = a
		}

		cctx, cancel := context.WithTimeout(ctx, flags.Timeout)
		defer cancel()

		execution, err := loop.Start(
			cctx, platform.Execution{},
			func(ctx context.Context, prev platform.Execution) (platform.Execution, loop.Next) {
				ex, err := client.GetExecution(ctx, arn)
				if err != nil {
					return prev, loop.Break(err)
				}
				if ex.Status != prev.Status {
					logger.Printf("execution status: %s", ex.Status)
				}
				if ex.Status.Terminal() {
					return ex, loop.Break(nil)
				}
				return ex, loop.Continue(flags.Interval)
			},
		)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf(
					"%w: execution did not finish in %s ( last status: %s )",
					err, flags.Timeout, execution.Status,
				)
			}
			return err
		}

		if execution.Status != platform.ExecutionSucceeded {
			return fmt.Errorf(
				"execution finished as %s: %s",
				execution.Status, execution.FailureReason,
			)
		}

		logger.Printf("execution succeeded: %s", arn)
		return nil
	}
}
