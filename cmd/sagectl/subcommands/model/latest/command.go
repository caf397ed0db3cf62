package latest

import (
	"context"
	"errors"
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
	Project string `flag:"project" alias:"p" help:"project name. Packages are looked up in <project>-model-group."`
	Status  string `flag:"status" help:"approval status to filter by: Approved, PendingManualApproval or Rejected"`
	Output  string `flag:"output" alias:"o" help:"file to write the model package ARN to"`
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Show the newest model package of a project.",
		Flags{
			Status: string(platform.ApprovalApproved),
			Output: "model_package_arn.txt",
		},
		flarc.Args{},
		common.NewTask(Task()),
		flarc.WithDescription(`
Look the newest model package with the given approval status up in the
project's model package group.

The package ARN is written to --output; "endpoint deploy" reads it.
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

		var status platform.ApprovalStatus
		switch s := platform.ApprovalStatus(flags.Status); s {
		case platform.ApprovalApproved, platform.ApprovalPending, platform.ApprovalRejected:
			status = s
		default:
			logger.Printf("unknown approval status: %s", flags.Status)
			return flarc.ErrUsage
		}

		group := pipelines.Config{ProjectName: flags.Project}.ModelPackageGroup()
		arn, err := client.LatestModelPackage(ctx, group, status)
		if err != nil {
			if errors.Is(err, platform.ErrNotFound) {
				return fmt.Errorf("%w: no %s model package in %s", err, status, group)
			}
			return err
		}

		if err := handoff.SaveText(flags.Output, arn); err != nil {
			return fmt.Errorf("%w: failed to write %s", err, flags.Output)
		}

		logger.Printf("newest %s package of %s: %s", status, group, arn)
		fmt.Fprintln(cl.Stdout(), arn)
		return nil
	}
}
