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
	NameFile string        `flag:"name-file" help:"file holding the endpoint name, as written by 'endpoint deploy'"`
	Timeout  time.Duration `flag:"timeout" help:"give up waiting after this duration"`
	Interval time.Duration `flag:"interval" help:"polling interval"`
}

const ARG_ENDPOINT_NAME = "ENDPOINT_NAME"

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Wait until an endpoint is in service.",
		Flags{
			NameFile: "endpoint_name.txt",
			Timeout:  15 * time.Minute,
			Interval: 30 * time.Second,
		},
		flarc.Args{
			{
				Name: ARG_ENDPOINT_NAME, Required: false,
				Help: "endpoint name to wait for. When omitted, it is read from --name-file.",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Poll the endpoint status until it is InService.

A Failed endpoint, or one still creating or updating at --timeout, is
an error.
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

		name := ""
		if args := cl.Args()[ARG_ENDPOINT_NAME]; 0 < len(args) {
			name = args[0]
		}
		if name == "" {
			n, err := handoff.LoadText(flags.NameFile)
			if err != nil {
				logger.Printf("endpoint name is not given and not readable from %s: %s", flags.NameFile, err)
				return flarc.ErrUsage
			}
			name = n
		}

		cctx, cancel := context.WithTimeout(ctx, flags.Timeout)
		defer cancel()

		endpoint, err := loop.Start(
			cctx, platform.Endpoint{},
			func(ctx context.Context, prev platform.Endpoint) (platform.Endpoint, loop.Next) {
				ep, err := client.GetEndpoint(ctx, name)
				if err != nil {
					return prev, loop.Break(err)
				}
				if ep.Status != prev.Status {
					logger.Printf("endpoint status: %s", ep.Status)
				}
				switch ep.Status {
				case platform.EndpointInService, platform.EndpointFailed:
					return ep, loop.Break(nil)
				}
				return ep, loop.Continue(flags.Interval)
			},
		)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf(
					"%w: endpoint %s did not come in service in %s ( last status: %s )",
					err, name, flags.Timeout, endpoint.Status,
				)
			}
			return err
		}

		if endpoint.Status != platform.EndpointInService {
			return fmt.Errorf(
				"endpoint %s is %s: %s", name, endpoint.Status, endpoint.FailureReason,
			)
		}

		logger.Printf("endpoint %s is in service", name)
		return nil
	}
}
