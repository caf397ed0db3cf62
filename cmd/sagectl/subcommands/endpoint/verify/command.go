package verify

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
	Results     string  `flag:"results" help:"test report written by 'endpoint smoke'"`
	MinAccuracy float64 `flag:"min-accuracy" help:"accuracy required for promotion. 0 means the sagenv value."`
	MaxLatency  float64 `flag:"max-latency" help:"p95 latency ( milliseconds ) above which a warning is logged"`
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Decide whether smoke-test results clear the promotion bar.",
		Flags{
			Results:    "test_results.json",
			MaxLatency: 1000,
		},
		flarc.Args{},
		common.NewTask(Task()),
		flarc.WithDescription(`
Read the smoke-test report and exit 0 only when every test passed and
the measured accuracy reaches the promotion threshold.

High latency is logged as a warning but does not fail the command.
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

		report, err := handoff.LoadTestReport(flags.Results)
		if err != nil {
			logger.Printf("test report is not readable from %s: %s", flags.Results, err)
			return flarc.ErrUsage
		}

		if !report.Success {
			return fmt.Errorf(
				"%d of %d smoke tests failed", report.Failed, report.TotalTests,
			)
		}

		threshold := flags.MinAccuracy
		if threshold <= 0 {
			threshold = sageEnv.PromotionThreshold()
		}
		if report.Accuracy < threshold {
			return fmt.Errorf(
				"accuracy %.4f is below the promotion threshold %.4f",
				report.Accuracy, threshold,
			)
		}

		if flags.MaxLatency < report.P95LatencyMs {
			logger.Printf(
				"WARNING: p95 latency %.1fms exceeds %.1fms",
				report.P95LatencyMs, flags.MaxLatency,
			)
		}

		logger.Printf(
			"verified: %d/%d passed, accuracy %.4f >= %.4f",
			report.Passed, report.TotalTests, report.Accuracy, threshold,
		)
		return nil
	}
}
