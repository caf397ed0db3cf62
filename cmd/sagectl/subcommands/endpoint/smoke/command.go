package smoke

import (
	"context"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mlopshq/sagectl/cmd/sagectl/config/profiles"
	"github.com/mlopshq/sagectl/cmd/sagectl/env"
	"github.com/mlopshq/sagectl/cmd/sagectl/handoff"
	"github.com/mlopshq/sagectl/cmd/sagectl/platform"
	"github.com/mlopshq/sagectl/cmd/sagectl/subcommands/common"
	"github.com/mlopshq/sagectl/pkg/utils/stats"
	"github.com/youta-t/flarc"
)

type Flags struct {
	Endpoint string `flag:"endpoint" help:"endpoint name. When omitted, it is read from --name-file."`
	NameFile string `flag:"name-file" help:"file holding the endpoint name, as written by 'endpoint deploy'"`
	Data     string `flag:"data" alias:"d" help:"test data file ( {\"samples\": [{\"input\": ..., \"expected\": ...}]} )"`
	Output   string `flag:"output" alias:"o" help:"file to write the test report to"`
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Smoke-test a live endpoint with sample payloads.",
		Flags{
			NameFile: "endpoint_name.txt",
			Data:     "test_data.json",
			Output:   "test_results.json",
		},
		flarc.Args{},
		common.NewTask(Task()),
		flarc.WithDescription(`
Send every sample of the test data to the endpoint, measuring latency
and comparing predictions with the expected labels. Samples without an
"expected" value pass on any successful response.

The report, with accuracy and latency percentiles, is written to
--output. "endpoint verify" decides on that file.
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

		data, err := handoff.LoadTestData(flags.Data)
		if err != nil {
			logger.Printf("test data is not readable from %s: %s", flags.Data, err)
			return flarc.ErrUsage
		}

		report := handoff.TestReport{TotalTests: len(data.Samples)}
		for _, sample := range data.Samples {
			start := time.Now()
			body, err := client.Invoke(ctx, endpointName, "text/csv", []byte(sample.Input))
			latency := float64(time.Since(start).Microseconds()) / 1000.0

			result := handoff.CaseResult{
				Input:     sample.Input,
				Expected:  sample.Expected,
				LatencyMs: latency,
			}
			if err != nil {
				result.Error = err.Error()
				report.Failed += 1
				logger.Printf("invocation failed: %s", err)
			} else {
				report.Latencies = append(report.Latencies, latency)
				result.Prediction = strings.TrimSpace(string(body))
				if sample.Expected == nil || matches(result.Prediction, *sample.Expected) {
					report.Passed += 1
				} else {
					report.Failed += 1
					logger.Printf(
						"prediction %q does not match expected %q",
						result.Prediction, *sample.Expected,
					)
				}
			}
			report.Predictions = append(report.Predictions, result)
		}

		if 0 < len(report.Latencies) {
			report.AvgLatencyMs = stats.Mean(report.Latencies)
			report.P50LatencyMs = stats.Percentile(report.Latencies, 50)
			report.P95LatencyMs = stats.Percentile(report.Latencies, 95)
			report.P99LatencyMs = stats.Percentile(report.Latencies, 99)
		}
		report.Accuracy = float64(report.Passed) / float64(report.TotalTests)
		report.Success = report.Failed == 0

		if err := handoff.SaveJSON(flags.Output, report); err != nil {
			return fmt.Errorf("%w: failed to write %s", err, flags.Output)
		}

		logger.Printf(
			"%d/%d passed ( accuracy %.4f, avg %.1fms, p95 %.1fms )",
			report.Passed, report.TotalTests,
			report.Accuracy, report.AvgLatencyMs, report.P95LatencyMs,
		)

		if !report.Success {
			return fmt.Errorf("%d of %d smoke tests failed", report.Failed, report.TotalTests)
		}
		return nil
	}
}

// matches compares a raw prediction with the expected label. Endpoints
// answer raw scores, so "0.93" matches the label "1".
func matches(prediction, expected string) bool {
	if prediction == expected {
		return true
	}
	p, errP := strconv.ParseFloat(prediction, 64)
	e, errE := strconv.ParseFloat(expected, 64)
	if errP != nil || errE != nil {
		return false
	}
	return math.Round(p) == math.Round(e)
}
