package results

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
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
	ArnFile string `flag:"arn-file" help:"file holding the execution ARN, as written by 'pipeline run'"`
	Output  string `flag:"output" alias:"o" help:"file to write the results to"`
}

const ARG_EXECUTION_ARN = "EXECUTION_ARN"

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Collect the results of a pipeline execution.",
		Flags{
			ArnFile: "execution_arn.txt",
			Output:  "results.json",
		},
		flarc.Args{
			{
				Name: ARG_EXECUTION_ARN, Required: false,
				Help: "execution ARN. When omitted, it is read from --arn-file.",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
List the steps of the execution and, when the execution registered a
model package, retrieve the model's evaluation accuracy from its
model-quality report.

The collected results are written to --output. "model approve" decides
on that file.
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

		execution, err := client.GetExecution(ctx, arn)
		if err != nil {
			return fmt.Errorf("%w: failed to get execution %s", err, arn)
		}
		steps, err := client.GetExecutionSteps(ctx, arn)
		if err != nil {
			return fmt.Errorf("%w: failed to list steps of %s", err, arn)
		}

		results := handoff.Results{
			Status:       string(execution.Status),
			ExecutionArn: arn,
		}
		for _, s := range steps {
			results.Steps = append(results.Steps, handoff.StepResult{
				Name:             s.Name,
				Status:           string(s.Status),
				ModelPackageArn:  s.ModelPackageArn,
				ProcessingJobArn: s.ProcessingJobArn,
				TrainingJobArn:   s.TrainingJobArn,
				FailureReason:    s.FailureReason,
			})
			if s.Name == pipelines.StepRegister &&
				s.Status == platform.StepSucceeded && s.ModelPackageArn != "" {
				results.ModelPackageArn = s.ModelPackageArn
			}
		}

		if results.ModelPackageArn == "" {
			logger.Println("no model package was registered by this execution")
		} else if accuracy, err := fetchAccuracy(ctx, client, results.ModelPackageArn); err != nil {
			logger.Printf("evaluation report is not readable: %s", err)
		} else if accuracy != nil {
			results.Accuracy = accuracy
		}

		if err := handoff.SaveJSON(flags.Output, results); err != nil {
			return fmt.Errorf("%w: failed to write %s", err, flags.Output)
		}
		logger.Printf("results are written to %s", flags.Output)

		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		return enc.Encode(results)
	}
}

// fetchAccuracy reads the accuracy out of the model-quality report the
// register step attached to the package. A package without metrics gives
// (nil, nil).
func fetchAccuracy(
	ctx context.Context, client platform.Client, modelPackageArn string,
) (*float64, error) {
	pkg, err := client.GetModelPackage(ctx, modelPackageArn)
	if err != nil {
		return nil, err
	}
	if pkg.MetricsS3Uri == "" {
		return nil, nil
	}

	var report handoff.EvaluationReport
	err = client.FetchObject(ctx, pkg.MetricsS3Uri, func(r io.Reader) error {
		return json.NewDecoder(r).Decode(&report)
	})
	if err != nil {
		return nil, err
	}

	accuracy, ok := report.Accuracy()
	if !ok {
		return nil, nil
	}
	return &accuracy, nil
}
