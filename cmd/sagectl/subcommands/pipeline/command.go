package pipeline

import (
	pipeline_apply "github.com/mlopshq/sagectl/cmd/sagectl/subcommands/pipeline/apply"
	pipeline_results "github.com/mlopshq/sagectl/cmd/sagectl/subcommands/pipeline/results"
	pipeline_run "github.com/mlopshq/sagectl/cmd/sagectl/subcommands/pipeline/run"
	pipeline_wait "github.com/mlopshq/sagectl/cmd/sagectl/subcommands/pipeline/wait"
	"github.com/youta-t/flarc"
)

func New() (flarc.Command, error) {

	apply, err := pipeline_apply.New()
	if err != nil {
		return nil, err
	}
	run, err := pipeline_run.New()
	if err != nil {
		return nil, err
	}
	wait, err := pipeline_wait.New()
	if err != nil {
		return nil, err
	}
	results, err := pipeline_results.New()
	if err != nil {
		return nil, err
	}

	return flarc.NewCommandGroup(
		"Manipulate the training Pipeline.",
		struct{}{},
		flarc.WithSubcommand("apply", apply),
		flarc.WithSubcommand("run", run),
		flarc.WithSubcommand("wait", wait),
		flarc.WithSubcommand("results", results),
	)
}
