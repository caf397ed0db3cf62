package monitor

import (
	monitor_apply "github.com/mlopshq/sagectl/cmd/sagectl/subcommands/monitor/apply"
	"github.com/youta-t/flarc"
)

func New() (flarc.Command, error) {

	apply, err := monitor_apply.New()
	if err != nil {
		return nil, err
	}

	return flarc.NewCommandGroup(
		"Manipulate model Monitoring.",
		struct{}{},
		flarc.WithSubcommand("apply", apply),
	)
}
