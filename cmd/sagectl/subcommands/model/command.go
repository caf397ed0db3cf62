package model

import (
	model_approve "github.com/mlopshq/sagectl/cmd/sagectl/subcommands/model/approve"
	model_latest "github.com/mlopshq/sagectl/cmd/sagectl/subcommands/model/latest"
	"github.com/youta-t/flarc"
)

func New() (flarc.Command, error) {

	approve, err := model_approve.New()
	if err != nil {
		return nil, err
	}
	latest, err := model_latest.New()
	if err != nil {
		return nil, err
	}

	return flarc.NewCommandGroup(
		"Manipulate registered Models.",
		struct{}{},
		flarc.WithSubcommand("approve", approve),
		flarc.WithSubcommand("latest", latest),
	)
}
