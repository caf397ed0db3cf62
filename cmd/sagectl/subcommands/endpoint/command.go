package endpoint

import (
	endpoint_deploy "github.com/mlopshq/sagectl/cmd/sagectl/subcommands/endpoint/deploy"
	endpoint_smoke "github.com/mlopshq/sagectl/cmd/sagectl/subcommands/endpoint/smoke"
	endpoint_verify "github.com/mlopshq/sagectl/cmd/sagectl/subcommands/endpoint/verify"
	endpoint_wait "github.com/mlopshq/sagectl/cmd/sagectl/subcommands/endpoint/wait"
	"github.com/youta-t/flarc"
)

func New() (flarc.Command, error) {

	deploy, err := endpoint_deploy.New()
	if err != nil {
		return nil, err
	}
	wait, err := endpoint_wait.New()
	if err != nil {
		return nil, err
	}
	smoke, err := endpoint_smoke.New()
	if err != nil {
		return nil, err
	}
	verify, err := endpoint_verify.New()
	if err != nil {
		return nil, err
	}

	return flarc.NewCommandGroup(
		"Manipulate inference Endpoints.",
		struct{}{},
		flarc.WithSubcommand("deploy", deploy),
		flarc.WithSubcommand("wait", wait),
		flarc.WithSubcommand("smoke", smoke),
		flarc.WithSubcommand("verify", verify),
	)
}
