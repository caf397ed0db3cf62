package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path"

	"github.com/mlopshq/sagectl/cmd/sagectl/subcommands/common"
	subendpoint "github.com/mlopshq/sagectl/cmd/sagectl/subcommands/endpoint"
	subinit "github.com/mlopshq/sagectl/cmd/sagectl/subcommands/init"
	"github.com/mlopshq/sagectl/cmd/sagectl/subcommands/logger"
	submodel "github.com/mlopshq/sagectl/cmd/sagectl/subcommands/model"
	submonitor "github.com/mlopshq/sagectl/cmd/sagectl/subcommands/monitor"
	subpipeline "github.com/mlopshq/sagectl/cmd/sagectl/subcommands/pipeline"
	subversion "github.com/mlopshq/sagectl/cmd/sagectl/subcommands/version"
	"github.com/mlopshq/sagectl/pkg/utils/try"
	"github.com/youta-t/flarc"
)

func main() {
	name := path.Base(os.Args[0])
	logger := logger.Default()
	logger.SetPrefix(fmt.Sprintf("[%s] ", name))

	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, os.Kill,
	)
	defer cancel()

	cf := try.To(common.Flags(".")).OrFatal(logger)
	init := try.To(subinit.New()).OrFatal(logger)
	pipeline := try.To(subpipeline.New()).OrFatal(logger)
	model := try.To(submodel.New()).OrFatal(logger)
	endpoint := try.To(subendpoint.New()).OrFatal(logger)
	monitor := try.To(submonitor.New()).OrFatal(logger)
	version := try.To(subversion.New()).OrFatal(logger)

	sagectl := try.To(
		flarc.NewCommandGroup(
			"MLOps commandline interface for managed training and inference",
			cf,
			flarc.WithSubcommand("init", init),
			flarc.WithSubcommand("pipeline", pipeline),
			flarc.WithSubcommand("model", model),
			flarc.WithSubcommand("endpoint", endpoint),
			flarc.WithSubcommand("monitor", monitor),
			flarc.WithSubcommand("version", version),
		),
	).OrFatal(logger)

	os.Exit(flarc.Run(ctx, sagectl, flarc.WithHelp(true)))
}
