package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/assetbuilder/cmd/assetbuilder/commands"
	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("assetbuilder"),
		kong.Description("Declarative static-asset build pipeline: task graph, transforms, watch and live reload."),
		kong.Vars{"version": version},
		kong.UsageOnError(),
	)
	err := parser.Run(&commands.Global{Logger: slog.Default()}, cli)
	ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
