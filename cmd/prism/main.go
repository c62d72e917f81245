// Command prism runs the analysis pipeline from the command line: CSV
// holdings and prices in, CSV tables and PNG charts out.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

var configPath = flag.String("config", "", "path to prism.toml (defaults to $PRISM_CONFIG)")

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&analyzeCmd{}, "analysis")
	commander.Register(&fetchCmd{}, "data")
	commander.Register(&newsCmd{}, "insights")
	commander.Register(&profileCmd{}, "insights")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
