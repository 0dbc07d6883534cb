package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

type cli struct {
	EnvFile string `name:"env-file" help:"KEY=VALUE file loaded before the environment is read. Defaults to .env when present." type:"path"`

	Serve     ServeCmd     `cmd:"" help:"Run the HTTP API." default:"1"`
	Provision ProvisionCmd `cmd:"" help:"Create or repair tables, seed default rooms and exit."`
	Remind    RemindCmd    `cmd:"" help:"Notify assignees of tasks due soon and exit."`
	Deliver   DeliverCmd   `cmd:"" help:"Send queued reminder emails until interrupted."`
}

func main() {
	var args cli
	ctx := kong.Parse(&args,
		kong.Name("reservationd"),
		kong.Description("Room reservation and project task service"),
		kong.UsageOnError(),
	)

	if err := ctx.Run(&Globals{EnvFile: args.EnvFile}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
