// Command nufs formats, inspects and (when built with the fuse tag)
// mounts NUFS disk images. Adapted from the teacher's cmd/main.go, which
// builds its urfave/cli/v2 App the same way: one *cli.App, one *cli.Command
// per subcommand, flags and args read straight out of *cli.Context.
package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "nufs",
		Usage: "Format, inspect, and mount NUFS disk images",
		Commands: []*cli.Command{
			formatCommand,
			fsckCommand,
			lsCommand,
			inspectCommand,
			mountCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %s", err)
	}
}
