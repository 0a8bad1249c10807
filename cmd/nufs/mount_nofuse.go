//go:build !fuse

package main

import (
	"github.com/urfave/cli/v2"
)

var mountCommand = &cli.Command{
	Name:      "mount",
	Usage:     "Mount an image at a directory using FUSE (requires building with -tags fuse)",
	ArgsUsage: "IMAGE_FILE MOUNTPOINT",
	Action: func(c *cli.Context) error {
		return cli.Exit("nufs was built without FUSE support; rebuild with -tags fuse", 1)
	},
}
