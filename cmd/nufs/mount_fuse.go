//go:build fuse

package main

import (
	"github.com/urfave/cli/v2"

	"github.com/mzinger1/nufs/adapter"
	"github.com/mzinger1/nufs/fsops"
)

var mountCommand = &cli.Command{
	Name:      "mount",
	Usage:     "Mount an image at a directory using FUSE",
	ArgsUsage: "IMAGE_FILE MOUNTPOINT",
	Action:    runMount,
}

func runMount(c *cli.Context) error {
	imagePath := c.Args().Get(0)
	mountpoint := c.Args().Get(1)
	if imagePath == "" || mountpoint == "" {
		return cli.Exit("usage: nufs mount IMAGE_FILE MOUNTPOINT", 1)
	}

	ops, err := fsops.Open(imagePath, nil)
	if err != nil {
		return err
	}
	defer ops.Close()

	return adapter.Mount(mountpoint, ops)
}
