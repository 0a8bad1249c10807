package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/mzinger1/nufs/fsops"
)

var formatCommand = &cli.Command{
	Name:      "format",
	Usage:     "Create a fresh image, or re-initialize an existing one's root directory",
	ArgsUsage: "IMAGE_FILE",
	Action:    formatImage,
}

func formatImage(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("an image file path is required", 1)
	}

	// Empty an existing image first so fsops.Open initializes it afresh.
	if err := os.Truncate(path, 0); err != nil && !os.IsNotExist(err) {
		return err
	}

	ops, err := fsops.Open(path, nil)
	if err != nil {
		return err
	}
	defer ops.Close()

	fmt.Printf("formatted %s\n", path)
	return nil
}
