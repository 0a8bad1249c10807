package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mzinger1/nufs/fsops"
)

var lsCommand = &cli.Command{
	Name:      "ls",
	Usage:     "List a directory's entries",
	ArgsUsage: "IMAGE_FILE PATH",
	Action:    runLs,
}

func runLs(c *cli.Context) error {
	imagePath := c.Args().Get(0)
	dirPath := c.Args().Get(1)
	if imagePath == "" || dirPath == "" {
		return cli.Exit("usage: nufs ls IMAGE_FILE PATH", 1)
	}

	ops, err := fsops.Open(imagePath, nil)
	if err != nil {
		return err
	}
	defer ops.Close()

	names, rv := ops.Readdir(dirPath)
	if rv != 0 {
		return cli.Exit(fmt.Sprintf("no such directory: %s", dirPath), 1)
	}

	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}
