package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mzinger1/nufs/blockalloc"
	"github.com/mzinger1/nufs/chainalloc"
	"github.com/mzinger1/nufs/image"
	"github.com/mzinger1/nufs/inode"
)

var inspectCommand = &cli.Command{
	Name:      "inspect",
	Usage:     "Print the raw metadata of one inode",
	ArgsUsage: "IMAGE_FILE INODE_INDEX",
	Action:    runInspect,
}

func runInspect(c *cli.Context) error {
	imagePath := c.Args().Get(0)
	indexArg := c.Args().Get(1)
	if imagePath == "" || indexArg == "" {
		return cli.Exit("usage: nufs inspect IMAGE_FILE INODE_INDEX", 1)
	}

	var index int32
	if _, err := fmt.Sscanf(indexArg, "%d", &index); err != nil {
		return cli.Exit("INODE_INDEX must be an integer", 1)
	}

	img, err := image.Open(imagePath)
	if err != nil {
		return err
	}
	defer img.Close()

	blocks := blockalloc.New(img)
	chains := chainalloc.New(img, blocks)
	inodes := inode.New(img, blocks, chains)

	if !inodes.Exists(index) {
		return cli.Exit(fmt.Sprintf("inode %d is not allocated", index), 1)
	}

	fmt.Print(inode.PrintInode(inodes.At(index)))
	return nil
}
