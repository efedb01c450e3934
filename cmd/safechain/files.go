package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/safechain/fileshare"
	"github.com/urfave/cli"
)

var ownerFlag = cli.StringFlag{
	Name:  "owner, o",
	Usage: "Catalog owner (address or script hash), local account by default",
}

func filesCommand() cli.Command {
	return cli.Command{
		Name:  "files",
		Usage: "Manage the file catalog",
		Subcommands: []cli.Command{
			{
				Name:      "add",
				Usage:     "Append a file record to the local account's catalog",
				ArgsUsage: "POINTER [NAME]",
				Action:    withEnv(addFile),
			},
			{
				Name:      "rm",
				Usage:     "Remove file records by positions",
				ArgsUsage: "POSITION [POSITION...]",
				Action:    withEnv(removeFiles),
			},
			{
				Name:   "ls",
				Usage:  "List the catalog",
				Flags:  []cli.Flag{ownerFlag},
				Action: withEnv(listFiles),
			},
			{
				Name:      "show",
				Usage:     "Show the file record by its reference",
				ArgsUsage: "REF",
				Action:    withEnv(showFile),
			},
		},
	}
}

func addFile(c *cli.Context, e *env) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}

	owner, err := e.identity(c, "")
	if err != nil {
		return err
	}

	pos, err := e.catalog.Append(e.ctx, owner, c.Args().Get(0), c.Args().Get(1))
	if err != nil {
		return err
	}

	f, err := e.catalog.Get(e.ctx, owner, pos)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "position: %d\nref: %s\n", pos, fileshare.RecordRef{Owner: owner, ID: f.ID})

	return nil
}

func removeFiles(c *cli.Context, e *env) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}

	owner, err := e.identity(c, "")
	if err != nil {
		return err
	}

	positions := make([]int, c.NArg())
	for i := range positions {
		positions[i], err = parsePosition(c.Args().Get(i))
		if err != nil {
			return err
		}
	}

	if len(positions) == 1 {
		return e.catalog.Remove(e.ctx, owner, positions[0])
	}

	invalid, err := e.catalog.RemoveMany(e.ctx, owner, positions)
	if err != nil {
		return err
	}

	if len(invalid) > 0 {
		fmt.Fprintf(c.App.Writer, "skipped invalid positions: %v\n", invalid)
	}

	return nil
}

func listFiles(c *cli.Context, e *env) error {
	owner, err := e.identity(c, "owner")
	if err != nil {
		return err
	}

	files, err := e.catalog.List(e.ctx, owner)
	if err != nil {
		return err
	}

	printFiles(c, owner, files)

	return nil
}

func printFiles(c *cli.Context, owner fileshare.Identity, files []fileshare.FileRecord) {
	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "POSITION\tREF\tNAME\tPOINTER\n")
	for i := range files {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", files[i].Position,
			fileshare.RecordRef{Owner: owner, ID: files[i].ID}, files[i].Name, files[i].Pointer)
	}

	_ = w.Flush()
}

func showFile(c *cli.Context, e *env) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}

	ref, err := fileshare.ParseRecordRef(c.Args().First())
	if err != nil {
		return err
	}

	f, err := e.catalog.Resolve(e.ctx, ref)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "owner: %s\nposition: %d\nname: %s\npointer: %s\n",
		address.Uint160ToString(ref.Owner), f.Position, f.Name, f.Pointer)

	if !e.me.Equals(ref.Owner) && !e.me.Equals(fileshare.Identity{}) {
		ok, err := e.matrix.CanView(e.ctx, ref.Owner, f.Position, e.me)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "visible to me: %t\n", ok)
	}

	return nil
}
