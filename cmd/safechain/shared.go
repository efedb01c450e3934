package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/safechain/fileshare"
	"github.com/urfave/cli"
)

var viewerFlag = cli.StringFlag{
	Name:  "viewer, v",
	Usage: "Viewer (address or script hash), local account by default",
}

func sharedCommand() cli.Command {
	return cli.Command{
		Name:   "shared",
		Usage:  "List files shared with the viewer",
		Flags:  []cli.Flag{viewerFlag},
		Action: withEnv(listShared),
	}
}

func listShared(c *cli.Context, e *env) error {
	viewer, err := e.identity(c, "viewer")
	if err != nil {
		return err
	}

	res, err := e.projection.SharedWithMe(e.ctx, viewer)
	if err != nil {
		return err
	}

	printShared(c, res)

	return nil
}

func printShared(c *cli.Context, res fileshare.SharedResult) {
	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "OWNER\tPOSITION\tREF\tNAME\tPOINTER\tACCESS\n")
	for _, f := range res.Files {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n", address.Uint160ToString(f.Owner),
			f.File.Position, f.Ref(), f.File.Name, f.File.Pointer, f.Access)
	}

	_ = w.Flush()

	if res.Incomplete {
		fmt.Fprintln(c.App.ErrWriter, "warning: the list may be incomplete")
		for i := range res.Skipped {
			fmt.Fprintf(c.App.ErrWriter, "warning: catalog of %s is unavailable\n", address.Uint160ToString(res.Skipped[i]))
		}
	}
}
