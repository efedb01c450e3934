package main

import (
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/safechain/config"
	"github.com/nspcc-dev/safechain/fileshare"
	"github.com/urfave/cli"
)

var visibleToFlag = cli.StringFlag{
	Name:  "viewer, v",
	Usage: "List files visible to the viewer (address or script hash)",
}

func accessCommand() cli.Command {
	return cli.Command{
		Name:  "access",
		Usage: "Manage access grants of the local account's catalog",
		Subcommands: []cli.Command{
			{
				Name:      "allow",
				Usage:     "Grant access to the whole catalog",
				ArgsUsage: "VIEWER",
				Action:    withEnv(globalAccess(true)),
			},
			{
				Name:      "disallow",
				Usage:     "Revoke access to the whole catalog",
				ArgsUsage: "VIEWER",
				Action:    withEnv(globalAccess(false)),
			},
			{
				Name:      "share",
				Usage:     "Grant access to a single file",
				ArgsUsage: "POSITION VIEWER",
				Action:    withEnv(fileAccess(true)),
			},
			{
				Name:      "unshare",
				Usage:     "Revoke access to a single file",
				ArgsUsage: "POSITION VIEWER",
				Action:    withEnv(fileAccess(false)),
			},
			{
				Name:      "list",
				Usage:     "List viewers of the catalog or of a single file, or files visible to the viewer",
				ArgsUsage: "[POSITION]",
				Flags:     []cli.Flag{ownerFlag, visibleToFlag},
				Action:    withEnv(listAccess),
			},
		},
	}
}

func globalAccess(grant bool) func(*cli.Context, *env) error {
	return func(c *cli.Context, e *env) error {
		if err := requireArgs(c, 1); err != nil {
			return err
		}

		owner, err := e.identity(c, "")
		if err != nil {
			return err
		}

		viewer, err := config.ParseIdentity(c.Args().First())
		if err != nil {
			return err
		}

		var res fileshare.Outcome
		if grant {
			res, err = e.matrix.GrantGlobal(e.ctx, owner, viewer)
		} else {
			res, err = e.matrix.RevokeGlobal(e.ctx, owner, viewer)
		}
		if err != nil {
			return err
		}

		fmt.Fprintln(c.App.Writer, res)

		return nil
	}
}

func fileAccess(grant bool) func(*cli.Context, *env) error {
	return func(c *cli.Context, e *env) error {
		if err := requireArgs(c, 2); err != nil {
			return err
		}

		owner, err := e.identity(c, "")
		if err != nil {
			return err
		}

		pos, err := parsePosition(c.Args().Get(0))
		if err != nil {
			return err
		}

		viewer, err := config.ParseIdentity(c.Args().Get(1))
		if err != nil {
			return err
		}

		var res fileshare.Outcome
		if grant {
			res, err = e.matrix.GrantFile(e.ctx, owner, pos, viewer)
		} else {
			res, err = e.matrix.RevokeFile(e.ctx, owner, pos, viewer)
		}
		if err != nil {
			return err
		}

		fmt.Fprintln(c.App.Writer, res)

		return nil
	}
}

func listAccess(c *cli.Context, e *env) error {
	owner, err := e.identity(c, "owner")
	if err != nil {
		return err
	}

	if v := c.String("viewer"); v != "" {
		if c.NArg() > 0 {
			return cli.NewExitError("POSITION and --viewer are mutually exclusive", 1)
		}

		viewer, err := config.ParseIdentity(v)
		if err != nil {
			return err
		}

		files, err := e.matrix.VisibleTo(e.ctx, owner, viewer)
		if err != nil {
			return err
		}

		printShared(c, fileshare.SharedResult{Files: files})

		return nil
	}

	if c.NArg() > 0 {
		pos, err := parsePosition(c.Args().First())
		if err != nil {
			return err
		}

		viewers, err := e.matrix.ListFileGrantees(e.ctx, owner, pos)
		if err != nil {
			return err
		}

		for i := range viewers {
			fmt.Fprintln(c.App.Writer, address.Uint160ToString(viewers[i]))
		}

		return nil
	}

	grantees, err := e.matrix.ListGrantees(e.ctx, owner)
	if err != nil {
		return err
	}

	for i := range grantees {
		state := "revoked"
		if grantees[i].Granted {
			state = "granted"
		}
		fmt.Fprintf(c.App.Writer, "%s\t%s\n", address.Uint160ToString(grantees[i].Viewer), state)
	}

	return nil
}
