package main

import (
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/safechain/chain"
	"github.com/nspcc-dev/safechain/config"
	"github.com/nspcc-dev/safechain/contracts"
	"github.com/nspcc-dev/safechain/deploy"
	"github.com/urfave/cli"
)

func deployCommand() cli.Command {
	return cli.Command{
		Name:  "deploy",
		Usage: "Deploy or update the FileStore contract",
		UsageText: "safechain deploy --dir contracts/filestore [--update]\n\n" +
			"   The directory must contain compiled contract.nef and manifest.json.\n" +
			"   With --update the contract configured in the file is updated, which\n" +
			"   must be signed by the committee.",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "dir",
				Usage: "Directory with the compiled contract",
				Value: "contracts/filestore",
			},
			cli.BoolFlag{
				Name:  "update",
				Usage: "Update the configured contract",
			},
		},
		Action: deployContract,
	}
}

func deployContract(c *cli.Context) error {
	log, err := newLogger(c)
	if err != nil {
		return cli.NewExitError(fmt.Errorf("init logger: %w", err), 1)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	var addr util.Uint160
	if c.Bool("update") {
		addr, err = cfg.ContractHash()
		if err != nil {
			return cli.NewExitError(err, 1)
		}
	}

	if cfg.Wallet.Path == "" {
		return cli.NewExitError("wallet is not configured", 1)
	}

	acc, err := openAccount(cfg.Wallet)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	ctr, err := contracts.ReadDir(c.String("dir"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	ctx := cmdContext(c)

	client, err := chain.Dial(ctx, chain.DialPrm{
		Endpoint:       cfg.RPC.Endpoint,
		DialTimeout:    cfg.RPC.DialTimeout,
		RequestTimeout: cfg.RPC.RequestTimeout,
		Logger:         log,
	})
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer client.Close()

	act, err := deploy.NewActor(client.RPC(), acc)
	if err != nil {
		return cli.NewExitError(fmt.Errorf("init transaction sender: %w", err), 1)
	}

	addr, err = deploy.Deploy(ctx, deploy.Prm{
		Logger:     log,
		Blockchain: client.RPC(),
		Actor:      act,
		Contract:   ctr,
		Address:    addr,
	})
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	fmt.Fprintf(c.App.Writer, "contract: %s (%s)\n", address.Uint160ToString(addr), addr.StringLE())

	return nil
}
