package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nspcc-dev/neo-go/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/safechain/fileshare"
	"github.com/nspcc-dev/safechain/knowncache"
	"github.com/nspcc-dev/safechain/memledger"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

func demoCommand() cli.Command {
	return cli.Command{
		Name:  "demo",
		Usage: "Run a sharing scenario against the in-process ledger",
		Action: func(c *cli.Context) error {
			log, err := newLogger(c)
			if err != nil {
				return cli.NewExitError(fmt.Errorf("init logger: %w", err), 1)
			}
			defer func() { _ = log.Sync() }()

			err = runDemo(cmdContext(c), c.App.Writer, log)
			if err != nil {
				return cli.NewExitError(err, 1)
			}

			return nil
		},
	}
}

// demoIdentity derives stable identity from the name.
func demoIdentity(name string) fileshare.Identity {
	return hash.Hash160([]byte(name))
}

type demoStep struct {
	w   io.Writer
	err error
}

func (s *demoStep) printf(format string, args ...any) {
	if s.err == nil {
		_, s.err = fmt.Fprintf(s.w, format, args...)
	}
}

func runDemo(ctx context.Context, w io.Writer, log *zap.Logger) error {
	var (
		alice = demoIdentity("alice")
		bob   = demoIdentity("bob")
		carol = demoIdentity("carol")
		names = map[fileshare.Identity]string{alice: "alice", bob: "bob", carol: "carol"}
		out   = &demoStep{w: w}

		l = memledger.New()
	)

	asOwner := func(id fileshare.Identity) (*fileshare.Catalog, *fileshare.Matrix) {
		ledger := l.As(id)
		return fileshare.NewCatalog(ledger, log), fileshare.NewMatrix(ledger, log)
	}

	aliceFiles, aliceAccess := asOwner(alice)
	bobFiles, bobAccess := asOwner(bob)

	for _, f := range []struct{ ptr, name string }{
		{"ipfs://alice-1", "taxes.pdf"},
		{"ipfs://alice-2", "holiday.jpg"},
		{"ipfs://alice-3", "notes.txt"},
	} {
		pos, err := aliceFiles.Append(ctx, alice, f.ptr, f.name)
		if err != nil {
			return err
		}
		out.printf("alice added %s at position %d\n", f.name, pos)
	}

	_, err := bobFiles.Append(ctx, bob, "ipfs://bob-1", "band.mp3")
	if err != nil {
		return err
	}
	out.printf("bob added band.mp3 at position 0\n")

	res, err := aliceAccess.GrantFile(ctx, alice, 1, carol)
	if err != nil {
		return err
	}
	out.printf("alice shares holiday.jpg with carol: %s\n", res)

	res, err = bobAccess.GrantGlobal(ctx, bob, carol)
	if err != nil {
		return err
	}
	out.printf("bob grants carol his whole catalog: %s\n", res)

	res, err = bobAccess.GrantGlobal(ctx, bob, carol)
	if err != nil {
		return err
	}
	out.printf("bob grants it again: %s\n", res)

	err = aliceFiles.Remove(ctx, alice, 0)
	if err != nil {
		return err
	}
	out.printf("alice removed taxes.pdf, holiday.jpg moves to position 0\n")

	_, err = fileshare.NewMatrix(l.As(carol), log).GrantGlobal(ctx, alice, carol)
	if !errors.Is(err, fileshare.ErrUnauthorized) {
		return fmt.Errorf("unexpected result of the foreign grant: %w", err)
	}
	out.printf("carol cannot grant access to alice's catalog: %v\n", fileshare.ErrUnauthorized)

	printShared := func(title string, p *fileshare.Projection) error {
		shared, err := p.SharedWithMe(ctx, carol)
		if err != nil {
			return err
		}

		out.printf("%s:\n", title)
		for _, f := range shared.Files {
			out.printf("  %s/%d %s (%s)\n", names[f.Owner], f.File.Position, f.File.Name, f.Access)
		}
		if shared.Incomplete {
			out.printf("  (may be incomplete)\n")
		}

		return nil
	}

	err = printShared("shared with carol", fileshare.NewProjection(fileshare.ProjectionPrm{
		Ledger:    l,
		Discovery: fileshare.NewDiscovery(fileshare.DiscoveryPrm{Ledger: l, Logger: log}),
		Logger:    log,
	}))
	if err != nil {
		return err
	}

	noIndex := l.WithoutIndex()

	err = printShared("shared with carol, discovered from recent activity", fileshare.NewProjection(fileshare.ProjectionPrm{
		Ledger: noIndex,
		Discovery: fileshare.NewDiscovery(fileshare.DiscoveryPrm{
			Ledger:   noIndex,
			Cache:    knowncache.NewMemory(0, 0),
			Activity: l,
			Logger:   log,
		}),
		Logger: log,
	}))
	if err != nil {
		return err
	}

	grantees, err := aliceAccess.ListFileGrantees(ctx, alice, 0)
	if err != nil {
		return err
	}
	for i := range grantees {
		out.printf("holiday.jpg is visible to %s (%s)\n", names[grantees[i]], address.Uint160ToString(grantees[i]))
	}

	visible, err := aliceAccess.VisibleTo(ctx, alice, carol)
	if err != nil {
		return err
	}
	out.printf("alice's files visible to carol:\n")
	for _, f := range visible {
		out.printf("  %d %s (%s)\n", f.File.Position, f.File.Name, f.Access)
	}

	return out.err
}
