package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"github.com/nspcc-dev/safechain/chain"
	"github.com/nspcc-dev/safechain/config"
	"github.com/nspcc-dev/safechain/fileshare"
	"github.com/nspcc-dev/safechain/knowncache"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

const ctxKey = "ctx"

// env groups services used by the commands working with the chain.
type env struct {
	ctx context.Context
	log *zap.Logger
	cfg *config.Config

	client *chain.Client
	cache  *knowncache.Bolt
	// me is the local account, zero if wallet is not configured
	me util.Uint160

	catalog    *fileshare.Catalog
	matrix     *fileshare.Matrix
	projection *fileshare.Projection
}

func cmdContext(c *cli.Context) context.Context {
	if ctx, ok := c.App.Metadata[ctxKey].(context.Context); ok {
		return ctx
	}
	return context.Background()
}

func newLogger(c *cli.Context) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.OutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)

	if c.GlobalBool("debug") {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	return cfg.Build()
}

func openAccount(c config.Wallet) (*wallet.Account, error) {
	w, err := wallet.NewWalletFromFile(c.Path)
	if err != nil {
		return nil, fmt.Errorf("open wallet: %w", err)
	}

	h := w.GetChangeAddress()
	if c.Address != "" {
		h, err = address.StringToUint160(c.Address)
		if err != nil {
			return nil, fmt.Errorf("invalid wallet address: %w", err)
		}
	}

	acc := w.GetAccount(h)
	if acc == nil {
		return nil, fmt.Errorf("account %s is missing in the wallet", address.Uint160ToString(h))
	}

	err = acc.Decrypt(c.Password, w.Scrypt)
	if err != nil {
		return nil, fmt.Errorf("decrypt account %s: %w", acc.Address, err)
	}

	return acc, nil
}

// newEnv reads the configuration and connects to the FileStore contract.
func newEnv(c *cli.Context) (*env, error) {
	log, err := newLogger(c)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return nil, err
	}

	contract, err := cfg.ContractHash()
	if err != nil {
		return nil, err
	}

	seeds, err := cfg.SeedHashes()
	if err != nil {
		return nil, err
	}

	e := &env{
		ctx: cmdContext(c),
		log: log,
		cfg: cfg,
	}

	var acc *wallet.Account
	if cfg.Wallet.Path != "" {
		acc, err = openAccount(cfg.Wallet)
		if err != nil {
			return nil, err
		}
		e.me = acc.ScriptHash()
	}

	e.client, err = chain.Dial(e.ctx, chain.DialPrm{
		Endpoint:       cfg.RPC.Endpoint,
		DialTimeout:    cfg.RPC.DialTimeout,
		RequestTimeout: cfg.RPC.RequestTimeout,
		Contract:       contract,
		Account:        acc,
		LookBack:       cfg.Discovery.LookBack,
		Concurrency:    cfg.Concurrency,
		Logger:         log,
	})
	if err != nil {
		return nil, err
	}

	var cache fileshare.KnownCache = knowncache.NewMemory(cfg.Cache.Size, cfg.Cache.TTL)

	if cfg.Cache.Path != "" {
		e.cache, err = knowncache.OpenBolt(knowncache.BoltPrm{
			Path:   cfg.Cache.Path,
			Size:   cfg.Cache.Size,
			TTL:    cfg.Cache.TTL,
			Logger: log,
		})
		if err != nil {
			e.client.Close()
			return nil, err
		}
		cache = e.cache
	}

	e.catalog = fileshare.NewCatalog(e.client, log)
	e.matrix = fileshare.NewMatrix(e.client, log)
	e.projection = fileshare.NewProjection(fileshare.ProjectionPrm{
		Ledger: e.client,
		Discovery: fileshare.NewDiscovery(fileshare.DiscoveryPrm{
			Ledger:   e.client,
			Cache:    cache,
			Activity: e.client.Activity,
			Seeds:    seeds,
			Logger:   log,
		}),
		Concurrency: cfg.Concurrency,
		Logger:      log,
	})

	return e, nil
}

func (e *env) close() {
	if e.cache != nil {
		if err := e.cache.Close(); err != nil {
			e.log.Warn("failed to close cache", zap.Error(err))
		}
	}

	e.client.Close()
	_ = e.log.Sync()
}

// identity returns the identity from the named flag or the local account if
// the flag is omitted. Empty flag name means the local account only.
func (e *env) identity(c *cli.Context, flag string) (util.Uint160, error) {
	if flag != "" {
		if s := c.String(flag); s != "" {
			return config.ParseIdentity(s)
		}
	}

	if e.me.Equals(util.Uint160{}) {
		if flag == "" {
			return util.Uint160{}, errors.New("wallet is not configured")
		}
		return util.Uint160{}, fmt.Errorf("wallet is not configured, specify --%s", flag)
	}

	return e.me, nil
}

// withEnv wraps command action requiring the chain connection.
func withEnv(action func(*cli.Context, *env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		e, err := newEnv(c)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		defer e.close()

		err = action(c, e)
		if err != nil {
			return cli.NewExitError(describe(err), 1)
		}

		return nil
	}
}

// describe adds a hint to the error shown to the user.
func describe(err error) error {
	switch {
	case errors.Is(err, fileshare.ErrUnauthorized):
		return fmt.Errorf("%w (only the owner can change the catalog and its grants)", err)
	case fileshare.IsRetryable(err):
		return fmt.Errorf("%w (try again later)", err)
	default:
		return err
	}
}

func parsePosition(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid position %q: %w", s, err)
	}
	return n, nil
}

func requireArgs(c *cli.Context, n int) error {
	if c.NArg() < n {
		return fmt.Errorf("expected at least %d argument(s), see '%s --help'", n, c.Command.FullName())
	}
	return nil
}
