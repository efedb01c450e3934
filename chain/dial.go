package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/invoker"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"go.uber.org/zap"
)

// DialPrm groups parameters of Dial.
type DialPrm struct {
	// Endpoint is a Neo RPC server address.
	Endpoint string
	// DialTimeout limits connection establishment, zero means no limit.
	DialTimeout time.Duration
	// RequestTimeout limits each RPC request, zero means no limit.
	RequestTimeout time.Duration

	// Contract is the FileStore contract address.
	Contract util.Uint160
	// Account signs transactions. It must be decrypted. If nil, Ledger is
	// read-only.
	Account *wallet.Account

	// LookBack is passed to Activity.
	LookBack uint32
	// Concurrency is passed to Activity.
	Concurrency int

	Logger *zap.Logger
}

// Client is an established connection to the FileStore contract.
type Client struct {
	*Ledger

	// Activity scans the recent blocks for FileStore actors.
	Activity *Activity

	rpc *rpcclient.Client
}

// Dial connects to the Neo RPC server and returns Client ready to work with
// the FileStore contract.
func Dial(ctx context.Context, prm DialPrm) (*Client, error) {
	log := prm.Logger
	if log == nil {
		log = zap.NewNop()
	}

	c, err := rpcclient.New(ctx, prm.Endpoint, rpcclient.Options{
		DialTimeout:    prm.DialTimeout,
		RequestTimeout: prm.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create RPC client: %w", err)
	}

	err = c.Init()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("init RPC client: %w", err)
	}

	res := &Client{
		Activity: NewActivity(ActivityPrm{
			Blocks:      c,
			Contract:    prm.Contract,
			LookBack:    prm.LookBack,
			Concurrency: prm.Concurrency,
			Logger:      log,
		}),
		rpc: c,
	}

	if prm.Account == nil {
		res.Ledger = NewReadOnly(invoker.New(c, nil), prm.Contract, log)
	} else {
		act, err := actor.NewSimple(c, prm.Account)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("init transaction sender from account %s: %w", prm.Account.Address, err)
		}

		res.Ledger = New(act, prm.Contract, log)
	}

	log.Info("connected to Neo RPC server",
		zap.String("endpoint", prm.Endpoint),
		zap.Stringer("contract", prm.Contract),
		zap.Bool("read-only", prm.Account == nil))

	return res, nil
}

// RPC returns the underlying RPC client.
func (c *Client) RPC() *rpcclient.Client {
	return c.rpc
}

// Close closes the connection.
func (c *Client) Close() {
	c.rpc.Close()
}
