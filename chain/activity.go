package chain

import (
	"bytes"
	"context"
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/core/block"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/trigger"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/safechain/fileshare"
	"github.com/nspcc-dev/safechain/rpc/filestore"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BlockReader is a subset of rpcclient.Client methods used to scan the chain.
type BlockReader interface {
	GetBlockCount() (uint32, error)
	GetBlockByIndex(index uint32) (*block.Block, error)
	GetApplicationLog(hash util.Uint256, trig *trigger.Type) (*result.ApplicationLog, error)
}

// DefaultLookBack is the default number of the latest blocks scanned by
// Activity.
const DefaultLookBack = 1000

// ActivityPrm groups Activity parameters.
type ActivityPrm struct {
	// Blocks is a required chain reader.
	Blocks BlockReader
	// Contract is the FileStore contract address.
	Contract util.Uint160
	// LookBack limits the number of scanned blocks, DefaultLookBack if zero.
	LookBack uint32
	// Concurrency limits the number of simultaneous RPC requests.
	Concurrency int
	// Logger is an optional logger.
	Logger *zap.Logger
}

// Activity is fileshare.ActivitySource over the recent chain history. It
// reports senders of FileStore transactions and owners whose grants in these
// transactions were addressed to the viewer. The latter go first.
type Activity struct {
	blocks   BlockReader
	contract util.Uint160
	lookBack uint32
	limit    int
	log      *zap.Logger
}

// NewActivity constructs Activity.
func NewActivity(prm ActivityPrm) *Activity {
	a := &Activity{
		blocks:   prm.Blocks,
		contract: prm.Contract,
		lookBack: prm.LookBack,
		limit:    prm.Concurrency,
		log:      prm.Logger,
	}

	if a.lookBack == 0 {
		a.lookBack = DefaultLookBack
	}
	if a.limit <= 0 {
		a.limit = fileshare.DefaultConcurrency
	}
	if a.log == nil {
		a.log = zap.NewNop()
	}

	return a
}

type blockActors struct {
	granters []util.Uint160
	senders  []util.Uint160
}

// RecentActors implements fileshare.ActivitySource. Blocks are scanned from
// the newest one, so more recent actors are listed earlier. Blocks that can't
// be read are skipped, only chain height request failure and context
// cancellation are returned as errors.
func (a *Activity) RecentActors(ctx context.Context, viewer util.Uint160) ([]util.Uint160, error) {
	height, err := a.blocks.GetBlockCount()
	if err != nil {
		return nil, fmt.Errorf("%w: get block count: %w", fileshare.ErrLedgerUnavailable, err)
	}

	var from uint32
	if height > a.lookBack {
		from = height - a.lookBack
	}

	found := make([]blockActors, height-from)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.limit)

	for i := from; i < height; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			res, err := a.scanBlock(i, viewer)
			if err != nil {
				a.log.Warn("failed to scan block, skipping",
					zap.Uint32("index", i), zap.Error(err))
				return nil
			}

			found[height-1-i] = res

			return nil
		})
	}

	if err = g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: scan blocks: %w", fileshare.ErrLedgerUnavailable, err)
	}

	var res []util.Uint160
	for i := range found {
		res = append(res, found[i].granters...)
	}
	for i := range found {
		res = append(res, found[i].senders...)
	}

	a.log.Debug("recent chain activity scanned",
		zap.Uint32("from", from), zap.Uint32("to", height), zap.Int("actors", len(res)))

	return res, nil
}

func (a *Activity) scanBlock(index uint32, viewer util.Uint160) (blockActors, error) {
	var res blockActors

	b, err := a.blocks.GetBlockByIndex(index)
	if err != nil {
		return res, fmt.Errorf("get block #%d: %w", index, err)
	}

	for _, tx := range b.Transactions {
		// contract hash is pushed into the calling script as is
		if !bytes.Contains(tx.Script, a.contract.BytesBE()) {
			continue
		}

		aer, err := a.blocks.GetApplicationLog(tx.Hash(), nil)
		if err != nil {
			return res, fmt.Errorf("get application log of %s: %w", tx.Hash().StringLE(), err)
		}

		if !a.contractNotified(aer) {
			continue
		}

		res.senders = append(res.senders, tx.Sender())
		res.granters = append(res.granters, a.granters(aer, viewer)...)
	}

	return res, nil
}

func (a *Activity) contractNotified(log *result.ApplicationLog) bool {
	for i := range log.Executions {
		for j := range log.Executions[i].Events {
			if log.Executions[i].Events[j].ScriptHash.Equals(a.contract) {
				return true
			}
		}
	}
	return false
}

func (a *Activity) granters(log *result.ApplicationLog, viewer util.Uint160) []util.Uint160 {
	var res []util.Uint160

	// events of other contracts may have the same names, keep only ours
	own := a.ownEvents(log)

	granted, err := filestore.AccessGrantedEventsFromApplicationLog(own)
	if err != nil {
		a.log.Debug("skip malformed AccessGranted notification", zap.Error(err))
	}
	for _, e := range granted {
		if e.Viewer.Equals(viewer) {
			res = append(res, e.Owner)
		}
	}

	shared, err := filestore.FileSharedEventsFromApplicationLog(own)
	if err != nil {
		a.log.Debug("skip malformed FileShared notification", zap.Error(err))
	}
	for _, e := range shared {
		if e.Viewer.Equals(viewer) {
			res = append(res, e.Owner)
		}
	}

	return res
}

func (a *Activity) ownEvents(log *result.ApplicationLog) *result.ApplicationLog {
	res := *log
	res.Executions = make([]state.Execution, len(log.Executions))

	for i := range log.Executions {
		res.Executions[i] = log.Executions[i]
		res.Executions[i].Events = nil

		for _, ev := range log.Executions[i].Events {
			if ev.ScriptHash.Equals(a.contract) {
				res.Executions[i].Events = append(res.Executions[i].Events, ev)
			}
		}
	}

	return &res
}
