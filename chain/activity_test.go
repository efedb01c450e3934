package chain_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/core/block"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/callflag"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/trigger"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/emit"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/nspcc-dev/safechain/chain"
	"github.com/nspcc-dev/safechain/fileshare"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type testBlocks struct {
	blocks []*block.Block
	logs   map[util.Uint256]*result.ApplicationLog
	err    error
	broken map[uint32]bool
}

func (x *testBlocks) GetBlockCount() (uint32, error) {
	if x.err != nil {
		return 0, x.err
	}
	return uint32(len(x.blocks)), nil
}

func (x *testBlocks) GetBlockByIndex(index uint32) (*block.Block, error) {
	if x.broken[index] {
		return nil, fmt.Errorf("block #%d: connection reset", index)
	}
	if int(index) >= len(x.blocks) {
		return nil, fmt.Errorf("block #%d not found", index)
	}
	return x.blocks[index], nil
}

func (x *testBlocks) GetApplicationLog(h util.Uint256, _ *trigger.Type) (*result.ApplicationLog, error) {
	l, ok := x.logs[h]
	if !ok {
		return nil, errors.New("unknown transaction")
	}
	return l, nil
}

// addBlock appends block with single transaction of the given sender calling
// the contract and emitting given notifications.
func (x *testBlocks) addBlock(t *testing.T, contract, sender util.Uint160, events ...state.NotificationEvent) {
	w := io.NewBufBinWriter()
	emit.AppCall(w.BinWriter, contract, "any", callflag.All)
	require.NoError(t, w.Err)

	tx := transaction.New(w.Bytes(), 0)
	tx.Nonce = uint32(len(x.blocks))
	tx.Signers = []transaction.Signer{{Account: sender}}

	x.blocks = append(x.blocks, &block.Block{Transactions: []*transaction.Transaction{tx}})
	x.logs[tx.Hash()] = &result.ApplicationLog{
		Container:     tx.Hash(),
		IsTransaction: true,
		Executions: []state.Execution{{
			Trigger: trigger.Application,
			Events:  events,
		}},
	}
}

func notification(contract util.Uint160, name string, fields ...any) state.NotificationEvent {
	items := make([]stackitem.Item, len(fields))
	for i := range fields {
		switch v := fields[i].(type) {
		case util.Uint160:
			items[i] = stackitem.NewByteArray(v.BytesBE())
		default:
			items[i] = stackitem.Make(v)
		}
	}

	return state.NotificationEvent{
		ScriptHash: contract,
		Name:       name,
		Item:       stackitem.NewArray(items),
	}
}

func TestActivity_RecentActors(t *testing.T) {
	var (
		ctx     = context.Background()
		ownerB  = util.Uint160{0x0b}
		ownerC  = util.Uint160{0x0c}
		ownerD  = util.Uint160{0x0d}
		foreign = util.Uint160{0xee}
		bs      = &testBlocks{logs: make(map[util.Uint256]*result.ApplicationLog)}
	)

	bs.addBlock(t, contractHash, owner, notification(contractHash, "FileAdded", owner, 1, 0))
	bs.addBlock(t, contractHash, ownerB, notification(contractHash, "AccessGranted", ownerB, viewer))
	// same event name but another contract
	bs.addBlock(t, foreign, ownerC, notification(foreign, "AccessGranted", ownerC, viewer))
	bs.addBlock(t, contractHash, ownerD, notification(contractHash, "FileShared", ownerD, 2, viewer))
	bs.addBlock(t, contractHash, ownerC, notification(contractHash, "AccessGranted", ownerC, owner))

	a := chain.NewActivity(chain.ActivityPrm{
		Blocks:      bs,
		Contract:    contractHash,
		Concurrency: 2,
		Logger:      zaptest.NewLogger(t),
	})

	actors, err := a.RecentActors(ctx, viewer)
	require.NoError(t, err)
	require.Equal(t, []util.Uint160{
		// granters first, newest to oldest
		ownerD, ownerB,
		// then all senders
		ownerC, ownerD, ownerB, owner,
	}, actors)

	t.Run("look back", func(t *testing.T) {
		a := chain.NewActivity(chain.ActivityPrm{
			Blocks:   bs,
			Contract: contractHash,
			LookBack: 2,
		})

		actors, err := a.RecentActors(ctx, viewer)
		require.NoError(t, err)
		require.Equal(t, []util.Uint160{ownerD, ownerC, ownerD}, actors)
	})

	t.Run("heuristic discovery", func(t *testing.T) {
		d := fileshare.NewDiscovery(fileshare.DiscoveryPrm{Activity: a})

		ids, complete := d.Candidates(ctx, viewer)
		require.False(t, complete)
		require.Equal(t, []util.Uint160{ownerD, ownerB, ownerC, owner}, ids)
	})

	t.Run("broken block is skipped", func(t *testing.T) {
		bs.broken = map[uint32]bool{1: true}
		defer func() { bs.broken = nil }()

		actors, err := a.RecentActors(ctx, viewer)
		require.NoError(t, err)
		require.Equal(t, []util.Uint160{ownerD, ownerC, ownerD, owner}, actors)
	})

	t.Run("missing application log is skipped", func(t *testing.T) {
		h := bs.blocks[3].Transactions[0].Hash()
		l := bs.logs[h]
		delete(bs.logs, h)
		defer func() { bs.logs[h] = l }()

		actors, err := a.RecentActors(ctx, viewer)
		require.NoError(t, err)
		require.Equal(t, []util.Uint160{ownerB, ownerC, ownerB, owner}, actors)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := a.RecentActors(ctx, viewer)
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("unavailable", func(t *testing.T) {
		bs.err = errors.New("connection refused")
		defer func() { bs.err = nil }()

		_, err := a.RecentActors(ctx, viewer)
		require.ErrorIs(t, err, fileshare.ErrLedgerUnavailable)
	})
}
