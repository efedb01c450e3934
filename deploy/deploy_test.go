package deploy

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/management"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/safechain/contracts"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestStableTransactionModifier(t *testing.T) {
	t.Run("invalid invocation result state", func(t *testing.T) {
		var res result.Invoke
		res.State = "FAULT" // any non-HALT

		err := stableTransactionModifier(func() (uint32, error) { return 0, nil })(&res, new(transaction.Transaction))
		require.Error(t, err)
	})

	var validRes result.Invoke
	validRes.State = "HALT"

	t.Run("height unavailable", func(t *testing.T) {
		err := stableTransactionModifier(func() (uint32, error) {
			return 0, errors.New("connection refused")
		})(&validRes, new(transaction.Transaction))
		require.Error(t, err)
	})

	for _, tc := range []struct {
		curHeight     uint32
		expectedNonce uint32
		expectedVUB   uint32
	}{
		{curHeight: 0, expectedNonce: 0, expectedVUB: 100},
		{curHeight: 1, expectedNonce: 0, expectedVUB: 100},
		{curHeight: 99, expectedNonce: 0, expectedVUB: 100},
		{curHeight: 100, expectedNonce: 100, expectedVUB: 200},
		{curHeight: 199, expectedNonce: 100, expectedVUB: 200},
		{curHeight: 200, expectedNonce: 200, expectedVUB: 300},
		{curHeight: math.MaxUint32 - 50, expectedNonce: 100 * (math.MaxUint32 / 100), expectedVUB: math.MaxUint32},
	} {
		m := stableTransactionModifier(func() (uint32, error) { return tc.curHeight, nil })

		var tx transaction.Transaction

		err := m(&validRes, &tx)
		require.NoError(t, err, tc)
		require.EqualValues(t, tc.expectedNonce, tx.Nonce, tc)
		require.EqualValues(t, tc.expectedVUB, tx.ValidUntilBlock, tc)
	}
}

type sentCall struct {
	contract util.Uint160
	method   string
}

type testChain struct {
	contracts map[util.Uint160]*state.Contract
	err       error

	sender util.Uint160
	sent   []sentCall
	fault  string
}

func (x *testChain) GetContractStateByHash(h util.Uint160) (*state.Contract, error) {
	if x.err != nil {
		return nil, x.err
	}
	c, ok := x.contracts[h]
	if !ok {
		return nil, errors.New("Unknown contract")
	}
	return c, nil
}

func (x *testChain) Sender() util.Uint160 { return x.sender }

func (x *testChain) SendCall(contract util.Uint160, method string, _ ...any) (util.Uint256, uint32, error) {
	x.sent = append(x.sent, sentCall{contract, method})
	return util.Uint256{byte(len(x.sent))}, 100, nil
}

func (x *testChain) Wait(h util.Uint256, _ uint32, err error) (*state.AppExecResult, error) {
	if err != nil {
		return nil, err
	}

	res := &state.AppExecResult{Container: h}
	if x.fault != "" {
		res.VMState = vmstate.Fault
		res.FaultException = x.fault
	} else {
		res.VMState = vmstate.Halt
	}

	return res, nil
}

func testContract(t *testing.T, script byte) contracts.Contract {
	n, err := nef.NewFile([]byte{script})
	require.NoError(t, err)

	return contracts.Contract{
		NEF:      *n,
		Manifest: *manifest.NewManifest("SafeChain FileStore"),
	}
}

func onChainState(t *testing.T, c contracts.Contract) *state.Contract {
	// on-chain manifest passes through the JSON like the RPC one
	b, err := json.Marshal(c.Manifest)
	require.NoError(t, err)

	var m manifest.Manifest
	require.NoError(t, json.Unmarshal(b, &m))

	return &state.Contract{
		ContractBase: state.ContractBase{
			NEF:      c.NEF,
			Manifest: m,
		},
	}
}

func TestDeploy(t *testing.T) {
	var (
		ctx = context.Background()
		c   = testContract(t, 1)
		b   = &testChain{
			contracts: make(map[util.Uint160]*state.Contract),
			sender:    util.Uint160{1, 2, 3},
		}
		prm = Prm{
			Logger:     zaptest.NewLogger(t),
			Blockchain: b,
			Actor:      b,
			Contract:   c,
		}
		expected = state.CreateContractHash(b.sender, c.NEF.Checksum, c.Manifest.Name)
	)

	addr, err := Deploy(ctx, prm)
	require.NoError(t, err)
	require.Equal(t, expected, addr)
	require.Equal(t, []sentCall{{management.Hash, "deploy"}}, b.sent)

	b.contracts[addr] = onChainState(t, c)
	b.sent = nil

	t.Run("up to date", func(t *testing.T) {
		addr, err := Deploy(ctx, prm)
		require.NoError(t, err)
		require.Equal(t, expected, addr)
		require.Empty(t, b.sent)
	})

	t.Run("update", func(t *testing.T) {
		defer func() { b.sent = nil }()

		prm := prm
		prm.Contract.NEF = testContract(t, 2).NEF

		// new NEF means another address
		newAddr, err := Deploy(ctx, prm)
		require.NoError(t, err)
		require.NotEqual(t, addr, newAddr)
		require.Equal(t, []sentCall{{management.Hash, "deploy"}}, b.sent)

		b.sent = nil
		prm.Address = addr

		updAddr, err := Deploy(ctx, prm)
		require.NoError(t, err)
		require.Equal(t, addr, updAddr)
		require.Equal(t, []sentCall{{addr, "update"}}, b.sent)
	})

	t.Run("missing", func(t *testing.T) {
		prm := prm
		prm.Address = util.Uint160{0xff}

		_, err := Deploy(ctx, prm)
		require.Error(t, err)
		require.Empty(t, b.sent)
	})

	t.Run("update denied", func(t *testing.T) {
		defer func() { b.sent, b.fault = nil, "" }()

		prm := prm
		prm.Address = addr
		prm.Contract.Manifest.Extra = json.RawMessage(`{"author":"me"}`)
		b.fault = "update denied"

		_, err := Deploy(ctx, prm)
		require.ErrorContains(t, err, "update denied")
	})

	t.Run("chain unavailable", func(t *testing.T) {
		b.err = errors.New("connection refused")
		defer func() { b.err = nil }()

		_, err := Deploy(ctx, prm)
		require.Error(t, err)
		require.Empty(t, b.sent)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(ctx)
		cancel()

		prm := prm
		prm.Contract = testContract(t, 3)

		_, err := Deploy(ctx, prm)
		require.ErrorIs(t, err, context.Canceled)
		require.Empty(t, b.sent)
	})
}
