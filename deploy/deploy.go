/*
Package deploy synchronizes the FileStore contract with a Neo blockchain.
*/
package deploy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/management"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"github.com/nspcc-dev/safechain/contracts"
	"go.uber.org/zap"
)

// Blockchain provides states of the deployed contracts.
type Blockchain interface {
	// GetContractStateByHash returns network state of the smart contract by its
	// address. GetContractStateByHash returns error with 'Unknown contract'
	// substring if requested contract is missing.
	GetContractStateByHash(util.Uint160) (*state.Contract, error)
}

// Actor groups functions needed to send deploying transactions. It is
// implemented by actor.Actor, see NewActor.
type Actor interface {
	Sender() util.Uint160
	SendCall(contract util.Uint160, method string, params ...any) (util.Uint256, uint32, error)
	Wait(h util.Uint256, vub uint32, err error) (*state.AppExecResult, error)
}

// Prm groups parameters of the FileStore contract deployment.
type Prm struct {
	// Writes progress into the log.
	Logger *zap.Logger

	// Particular Neo blockchain instance to deploy the contract to.
	Blockchain Blockchain

	// Sends transactions. Contract address depends on the sender. Updates must
	// be signed by the committee.
	Actor Actor

	// Compiled contract to be deployed.
	Contract contracts.Contract

	// Address of the already deployed contract. If zero, it is calculated from
	// the sender and the contract, so the contract can only be deployed or
	// found up to date.
	Address util.Uint160
}

// Deploy makes the blockchain run the given FileStore contract and returns its
// address. The contract is deployed if it is missing and updated if its
// on-chain NEF or manifest differ from the local ones. Deploy is idempotent.
//
// Contract address depends on the NEF, so the contract can be updated only
// when Prm.Address is set.
func Deploy(ctx context.Context, prm Prm) (util.Uint160, error) {
	log := prm.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var (
		sender = prm.Actor.Sender()
		name   = prm.Contract.Manifest.Name
		addr   = prm.Address
		known  = !addr.Equals(util.Uint160{})
	)

	if !known {
		addr = state.CreateContractHash(sender, prm.Contract.NEF.Checksum, name)
	}

	log = log.With(zap.String("contract", name), zap.Stringer("address", addr))

	bNEF, err := prm.Contract.NEF.Bytes()
	if err != nil {
		return addr, fmt.Errorf("encode NEF: %w", err)
	}

	bManifest, err := json.Marshal(prm.Contract.Manifest)
	if err != nil {
		return addr, fmt.Errorf("encode manifest: %w", err)
	}

	onChain, err := prm.Blockchain.GetContractStateByHash(addr)
	if err != nil {
		if !isErrContractNotFound(err) {
			return addr, fmt.Errorf("get contract state: %w", err)
		}
		if known {
			return addr, fmt.Errorf("contract %s is missing on the chain", addr.StringLE())
		}

		log.Info("contract is missing on the chain, deploying...", zap.Stringer("sender", sender))

		err = send(ctx, prm.Actor, management.Hash, "deploy", bNEF, bManifest, nil)
		if err != nil {
			return addr, fmt.Errorf("deploy contract: %w", err)
		}

		log.Info("contract successfully deployed")

		return addr, nil
	}

	upToDate, err := sameContract(onChain, prm.Contract.NEF.Checksum, bManifest)
	if err != nil {
		return addr, err
	}

	if upToDate {
		log.Info("on-chain contract is up to date")
		return addr, nil
	}

	log.Info("on-chain contract differs from the local one, updating...",
		zap.Uint32("on-chain checksum", onChain.NEF.Checksum),
		zap.Uint32("local checksum", prm.Contract.NEF.Checksum),
		zap.Uint16("update counter", onChain.UpdateCounter))

	err = send(ctx, prm.Actor, addr, "update", bNEF, bManifest, nil)
	if err != nil {
		return addr, fmt.Errorf("update contract: %w", err)
	}

	log.Info("contract successfully updated")

	return addr, nil
}

func send(ctx context.Context, act Actor, contract util.Uint160, method string, params ...any) error {
	err := ctx.Err()
	if err != nil {
		return err
	}

	res, err := act.Wait(act.SendCall(contract, method, params...))
	if err != nil {
		return err
	}

	if !res.VMState.HasFlag(vmstate.Halt) {
		return fmt.Errorf("transaction %s failed: %s", res.Container.StringLE(), res.FaultException)
	}

	return nil
}

func sameContract(onChain *state.Contract, checksum uint32, manifest []byte) (bool, error) {
	if onChain.NEF.Checksum != checksum {
		return false, nil
	}

	b, err := json.Marshal(onChain.Manifest)
	if err != nil {
		return false, fmt.Errorf("encode on-chain manifest: %w", err)
	}

	return bytes.Equal(b, manifest), nil
}

func isErrContractNotFound(err error) bool {
	return strings.Contains(err.Error(), "Unknown contract")
}

// NewActor returns actor.Actor signing transactions by the given account
// (must be unlocked). Nonce and ValidUntilBlock of the transactions are
// aligned to the current height, so a transaction repeated after a lost
// response has the same hash and is not executed twice.
func NewActor(b actor.RPCActor, acc *wallet.Account) (*actor.Actor, error) {
	return actor.NewTuned(b, []actor.SignerAccount{{
		Signer: transaction.Signer{
			Account: acc.ScriptHash(),
			Scopes:  transaction.CalledByEntry,
		},
		Account: acc,
	}}, actor.Options{
		CheckerModifier: stableTransactionModifier(b.GetBlockCount),
	})
}

// returns actor.TransactionCheckerModifier which checks that invocation
// finished with 'HALT' state and, if so, sets transaction's nonce and
// ValidUntilBlock to 100*N and 100*(N+1) correspondingly, where
// 100*N <= current height < 100*(N+1).
func stableTransactionModifier(getBlockchainHeight func() (uint32, error)) actor.TransactionCheckerModifier {
	return func(r *result.Invoke, tx *transaction.Transaction) error {
		err := actor.DefaultCheckerModifier(r, tx)
		if err != nil {
			return err
		}

		curHeight, err := getBlockchainHeight()
		if err != nil {
			return fmt.Errorf("get blockchain height: %w", err)
		}

		const span = 100
		n := curHeight / span

		tx.Nonce = n * span

		if math.MaxUint32-span > tx.Nonce {
			tx.ValidUntilBlock = tx.Nonce + span
		} else {
			tx.ValidUntilBlock = math.MaxUint32
		}

		return nil
	}
}
