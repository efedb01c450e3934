package common

import (
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/neo"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
)

// CheckOwnerWitness checks witness of the record owner. It panics with the
// given message on fail, so that clients can tell authorization failures
// from the other faults.
func CheckOwnerWitness(owner []byte, panicMsg string) {
	if !runtime.CheckWitness(owner) {
		panic(panicMsg)
	}
}

// CheckCommitteeWitness checks witness of the `M = N/2+1` multi-signature
// account of the current committee and panics with panicMsg on fail.
func CheckCommitteeWitness(panicMsg string) {
	committee := neo.GetCommittee()
	if !runtime.CheckWitness(contract.CreateMultisigAccount(len(committee)/2+1, committee)) {
		panic(panicMsg)
	}
}
