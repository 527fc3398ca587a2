package chain

import (
	"testing"

	"github.com/tari-project/basenode/primitives"
)

func TestNewGenesisBlockRoundTrips(t *testing.T) {
	params := primitives.Devnet()
	blind, err := primitives.RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	block, err := NewGenesisBlock(params, 1_700_000_000, blind)
	if err != nil {
		t.Fatal(err)
	}

	if block.Header.Height != 0 {
		t.Fatalf("height = %d, want 0", block.Header.Height)
	}
	if block.Header.PrevHash != (primitives.Hash{}) {
		t.Fatalf("prev hash must be zero")
	}
	if len(block.Body.Kernels) != 1 || block.Body.Kernels[0].Features != KernelCoinbase {
		t.Fatalf("expected exactly one coinbase kernel")
	}
	if len(block.Body.Outputs) != 1 || block.Body.Outputs[0].Features != OutputCoinbase {
		t.Fatalf("expected exactly one coinbase output")
	}
	if block.Body.Outputs[0].Maturity != params.CoinbaseLockHeight {
		t.Fatalf("maturity = %d, want %d", block.Body.Outputs[0].Maturity, params.CoinbaseLockHeight)
	}

	headerBytes := block.Header.Bytes()
	decodedHeader, err := DecodeBlockHeader(headerBytes)
	if err != nil {
		t.Fatal(err)
	}
	if decodedHeader.Hash() != block.Header.Hash() {
		t.Fatalf("decoded header hash mismatch")
	}

	bodyBytes := block.Body.Bytes()
	decodedBody, err := DecodeAggregateBody(bodyBytes)
	if err != nil {
		t.Fatal(err)
	}
	if len(decodedBody.Outputs) != 1 || decodedBody.Outputs[0].Commitment != block.Body.Outputs[0].Commitment {
		t.Fatalf("decoded body does not round-trip the coinbase output")
	}

	ok, err := primitives.VerifyExcess(block.Body.Kernels[0].Excess, block.Body.Kernels[0].SignatureMessage(), block.Body.Kernels[0].ExcessSig)
	if err != nil || !ok {
		t.Fatalf("genesis kernel signature does not verify: ok=%v err=%v", ok, err)
	}
}

func TestNewGenesisBlockMainnetCoinbaseMatchesInitialReward(t *testing.T) {
	params := primitives.Mainnet()
	blind, err := primitives.RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	block, err := NewGenesisBlock(params, 1000, blind)
	if err != nil {
		t.Fatal(err)
	}
	commitment, err := primitives.Commit(params.EmissionInitialReward, blind)
	if err != nil {
		t.Fatal(err)
	}
	if block.Body.Outputs[0].Commitment != commitment {
		t.Fatalf("coinbase output does not commit to params.EmissionInitialReward")
	}
}
