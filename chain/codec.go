package chain

import "github.com/tari-project/basenode/primitives"

// maxFieldLen bounds every variable-length field decoded from an untrusted
// or stored byte stream, mirroring primitives.Reader.VarBytes's own
// truncation-safety contract.
const maxFieldLen = 1 << 24

// DecodeOutput parses the encoding produced by Output.Bytes.
func DecodeOutput(b []byte) (Output, error) {
	r := primitives.NewReader(b)
	withoutProof, err := r.VarBytes(maxFieldLen)
	if err != nil {
		return Output{}, err
	}
	rangeProof, err := r.VarBytes(maxFieldLen)
	if err != nil {
		return Output{}, err
	}

	wr := primitives.NewReader(withoutProof)
	version, err := wr.U8()
	if err != nil {
		return Output{}, err
	}
	features, err := wr.U8()
	if err != nil {
		return Output{}, err
	}
	maturity, err := wr.U64()
	if err != nil {
		return Output{}, err
	}
	commitmentBytes, err := wr.Bytes(33)
	if err != nil {
		return Output{}, err
	}
	commitment, err := primitives.CommitmentFromBytes(commitmentBytes)
	if err != nil {
		return Output{}, err
	}
	script, err := wr.VarBytes(maxFieldLen)
	if err != nil {
		return Output{}, err
	}
	senderOffsetBytes, err := wr.Bytes(33)
	if err != nil {
		return Output{}, err
	}
	senderOffset, err := primitives.CommitmentFromBytes(senderOffsetBytes)
	if err != nil {
		return Output{}, err
	}
	sigBytes, err := wr.VarBytes(maxFieldLen)
	if err != nil {
		return Output{}, err
	}
	metadataSig, err := primitives.SignatureFromBytes(sigBytes)
	if err != nil {
		return Output{}, err
	}
	covenant, err := wr.VarBytes(maxFieldLen)
	if err != nil {
		return Output{}, err
	}
	encryptedData, err := wr.VarBytes(maxFieldLen)
	if err != nil {
		return Output{}, err
	}
	minimumValuePromise, err := wr.U64()
	if err != nil {
		return Output{}, err
	}

	return Output{
		Version:               version,
		Features:              OutputFeatures(features),
		Maturity:              maturity,
		Commitment:            commitment,
		RangeProof:            primitives.RangeProof(rangeProof),
		Script:                append([]byte(nil), script...),
		SenderOffsetPublicKey: senderOffset,
		MetadataSignature:     metadataSig,
		Covenant:              append([]byte(nil), covenant...),
		EncryptedData:         append([]byte(nil), encryptedData...),
		MinimumValuePromise:   minimumValuePromise,
	}, nil
}

// DecodeInput parses the encoding produced by Input.Bytes.
func DecodeInput(b []byte) (Input, error) {
	r := primitives.NewReader(b)
	version, err := r.U8()
	if err != nil {
		return Input{}, err
	}
	features, err := r.U8()
	if err != nil {
		return Input{}, err
	}
	commitmentBytes, err := r.Bytes(33)
	if err != nil {
		return Input{}, err
	}
	commitment, err := primitives.CommitmentFromBytes(commitmentBytes)
	if err != nil {
		return Input{}, err
	}
	script, err := r.VarBytes(maxFieldLen)
	if err != nil {
		return Input{}, err
	}
	inputData, err := r.VarBytes(maxFieldLen)
	if err != nil {
		return Input{}, err
	}
	sigBytes, err := r.VarBytes(maxFieldLen)
	if err != nil {
		return Input{}, err
	}
	scriptSig, err := primitives.SignatureFromBytes(sigBytes)
	if err != nil {
		return Input{}, err
	}
	senderOffsetBytes, err := r.Bytes(33)
	if err != nil {
		return Input{}, err
	}
	senderOffset, err := primitives.CommitmentFromBytes(senderOffsetBytes)
	if err != nil {
		return Input{}, err
	}
	outputHash, err := r.Hash()
	if err != nil {
		return Input{}, err
	}
	covenant, err := r.VarBytes(maxFieldLen)
	if err != nil {
		return Input{}, err
	}
	encryptedData, err := r.VarBytes(maxFieldLen)
	if err != nil {
		return Input{}, err
	}
	minimumValuePromise, err := r.U64()
	if err != nil {
		return Input{}, err
	}
	metaSigBytes, err := r.VarBytes(maxFieldLen)
	if err != nil {
		return Input{}, err
	}
	metadataSig, err := primitives.SignatureFromBytes(metaSigBytes)
	if err != nil {
		return Input{}, err
	}
	rangeProofHash, err := r.Hash()
	if err != nil {
		return Input{}, err
	}

	return Input{
		Version:               version,
		Features:              OutputFeatures(features),
		Commitment:            commitment,
		Script:                append([]byte(nil), script...),
		InputData:             append([]byte(nil), inputData...),
		ScriptSignature:       scriptSig,
		SenderOffsetPublicKey: senderOffset,
		OutputHash:            outputHash,
		Covenant:              append([]byte(nil), covenant...),
		EncryptedData:         append([]byte(nil), encryptedData...),
		MinimumValuePromise:   minimumValuePromise,
		MetadataSignature:     metadataSig,
		RangeProofHash:        rangeProofHash,
	}, nil
}

// DecodeKernel parses the encoding produced by Kernel.Bytes.
func DecodeKernel(b []byte) (Kernel, error) {
	r := primitives.NewReader(b)
	version, err := r.U8()
	if err != nil {
		return Kernel{}, err
	}
	features, err := r.U8()
	if err != nil {
		return Kernel{}, err
	}
	fee, err := r.U64()
	if err != nil {
		return Kernel{}, err
	}
	lockHeight, err := r.U64()
	if err != nil {
		return Kernel{}, err
	}
	excessBytes, err := r.Bytes(33)
	if err != nil {
		return Kernel{}, err
	}
	excess, err := primitives.CommitmentFromBytes(excessBytes)
	if err != nil {
		return Kernel{}, err
	}
	sigBytes, err := r.VarBytes(maxFieldLen)
	if err != nil {
		return Kernel{}, err
	}
	excessSig, err := primitives.SignatureFromBytes(sigBytes)
	if err != nil {
		return Kernel{}, err
	}
	hasBurn, err := r.U8()
	if err != nil {
		return Kernel{}, err
	}
	var burn *primitives.Commitment
	if hasBurn != 0 {
		burnBytes, err := r.Bytes(33)
		if err != nil {
			return Kernel{}, err
		}
		c, err := primitives.CommitmentFromBytes(burnBytes)
		if err != nil {
			return Kernel{}, err
		}
		burn = &c
	}

	return Kernel{
		Version:        version,
		Features:       KernelFeatures(features),
		Fee:            fee,
		LockHeight:     lockHeight,
		Excess:         excess,
		ExcessSig:      excessSig,
		BurnCommitment: burn,
	}, nil
}

// DecodeAggregateBody parses the encoding produced by AggregateBody.Bytes.
func DecodeAggregateBody(b []byte) (AggregateBody, error) {
	r := primitives.NewReader(b)
	nInputs, err := r.CompactSize()
	if err != nil {
		return AggregateBody{}, err
	}
	nOutputs, err := r.CompactSize()
	if err != nil {
		return AggregateBody{}, err
	}
	nKernels, err := r.CompactSize()
	if err != nil {
		return AggregateBody{}, err
	}

	inputs := make(InputList, nInputs)
	for i := range inputs {
		raw, err := r.VarBytes(maxFieldLen)
		if err != nil {
			return AggregateBody{}, err
		}
		inputs[i], err = DecodeInput(raw)
		if err != nil {
			return AggregateBody{}, err
		}
	}
	outputs := make(OutputList, nOutputs)
	for i := range outputs {
		raw, err := r.VarBytes(maxFieldLen)
		if err != nil {
			return AggregateBody{}, err
		}
		outputs[i], err = DecodeOutput(raw)
		if err != nil {
			return AggregateBody{}, err
		}
	}
	kernels := make(KernelList, nKernels)
	for i := range kernels {
		raw, err := r.VarBytes(maxFieldLen)
		if err != nil {
			return AggregateBody{}, err
		}
		kernels[i], err = DecodeKernel(raw)
		if err != nil {
			return AggregateBody{}, err
		}
	}

	return AggregateBody{Inputs: inputs, Outputs: outputs, Kernels: kernels}, nil
}

// DecodeBlockHeader parses the full encoding produced by BlockHeader.Bytes
// (including the nonce and PoW payload, unlike BytesWithoutPow).
func DecodeBlockHeader(b []byte) (BlockHeader, error) {
	r := primitives.NewReader(b)
	withoutPow, err := r.VarBytes(maxFieldLen)
	if err != nil {
		return BlockHeader{}, err
	}
	nonce, err := r.U64()
	if err != nil {
		return BlockHeader{}, err
	}
	algo, err := r.U8()
	if err != nil {
		return BlockHeader{}, err
	}
	powData, err := r.VarBytes(maxFieldLen)
	if err != nil {
		return BlockHeader{}, err
	}

	wr := primitives.NewReader(withoutPow)
	version, err := wr.U32()
	if err != nil {
		return BlockHeader{}, err
	}
	height, err := wr.U64()
	if err != nil {
		return BlockHeader{}, err
	}
	prevHash, err := wr.Hash()
	if err != nil {
		return BlockHeader{}, err
	}
	timestamp, err := wr.I64()
	if err != nil {
		return BlockHeader{}, err
	}
	outputMR, err := wr.Hash()
	if err != nil {
		return BlockHeader{}, err
	}
	kernelMR, err := wr.Hash()
	if err != nil {
		return BlockHeader{}, err
	}
	inputMR, err := wr.Hash()
	if err != nil {
		return BlockHeader{}, err
	}
	kernelOffsetBytes, err := wr.Bytes(32)
	if err != nil {
		return BlockHeader{}, err
	}
	kernelOffset, err := primitives.ScalarFromBytes(kernelOffsetBytes)
	if err != nil {
		return BlockHeader{}, err
	}
	scriptOffsetBytes, err := wr.Bytes(32)
	if err != nil {
		return BlockHeader{}, err
	}
	scriptOffset, err := primitives.ScalarFromBytes(scriptOffsetBytes)
	if err != nil {
		return BlockHeader{}, err
	}
	kernelMMRSize, err := wr.U64()
	if err != nil {
		return BlockHeader{}, err
	}
	outputMMRSize, err := wr.U64()
	if err != nil {
		return BlockHeader{}, err
	}
	validatorNodeMerkleRoot, err := wr.VarBytes(maxFieldLen)
	if err != nil {
		return BlockHeader{}, err
	}
	validatorNodeSize, err := wr.U64()
	if err != nil {
		return BlockHeader{}, err
	}

	return BlockHeader{
		Version:                 uint16(version),
		Height:                  height,
		PrevHash:                prevHash,
		Timestamp:               timestamp,
		OutputMR:                outputMR,
		KernelMR:                kernelMR,
		InputMR:                 inputMR,
		TotalKernelOffset:       kernelOffset,
		TotalScriptOffset:       scriptOffset,
		Nonce:                   nonce,
		Pow:                     ProofOfWork{Algo: PowAlgo(algo), PowData: append([]byte(nil), powData...)},
		KernelMMRSize:           kernelMMRSize,
		OutputMMRSize:           outputMMRSize,
		ValidatorNodeMerkleRoot: append([]byte(nil), validatorNodeMerkleRoot...),
		ValidatorNodeSize:       validatorNodeSize,
	}, nil
}

// DecodeBlock parses header || body, the persisted body encoding the Chain
// State Store uses for block_bodies_by_hash (§4.5).
func DecodeBlock(headerBytes, bodyBytes []byte) (Block, error) {
	header, err := DecodeBlockHeader(headerBytes)
	if err != nil {
		return Block{}, err
	}
	body, err := DecodeAggregateBody(bodyBytes)
	if err != nil {
		return Block{}, err
	}
	return Block{Header: header, Body: body}, nil
}
