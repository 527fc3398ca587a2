package chain

// OutputFeatures distinguishes standard outputs from coinbase and
// side-chain outputs (§3: "Output (UTXO)").
type OutputFeatures uint8

const (
	OutputStandard  OutputFeatures = 0x00
	OutputCoinbase  OutputFeatures = 0x01
	OutputSideChain OutputFeatures = 0x02
)

// KernelFeatures distinguishes a plain kernel from a coinbase kernel or one
// carrying a burn commitment (§3: "Kernel").
type KernelFeatures uint8

const (
	KernelPlain    KernelFeatures = 0x00
	KernelCoinbase KernelFeatures = 0x01
	KernelBurn     KernelFeatures = 0x02
)
