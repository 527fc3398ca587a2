package p2p

// Command names identify the payload codec for a Message (§4.8's message
// set), mirroring the teacher's messages.go command-constant table.
const (
	CmdVersion = "version"
	CmdVerack  = "verack"

	CmdPing = "ping"
	CmdPong = "pong"

	CmdGetHeaders = "getheaders"
	CmdHeaders    = "headers"

	CmdGetBlocks = "getblocks"
	CmdBlock     = "block"

	CmdNewBlockAnnounce = "newblock"

	CmdGetMempoolTx = "getmempooltx"
	CmdTx           = "tx"
	CmdNewTxAnnounce = "newtx"
)
