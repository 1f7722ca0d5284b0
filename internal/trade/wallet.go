package trade

import (
	"github.com/btcsuite/btcd/wire"

	"github.com/SatoKentaNayoro/test-psbt/pkg/models"
)

// Wallet is the node RPC surface the trade flow depends on. Three
// independent connections implement it: the asset owner's full node, the
// seller's wallet and the buyer's wallet.
type Wallet interface {
	ListUnspentByAddress(address string) ([]models.UnspentOutput, error)
	RawTransaction(txid string) (*wire.MsgTx, error)
	ConfirmedBalance() (int64, error)
	ProcessPsbt(psbtB64, sighash string) (string, error)
	FinalizePsbt(psbtB64 string) (string, bool, error)
	Broadcast(rawHex string) (string, error)
}

// SighashSingleAnyoneCanPay is the Core wallet name for the restrictive mode
// the seller signs under: the signature commits only to the seller's own
// input/output pair, so the buyer can append inputs and outputs later without
// invalidating it.
const SighashSingleAnyoneCanPay = "SINGLE|ANYONECANPAY"
