package rpc

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"

	"github.com/SatoKentaNayoro/test-psbt/pkg/models"
)

type Client struct {
	client *rpcclient.Client
	params *chaincfg.Params
}

func NewClient(host, user, pass string, params *chaincfg.Params) (*Client, error) {
	connCfg := &rpcclient.ConnConfig{
		Host:         host,
		User:         user,
		Pass:         pass,
		HTTPPostMode: true,
		DisableTLS:   true,
	}

	client, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create RPC client: %w", err)
	}

	return &Client{client: client, params: params}, nil
}

func (c *Client) Close() {
	c.client.Shutdown()
}

// ListUnspentByAddress returns the confirmed unspent outputs held by addr.
func (c *Client) ListUnspentByAddress(address string) ([]models.UnspentOutput, error) {
	addr, err := btcutil.DecodeAddress(address, c.params)
	if err != nil {
		return nil, fmt.Errorf("invalid address %s: %w", address, err)
	}

	entries, err := c.client.ListUnspentMinMaxAddresses(1, 9999999, []btcutil.Address{addr})
	if err != nil {
		return nil, fmt.Errorf("failed to list unspent outputs for %s: %w", address, err)
	}

	utxos := make([]models.UnspentOutput, 0, len(entries))
	for _, entry := range entries {
		amount, err := btcutil.NewAmount(entry.Amount)
		if err != nil {
			return nil, fmt.Errorf("invalid amount %f on %s:%d: %w", entry.Amount, entry.TxID, entry.Vout, err)
		}
		utxos = append(utxos, models.UnspentOutput{
			TxID:          entry.TxID,
			Vout:          entry.Vout,
			Address:       entry.Address,
			Value:         int64(amount),
			Confirmations: entry.Confirmations,
			Spendable:     entry.Spendable,
		})
	}

	return utxos, nil
}

// RawTransaction fetches the full previous transaction for a txid. The PSBT
// layer attaches these as non-witness UTXOs so wallets can validate input
// values while signing.
func (c *Client) RawTransaction(txid string) (*wire.MsgTx, error) {
	hash, err := chainhash.NewHashFromStr(txid)
	if err != nil {
		return nil, fmt.Errorf("invalid txid %s: %w", txid, err)
	}

	tx, err := c.client.GetRawTransaction(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get raw transaction %s: %w", txid, err)
	}

	return tx.MsgTx(), nil
}

// ConfirmedBalance returns the wallet's confirmed balance in satoshis.
func (c *Client) ConfirmedBalance() (int64, error) {
	balance, err := c.client.GetBalance("*")
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return int64(balance), nil
}

type processPsbtResult struct {
	Psbt     string `json:"psbt"`
	Complete bool   `json:"complete"`
}

type finalizePsbtResult struct {
	Psbt     string `json:"psbt"`
	Hex      string `json:"hex"`
	Complete bool   `json:"complete"`
}

// ProcessPsbt has the wallet sign every input it holds keys for, under the
// given sighash mode ("ALL" when empty). btcd's rpcclient does not wrap the
// Core wallet PSBT endpoints, so these go through RawRequest.
func (c *Client) ProcessPsbt(psbtB64, sighash string) (string, error) {
	if sighash == "" {
		sighash = "ALL"
	}

	params, err := marshalParams(psbtB64, true, sighash)
	if err != nil {
		return "", err
	}

	raw, err := c.client.RawRequest("walletprocesspsbt", params)
	if err != nil {
		return "", fmt.Errorf("failed to process psbt: %w", err)
	}

	var result processPsbtResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("failed to decode walletprocesspsbt response: %w", err)
	}

	return result.Psbt, nil
}

// FinalizePsbt turns a fully-signed PSBT into broadcastable raw transaction
// hex. The returned complete flag is false when signatures are still missing.
func (c *Client) FinalizePsbt(psbtB64 string) (string, bool, error) {
	params, err := marshalParams(psbtB64, true)
	if err != nil {
		return "", false, err
	}

	raw, err := c.client.RawRequest("finalizepsbt", params)
	if err != nil {
		return "", false, fmt.Errorf("failed to finalize psbt: %w", err)
	}

	var result finalizePsbtResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", false, fmt.Errorf("failed to decode finalizepsbt response: %w", err)
	}

	return result.Hex, result.Complete, nil
}

// Broadcast submits a raw transaction to the network and returns its txid.
func (c *Client) Broadcast(rawHex string) (string, error) {
	serialized, err := hex.DecodeString(rawHex)
	if err != nil {
		return "", fmt.Errorf("invalid raw transaction hex: %w", err)
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(serialized)); err != nil {
		return "", fmt.Errorf("failed to deserialize raw transaction: %w", err)
	}

	txid, err := c.client.SendRawTransaction(tx, false)
	if err != nil {
		return "", fmt.Errorf("failed to broadcast transaction: %w", err)
	}

	return txid.String(), nil
}

func marshalParams(params ...interface{}) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(params))
	for _, param := range params {
		encoded, err := json.Marshal(param)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal rpc parameter: %w", err)
		}
		out = append(out, encoded)
	}
	return out, nil
}
