// Package chain wraps go-ethereum's client for the one contract this
// submitter talks to: the bridge. Grounded on the teacher's
// pkg/ethereum/client.go wrapper conventions.
package chain

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/certen/rollup-submitter/internal/da"
	"github.com/certen/rollup-submitter/internal/domainerr"
)

// Client is a thin go-ethereum wrapper scoped to bridge interactions:
// reading state root, sending commitBatch transactions, and polling
// receipts for confirmation depth.
type Client struct {
	eth        *ethclient.Client
	chainID    *big.Int
	privateKey *ecdsa.PrivateKey
	fromAddr   common.Address
	bridgeAddr common.Address
	bridgeABI  abi.ABI
}

// Dial connects to rpcURL and binds the wallet derived from
// privateKeyHex to bridgeAddress on chainID.
func Dial(ctx context.Context, rpcURL string, chainID int64, bridgeAddress string, privateKeyHex string) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, domainerr.DaWrap(err, "dial rpc %s", rpcURL)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, domainerr.Config("parse SUBMITTER_PRIVATE_KEY: %v", err)
	}
	publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, domainerr.Internal("could not derive ECDSA public key")
	}

	bridgeABI, err := abi.JSON(strings.NewReader(BridgeABIJSON))
	if err != nil {
		return nil, domainerr.Internal("parse bridge abi: %v", err)
	}

	return &Client{
		eth:        eth,
		chainID:    big.NewInt(chainID),
		privateKey: privateKey,
		fromAddr:   crypto.PubkeyToAddress(*publicKeyECDSA),
		bridgeAddr: common.HexToAddress(bridgeAddress),
		bridgeABI:  bridgeABI,
	}, nil
}

// StateRoot implements orchestrator.BridgeReader by reading the
// bridge's current state root via an eth_call.
func (c *Client) StateRoot(ctx context.Context) (common.Hash, error) {
	callData, err := c.bridgeABI.Pack("stateRoot")
	if err != nil {
		return common.Hash{}, domainerr.DaWrap(err, "pack stateRoot call")
	}

	result, err := c.eth.CallContract(ctx, ethereum.CallMsg{
		To:   &c.bridgeAddr,
		Data: callData,
	}, nil)
	if err != nil {
		return common.Hash{}, domainerr.DaWrap(err, "call stateRoot")
	}

	outputs, err := c.bridgeABI.Unpack("stateRoot", result)
	if err != nil {
		return common.Hash{}, domainerr.DaWrap(err, "unpack stateRoot result")
	}
	root, ok := outputs[0].([32]byte)
	if !ok {
		return common.Hash{}, domainerr.Internal("stateRoot returned unexpected type")
	}
	return common.Hash(root), nil
}

// SendCommitBatch builds, signs, and broadcasts a commitBatch
// transaction, returning its hash without waiting for it to mine —
// confirmation is the orchestrator's job via CheckConfirmation. The
// parameter type is shared with internal/da so a DaStrategy can hand
// its built params straight to this client without translation.
func (c *Client) SendCommitBatch(ctx context.Context, p da.CommitBatchParams) (common.Hash, error) {
	proofTuple := struct {
		A [2]*big.Int
		B [2][2]*big.Int
		C [2]*big.Int
	}{p.Proof.A, p.Proof.B, p.Proof.C}

	callData, err := c.bridgeABI.Pack("commitBatch", p.DaID, p.Data, p.DaMeta, p.NewRoot, proofTuple)
	if err != nil {
		return common.Hash{}, domainerr.DaWrap(err, "pack commitBatch call")
	}

	nonce, err := c.eth.PendingNonceAt(ctx, c.fromAddr)
	if err != nil {
		return common.Hash{}, domainerr.DaWrap(err, "fetch nonce")
	}

	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, domainerr.DaWrap(err, "suggest gas price")
	}
	minGasPrice := big.NewInt(1_000_000_000) // 1 gwei floor
	if gasPrice.Cmp(minGasPrice) < 0 {
		gasPrice = minGasPrice
	}

	gasLimit, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From: c.fromAddr,
		To:   &c.bridgeAddr,
		Data: callData,
	})
	if err != nil {
		return common.Hash{}, domainerr.DaWrap(err, "estimate gas")
	}

	tx := types.NewTransaction(nonce, c.bridgeAddr, big.NewInt(0), gasLimit, gasPrice, callData)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), c.privateKey)
	if err != nil {
		return common.Hash{}, domainerr.DaWrap(err, "sign transaction")
	}

	if err := c.eth.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, domainerr.DaWrap(err, "send transaction")
	}
	return signedTx.Hash(), nil
}

// CheckConfirmation polls for a receipt and reports whether txHash has
// at least one confirming block, matching da_calldata.rs/da_blob.rs's
// identical check_confirmation logic: a reverted receipt is a hard
// error, a missing receipt or an under-confirmed one is "not yet".
func (c *Client) CheckConfirmation(ctx context.Context, txHash common.Hash) (bool, error) {
	receipt, err := c.eth.TransactionReceipt(ctx, txHash)
	if err != nil {
		if err == ethereum.NotFound {
			return false, nil
		}
		return false, domainerr.DaWrap(err, "fetch receipt for %s", txHash)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return false, domainerr.ErrReverted
	}

	currentBlock, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return false, domainerr.DaWrap(err, "fetch current block number")
	}

	var confirmations uint64
	if currentBlock >= receipt.BlockNumber.Uint64() {
		confirmations = currentBlock - receipt.BlockNumber.Uint64()
	}
	return confirmations >= 1, nil
}

// CallContract is a raw eth_call passthrough for read access beyond
// StateRoot. The DA strategies do not call it: their BridgeClient
// interface covers only SendCommitBatch and CheckConfirmation.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	return c.eth.CallContract(ctx, msg, nil)
}

// FromAddress returns the address transactions are signed and sent from.
func (c *Client) FromAddress() common.Address { return c.fromAddr }

// BridgeAddress returns the configured bridge contract address.
func (c *Client) BridgeAddress() common.Address { return c.bridgeAddr }

// Close releases the underlying RPC connection.
func (c *Client) Close() { c.eth.Close() }
