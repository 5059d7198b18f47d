// Package jito submits bundles to a block-engine relay.
package jito

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

// MaxBundleTransactions is the relay's per-bundle limit.
const MaxBundleTransactions = 5

type BundleStatus struct {
	BundleID           string   `json:"bundle_id"`
	Transactions       []string `json:"transactions"`
	Slot               uint64   `json:"slot"`
	ConfirmationStatus string   `json:"confirmation_status"`
	Err                any      `json:"err"`
}

type bundleStatusesResult struct {
	Value []*BundleStatus `json:"value"`
}

type Relay struct {
	client jsonrpc.RPCClient
}

func NewRelay(url string) *Relay {
	return &Relay{client: jsonrpc.NewClient(url)}
}

// SendBundle submits base64 transactions in order and returns the bundle id.
func (r *Relay) SendBundle(ctx context.Context, txs []string) (string, error) {
	if len(txs) == 0 || len(txs) > MaxBundleTransactions {
		return "", fmt.Errorf("bundle must hold 1 to %d transactions, got %d", MaxBundleTransactions, len(txs))
	}
	var bundleID string
	params := []interface{}{txs, map[string]string{"encoding": "base64"}}
	if err := r.client.CallForInto(ctx, &bundleID, "sendBundle", params); err != nil {
		return "", fmt.Errorf("sendBundle: %w", err)
	}
	return bundleID, nil
}

// BundleStatus returns nil while the relay has not landed the bundle.
func (r *Relay) BundleStatus(ctx context.Context, bundleID string) (*BundleStatus, error) {
	var out bundleStatusesResult
	if err := r.client.CallForInto(ctx, &out, "getBundleStatuses", []interface{}{[]string{bundleID}}); err != nil {
		return nil, fmt.Errorf("getBundleStatuses: %w", err)
	}
	for _, st := range out.Value {
		if st != nil && st.BundleID == bundleID {
			return st, nil
		}
	}
	return nil, nil
}
