// Package lending adapts the lending protocol's instruction and position API.
// Instructions come back opaque; the engine only orders them.
package lending

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/leverage-engine/internal/domain"
	"github.com/hxuan190/leverage-engine/internal/engine/adapters/wire"
)

type Client struct {
	http *wire.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{http: wire.NewClient(baseURL, timeout, nil)}
}

type operateRequest struct {
	VaultID         uint32 `json:"vaultId"`
	PositionID      uint32 `json:"positionId"`
	CollateralDelta string `json:"collateralDelta"`
	DebtDelta       string `json:"debtDelta"`
	Signer          string `json:"signer"`
	Recipient       string `json:"recipient"`
}

type operateResponse struct {
	Instructions                []*wire.Instruction `json:"instructions"`
	PositionID                  uint32              `json:"positionId"`
	AddressLookupTableAddresses []string            `json:"addressLookupTableAddresses"`
}

type flashRequest struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
	Signer string `json:"signer"`
}

type flashResponse struct {
	Instruction *wire.Instruction `json:"instruction"`
}

// PositionState is the protocol's view of one position in raw units.
type PositionState struct {
	VaultID    uint32
	PositionID uint32
	Owner      solana.PublicKey
	Collateral uint64
	Debt       uint64
	// DebtPriceUSD is the USD price of one debt token.
	DebtPriceUSD decimal.Decimal
}

type positionResponse struct {
	VaultID      uint32 `json:"vaultId"`
	PositionID   uint32 `json:"positionId"`
	Owner        string `json:"owner"`
	Collateral   string `json:"collateral"`
	Debt         string `json:"debt"`
	DebtPriceUSD string `json:"debtPriceUsd"`
}

// WalletPosition is one entry of a wallet's position list.
type WalletPosition struct {
	VaultID    uint32 `json:"vaultId"`
	PositionID uint32 `json:"positionId"`
}

func (c *Client) Operate(ctx context.Context, req domain.OperateRequest) (*domain.OperateResult, error) {
	var resp operateResponse
	err := c.http.Do(ctx, http.MethodPost, "/operate", nil, &operateRequest{
		VaultID:         req.VaultID,
		PositionID:      req.PositionID,
		CollateralDelta: req.CollateralDelta.String(),
		DebtDelta:       req.DebtDelta.String(),
		Signer:          req.Signer.String(),
		Recipient:       req.Recipient.String(),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Instructions) == 0 {
		return nil, fmt.Errorf("operate returned no instructions")
	}
	ixs, err := wire.DecodeAll(resp.Instructions...)
	if err != nil {
		return nil, fmt.Errorf("operate instructions: %w", err)
	}
	tables, err := wire.PublicKeys(resp.AddressLookupTableAddresses)
	if err != nil {
		return nil, fmt.Errorf("operate lookup tables: %w", err)
	}
	return &domain.OperateResult{Instructions: ixs, PositionNftID: resp.PositionID, LookupTables: tables}, nil
}

func (c *Client) FlashBorrow(ctx context.Context, req domain.FlashRequest) (solana.Instruction, error) {
	return c.flash(ctx, "/flashloan/borrow", req)
}

func (c *Client) FlashPayback(ctx context.Context, req domain.FlashRequest) (solana.Instruction, error) {
	return c.flash(ctx, "/flashloan/payback", req)
}

func (c *Client) flash(ctx context.Context, path string, req domain.FlashRequest) (solana.Instruction, error) {
	var resp flashResponse
	err := c.http.Do(ctx, http.MethodPost, path, nil, &flashRequest{
		Asset:  req.Asset.String(),
		Amount: strconv.FormatUint(req.Amount, 10),
		Signer: req.Signer.String(),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Instruction == nil {
		return nil, fmt.Errorf("%s returned no instruction", path)
	}
	return resp.Instruction.Decode()
}

func (c *Client) Position(ctx context.Context, vaultID, positionID uint32) (*PositionState, error) {
	var resp positionResponse
	path := fmt.Sprintf("/positions/%d/%d", vaultID, positionID)
	if err := c.http.Do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}

	owner, err := solana.PublicKeyFromBase58(resp.Owner)
	if err != nil {
		return nil, fmt.Errorf("position owner: %w", err)
	}
	col, err := strconv.ParseUint(resp.Collateral, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("position collateral: %w", err)
	}
	debt, err := strconv.ParseUint(resp.Debt, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("position debt: %w", err)
	}
	price, err := decimal.NewFromString(resp.DebtPriceUSD)
	if err != nil {
		return nil, fmt.Errorf("debt price: %w", err)
	}
	return &PositionState{
		VaultID:      resp.VaultID,
		PositionID:   resp.PositionID,
		Owner:        owner,
		Collateral:   col,
		Debt:         debt,
		DebtPriceUSD: price,
	}, nil
}

func (c *Client) WalletPositions(ctx context.Context, wallet solana.PublicKey) ([]WalletPosition, error) {
	var resp []WalletPosition
	if err := c.http.Do(ctx, http.MethodGet, "/wallets/"+wallet.String()+"/positions", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}
