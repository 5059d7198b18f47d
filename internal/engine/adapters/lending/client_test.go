package lending

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/leverage-engine/internal/domain"
	"github.com/hxuan190/leverage-engine/internal/engine/adapters/wire"
)

func encodedIx(t *testing.T) *wire.Instruction {
	ix, err := wire.FromSolana(solana.NewInstruction(solana.NewWallet().PublicKey(), nil, []byte{4, 2}))
	require.NoError(t, err)
	return ix
}

func TestOperateSendsSignedDeltas(t *testing.T) {
	var got operateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/operate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(operateResponse{
			Instructions: []*wire.Instruction{encodedIx(t), encodedIx(t)},
			PositionID:   12,
		})
	}))
	defer srv.Close()

	wallet := solana.NewWallet().PublicKey()
	res, err := NewClient(srv.URL, time.Second).Operate(context.Background(), domain.OperateRequest{
		VaultID:         3,
		PositionID:      12,
		CollateralDelta: big.NewInt(-5_000_000),
		DebtDelta:       big.NewInt(-4_000_000),
		Signer:          wallet,
		Recipient:       wallet,
	})
	require.NoError(t, err)
	require.Equal(t, "-5000000", got.CollateralDelta)
	require.Equal(t, "-4000000", got.DebtDelta)
	require.Len(t, res.Instructions, 2)
	require.Equal(t, uint32(12), res.PositionNftID)
}

func TestFlashBorrow(t *testing.T) {
	var got flashRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/flashloan/borrow", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(flashResponse{Instruction: encodedIx(t)})
	}))
	defer srv.Close()

	ix, err := NewClient(srv.URL, time.Second).FlashBorrow(context.Background(), domain.FlashRequest{
		Asset:  solana.NewWallet().PublicKey(),
		Amount: 6_000_000,
		Signer: solana.NewWallet().PublicKey(),
	})
	require.NoError(t, err)
	require.Equal(t, "6000000", got.Amount)
	data, err := ix.Data()
	require.NoError(t, err)
	require.Equal(t, []byte{4, 2}, data)
}

func TestPosition(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/positions/3/12", r.URL.Path)
		_ = json.NewEncoder(w).Encode(positionResponse{
			VaultID: 3, PositionID: 12, Owner: owner.String(),
			Collateral: "10000000000", Debt: "40000000", DebtPriceUSD: "1.0001",
		})
	}))
	defer srv.Close()

	pos, err := NewClient(srv.URL, time.Second).Position(context.Background(), 3, 12)
	require.NoError(t, err)
	require.Equal(t, owner, pos.Owner)
	require.Equal(t, uint64(10_000_000_000), pos.Collateral)
	require.Equal(t, uint64(40_000_000), pos.Debt)
	require.True(t, pos.DebtPriceUSD.Equal(decimal.RequireFromString("1.0001")))
}

func TestOperateWithoutInstructionsFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"instructions":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Operate(context.Background(), domain.OperateRequest{
		CollateralDelta: big.NewInt(1),
		DebtDelta:       big.NewInt(0),
	})
	require.Error(t, err)
}
