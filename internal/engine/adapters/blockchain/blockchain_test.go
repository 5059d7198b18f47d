package blockchain

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/leverage-engine/internal/domain"
)

func encode(t *testing.T, v any) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, bin.NewBinEncoder(&buf).Encode(v))
	return buf.Bytes()
}

func wrapperData(t *testing.T, inner solana.PublicKey, invert bool) []byte {
	acc := oracleWrapperAccount{Discriminator: wrapperDiscriminator, Inner: inner}
	if invert {
		acc.Invert = 1
	}
	return encode(t, &acc)
}

func fixedData(t *testing.T, price uint64, expo int32) []byte {
	return encode(t, &fixedPriceAccount{Discriminator: fixedDiscriminator, Price: price, Exponent: expo})
}

func pythData(t *testing.T, verification uint8, price int64, expo int32) []byte {
	hdr := encode(t, &pythHeader{Discriminator: pythPriceUpdateDiscriminator, Verification: verification})
	msg := encode(t, &pythPriceMessage{Price: price, Exponent: expo, PublishTime: 1_700_000_000})
	return append(hdr, msg...)
}

type accounts map[solana.PublicKey][]byte

func (a accounts) fetch(_ context.Context, addr solana.PublicKey) ([]byte, error) {
	data, ok := a[addr]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return data, nil
}

func TestDecodeOracleKinds(t *testing.T) {
	scaled := encode(t, &scaledPriceAccount{
		Discriminator: scaledDiscriminator,
		Price:         bin.Uint128{Lo: 2_500_000_000_000_000_000},
	})

	tests := []struct {
		name string
		data []byte
		kind OracleKind
		want string
	}{
		{name: "fixed", data: fixedData(t, 12345, -2), kind: OracleFixed, want: "123.45"},
		{name: "pyth", data: pythData(t, 1, 15_000_000_000, -8), kind: OraclePythPull, want: "150"},
		{name: "scaled", data: scaled, kind: OracleScaled, want: "2.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := DecodeOracle(tt.data)
			require.NoError(t, err)
			require.Equal(t, tt.kind, r.Kind)
			require.True(t, r.Price.Equal(decimal.RequireFromString(tt.want)), "got %s", r.Price)
		})
	}
}

func TestDecodeOracleRejects(t *testing.T) {
	_, err := DecodeOracle(pythData(t, 0, 100, 0))
	require.ErrorIs(t, err, ErrUnverifiedPrice)

	_, err = DecodeOracle(fixedData(t, 0, 0))
	require.ErrorIs(t, err, ErrNonPositivePrice)

	_, err = DecodeOracle([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9})
	require.ErrorIs(t, err, ErrUnknownOracle)
}

func TestResolveOraclePriceFollowsWrappers(t *testing.T) {
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()
	c := solana.NewWallet().PublicKey()

	accs := accounts{
		a: wrapperData(t, b, true),
		b: wrapperData(t, c, false),
		c: fixedData(t, 4, 0),
	}
	price, err := ResolveOraclePrice(context.Background(), accs.fetch, a)
	require.NoError(t, err)
	require.True(t, price.Equal(decimal.RequireFromString("0.25")), "got %s", price)

	price, err = ResolveOraclePrice(context.Background(), accs.fetch, b)
	require.NoError(t, err)
	require.True(t, price.Equal(decimal.NewFromInt(4)))
}

func TestResolveOraclePriceCycleAndDepth(t *testing.T) {
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()
	cyclic := accounts{a: wrapperData(t, b, false), b: wrapperData(t, a, false)}

	_, err := ResolveOraclePrice(context.Background(), cyclic.fetch, a)
	require.ErrorIs(t, err, ErrOracleCycle)

	chain := accounts{}
	keys := make([]solana.PublicKey, maxOracleDepth+2)
	for i := range keys {
		keys[i] = solana.NewWallet().PublicKey()
	}
	for i := 0; i < len(keys)-1; i++ {
		chain[keys[i]] = wrapperData(t, keys[i+1], false)
	}
	chain[keys[len(keys)-1]] = fixedData(t, 1, 0)

	_, err = ResolveOraclePrice(context.Background(), chain.fetch, keys[0])
	require.ErrorIs(t, err, ErrOracleTooDeep)
}

func TestDecodeVaultConfig(t *testing.T) {
	col := solana.NewWallet().PublicKey()
	debt := solana.NewWallet().PublicKey()
	data := encode(t, &vaultConfigAccount{
		Discriminator:        vaultConfigDiscriminator,
		VaultID:              7,
		CollateralFactor:     800,
		LiquidationThreshold: 850,
		SupplyToken:          col,
		BorrowToken:          debt,
	})

	v, err := DecodeVaultConfig(data)
	require.NoError(t, err)
	require.Equal(t, uint16(7), v.VaultID)
	require.Equal(t, col, v.CollateralMint)
	require.Equal(t, debt, v.DebtMint)
	require.True(t, v.MaxLTV.Equal(decimal.NewFromInt(80)))
	require.True(t, v.LiquidationLTV.Equal(decimal.NewFromInt(85)))

	_, err = DecodeVaultConfig(fixedData(t, 1, 0))
	require.Error(t, err)
}

func TestVaultConfigPDAIsStable(t *testing.T) {
	first, err := VaultConfigPDA(3)
	require.NoError(t, err)
	second, err := VaultConfigPDA(3)
	require.NoError(t, err)
	other, err := VaultConfigPDA(4)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.NotEqual(t, first, other)
}

func TestParseSimulation(t *testing.T) {
	units := uint64(90_000)
	ok := ParseSimulation(nil, []string{"Program log: ok"}, &units)
	require.True(t, ok.Success)
	require.Equal(t, units, ok.ComputeUnitsConsumed)

	logs := []string{
		"Program JUP6 invoke [1]",
		"Program log: Error: ExceededSlippage",
		"Program JUP6 failed: custom program error: 0x1771",
	}
	failed := ParseSimulation(map[string]any{"InstructionError": []any{2, "Custom"}}, logs, nil)
	require.False(t, failed.Success)
	require.Equal(t, logs[1], failed.FailureLine)
	require.True(t, failed.SlippageExceeded)
	require.False(t, failed.InsufficientFunds)

	var simErr *domain.SimulationFailedError
	require.ErrorAs(t, failed.AsError("leverage"), &simErr)
	require.Equal(t, logs[1], simErr.Line)
}

func statuses(values ...*rpc.SignatureStatusesResult) statusFetcher {
	return func(context.Context, bool, ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
		return &rpc.GetSignatureStatusesResult{Value: values}, nil
	}
}

func TestConfirm(t *testing.T) {
	sigs := []solana.Signature{{1}}

	err := confirm(context.Background(), statuses(&rpc.SignatureStatusesResult{
		ConfirmationStatus: rpc.ConfirmationStatusConfirmed,
	}), sigs, time.Second, 10*time.Millisecond)
	require.NoError(t, err)

	err = confirm(context.Background(), statuses(&rpc.SignatureStatusesResult{
		ConfirmationStatus: rpc.ConfirmationStatusProcessed,
		Err:                "boom",
	}), sigs, time.Second, 10*time.Millisecond)
	require.ErrorIs(t, err, domain.ErrSubmissionFailed)

	err = confirm(context.Background(), statuses(nil), sigs, 30*time.Millisecond, 10*time.Millisecond)
	require.ErrorIs(t, err, domain.ErrConfirmationTimeout)

	flaky := func(context.Context, bool, ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
		return nil, errors.New("rpc down")
	}
	err = confirm(context.Background(), flaky, sigs, 30*time.Millisecond, 10*time.Millisecond)
	require.ErrorIs(t, err, domain.ErrConfirmationTimeout)
}

func TestSendMarksTransportFailuresUnknown(t *testing.T) {
	tx := &solana.Transaction{}
	tests := []struct {
		name    string
		err     error
		unknown bool
	}{
		{"timeout", context.DeadlineExceeded, true},
		{"reset", errors.New("read tcp: connection reset by peer"), true},
		{"node rejected", &jsonrpc.RPCError{Code: -32002, Message: "blockhash not found"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := send(context.Background(), func(context.Context, *solana.Transaction, rpc.TransactionOpts) (solana.Signature, error) {
				return solana.Signature{}, tc.err
			}, tx)

			var submission *domain.SubmissionFailedError
			require.ErrorAs(t, err, &submission)
			require.Equal(t, "send", submission.Stage)
			require.Equal(t, tc.unknown, submission.OnChainEffectUnknown)
		})
	}

	sig, err := send(context.Background(), func(_ context.Context, _ *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
		require.True(t, opts.SkipPreflight)
		return solana.Signature{9}, nil
	}, tx)
	require.NoError(t, err)
	require.Equal(t, solana.Signature{9}, sig)
}
