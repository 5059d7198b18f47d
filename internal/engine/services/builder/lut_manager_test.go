package builder

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func TestLUTManagerResolveCaches(t *testing.T) {
	table := solana.NewWallet().PublicKey()
	content := solana.PublicKeySlice(keys(3))
	fetches := 0
	m := newLUTManager(func(_ context.Context, addr solana.PublicKey) (solana.PublicKeySlice, error) {
		fetches++
		if addr != table {
			return nil, errors.New("not found")
		}
		return content, nil
	}, nil, 0)

	for range 2 {
		got, err := m.Resolve(context.Background(), []solana.PublicKey{table})
		require.NoError(t, err)
		require.Equal(t, content, got[table])
	}
	require.Equal(t, 1, fetches)

	_, err := m.Resolve(context.Background(), []solana.PublicKey{solana.NewWallet().PublicKey()})
	require.Error(t, err)
}

func TestLUTManagerStartLoadsStatic(t *testing.T) {
	static := keys(2)
	m := newLUTManager(func(_ context.Context, addr solana.PublicKey) (solana.PublicKeySlice, error) {
		if addr == static[1] {
			return nil, errors.New("deactivated")
		}
		return solana.PublicKeySlice{addr}, nil
	}, static, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	require.Equal(t, static, m.Static())
	require.Contains(t, m.snapshot(), static[0])
	require.NotContains(t, m.snapshot(), static[1])
}
