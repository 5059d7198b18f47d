package blockchain

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

var vaultConfigDiscriminator = accountDiscriminator("VaultConfig")

// vaultConfigAccount mirrors the on-chain layout. Ratios are in tenths of a
// percent.
type vaultConfigAccount struct {
	Discriminator        [8]byte
	VaultID              uint16
	SupplyRateMagnifier  int16
	BorrowRateMagnifier  int16
	CollateralFactor     uint16
	LiquidationThreshold uint16
	LiquidationMaxLimit  uint16
	WithdrawGap          uint16
	LiquidationPenalty   uint16
	BorrowFee            uint16
	Oracle               solana.PublicKey
	Rebalancer           solana.PublicKey
	LiquidityProgram     solana.PublicKey
	OracleProgram        solana.PublicKey
	SupplyToken          solana.PublicKey
	BorrowToken          solana.PublicKey
	Bump                 uint8
}

// VaultAccount is the decoded subset the engine needs.
type VaultAccount struct {
	VaultID        uint16
	CollateralMint solana.PublicKey
	DebtMint       solana.PublicKey
	Oracle         solana.PublicKey
	MaxLTV         decimal.Decimal
	LiquidationLTV decimal.Decimal
}

func DecodeVaultConfig(data []byte) (*VaultAccount, error) {
	if len(data) < 8 || !bytes.Equal(data[:8], vaultConfigDiscriminator[:]) {
		return nil, fmt.Errorf("not a vault config account")
	}
	var acc vaultConfigAccount
	if err := bin.NewBinDecoder(data).Decode(&acc); err != nil {
		return nil, fmt.Errorf("decode vault config: %w", err)
	}
	return &VaultAccount{
		VaultID:        acc.VaultID,
		CollateralMint: acc.SupplyToken,
		DebtMint:       acc.BorrowToken,
		Oracle:         acc.Oracle,
		MaxLTV:         decimal.New(int64(acc.CollateralFactor), -1),
		LiquidationLTV: decimal.New(int64(acc.LiquidationThreshold), -1),
	}, nil
}
