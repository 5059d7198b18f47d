// Package common contains common constants and variables used across services
package common

import "github.com/gagliardetto/solana-go"

var (
	TokenProgramID  = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	Token2022ID     = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
	SystemProgramID = solana.SystemProgramID

	// Lending protocol programs.
	VaultsProgramID    = solana.MustPublicKeyFromBase58("jupr81YtYssSyPt8jbnGuiWon5f6x9TcDEFxYe3Bdzi")
	OracleProgramID    = solana.MustPublicKeyFromBase58("jupnw4B6Eqs7ft6rxpzYLJZYSnrpRgPcr589n5Kv4oc")
	LiquidityProgramID = solana.MustPublicKeyFromBase58("jupeiUmn818Jg1ekPURTpr4mFo29p46vygyykFJ3wZC")

	VaultConfigSeed = "vault_config"
	VaultStateSeed  = "vault_state"
	PositionSeed    = "position"
)

// Jito block engine tip accounts.
var JitoTipAccounts = []solana.PublicKey{
	solana.MustPublicKeyFromBase58("96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5"),
	solana.MustPublicKeyFromBase58("HFqU5x63VTqvQss8hp11i4wVV8bD44PvwucfZ2bU7gRe"),
	solana.MustPublicKeyFromBase58("Cw8CFyM9FkoMi7K7Crf6HNQqf4uEMzpKw6QNghXLvLkY"),
	solana.MustPublicKeyFromBase58("ADaUMid9yfUytqMBgopwjb2DTLSokTSzL1zt6iGPaS49"),
	solana.MustPublicKeyFromBase58("DfXygSm4jCyNCybVYYK6DwvWqjKee8pbDmJGcLWNDXjh"),
	solana.MustPublicKeyFromBase58("ADuUkR4vqLUMWXxW9gh6D6L8pMSawimctcNZ5pGwDcEt"),
	solana.MustPublicKeyFromBase58("DttWaMuVvTiduZRnguLF7jNxTgiMBZ1hyAumKUiL2KRL"),
	solana.MustPublicKeyFromBase58("3AVi9Tg9Uo68tJfuvoKvqKNWKkC5wPdSSdeBnizKZ6jT"),
}

const MinJitoTipLamports uint64 = 1000
