package blockchain

import (
	"encoding/binary"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/leverage-engine/internal/common"
)

var (
	vaultConfigPDACache   = make(map[uint16]solana.PublicKey)
	vaultConfigPDACacheMu sync.RWMutex
)

// VaultConfigPDA derives and caches the config account of a vault.
func VaultConfigPDA(vaultID uint16) (solana.PublicKey, error) {
	vaultConfigPDACacheMu.RLock()
	if pda, ok := vaultConfigPDACache[vaultID]; ok {
		vaultConfigPDACacheMu.RUnlock()
		return pda, nil
	}
	vaultConfigPDACacheMu.RUnlock()

	pda, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(common.VaultConfigSeed), u16LE(vaultID)},
		common.VaultsProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, err
	}

	vaultConfigPDACacheMu.Lock()
	vaultConfigPDACache[vaultID] = pda
	vaultConfigPDACacheMu.Unlock()
	return pda, nil
}

func PositionPDA(vaultID uint16, positionID uint32) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(common.PositionSeed), u16LE(vaultID), u32LE(positionID)},
		common.VaultsProgramID,
	)
	return pda, err
}

func u16LE(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func u32LE(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}
