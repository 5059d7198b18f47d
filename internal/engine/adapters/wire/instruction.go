// Package wire holds the JSON shapes shared by the HTTP adapters.
package wire

import (
	"encoding/base64"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

type AccountMeta struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}

// Instruction is a serialized instruction with base64 data.
type Instruction struct {
	ProgramID string        `json:"programId"`
	Accounts  []AccountMeta `json:"accounts"`
	Data      string        `json:"data"`
}

func (ix *Instruction) Decode() (solana.Instruction, error) {
	programID, err := solana.PublicKeyFromBase58(ix.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("program id: %w", err)
	}
	metas := make(solana.AccountMetaSlice, 0, len(ix.Accounts))
	for _, acc := range ix.Accounts {
		pk, err := solana.PublicKeyFromBase58(acc.Pubkey)
		if err != nil {
			return nil, fmt.Errorf("account %q: %w", acc.Pubkey, err)
		}
		metas = append(metas, solana.NewAccountMeta(pk, acc.IsWritable, acc.IsSigner))
	}
	data, err := base64.StdEncoding.DecodeString(ix.Data)
	if err != nil {
		return nil, fmt.Errorf("instruction data: %w", err)
	}
	return solana.NewInstruction(programID, metas, data), nil
}

// DecodeAll keeps order and skips nil entries.
func DecodeAll(ixs ...*Instruction) ([]solana.Instruction, error) {
	out := make([]solana.Instruction, 0, len(ixs))
	for i, ix := range ixs {
		if ix == nil {
			continue
		}
		decoded, err := ix.Decode()
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		out = append(out, decoded)
	}
	return out, nil
}

func PublicKeys(addrs []string) ([]solana.PublicKey, error) {
	out := make([]solana.PublicKey, 0, len(addrs))
	for _, a := range addrs {
		pk, err := solana.PublicKeyFromBase58(a)
		if err != nil {
			return nil, fmt.Errorf("address %q: %w", a, err)
		}
		out = append(out, pk)
	}
	return out, nil
}

// FromSolana is the inverse of Decode, used by test fixtures and the bundle API.
func FromSolana(ix solana.Instruction) (*Instruction, error) {
	data, err := ix.Data()
	if err != nil {
		return nil, err
	}
	accs := ix.Accounts()
	out := &Instruction{
		ProgramID: ix.ProgramID().String(),
		Accounts:  make([]AccountMeta, 0, len(accs)),
		Data:      base64.StdEncoding.EncodeToString(data),
	}
	for _, a := range accs {
		out.Accounts = append(out.Accounts, AccountMeta{Pubkey: a.PublicKey.String(), IsSigner: a.IsSigner, IsWritable: a.IsWritable})
	}
	return out, nil
}
