package engine

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Signer is the wallet collaborator. Returning an error means the user or
// wallet declined; nothing has been sent at that point.
type Signer interface {
	PublicKey() solana.PublicKey
	Sign(ctx context.Context, tx *solana.Transaction) error
}

// KeypairSigner signs with a local private key.
type KeypairSigner struct {
	key solana.PrivateKey
}

func NewKeypairSigner(base58Key string) (*KeypairSigner, error) {
	key, err := solana.PrivateKeyFromBase58(base58Key)
	if err != nil {
		return nil, fmt.Errorf("invalid signer key: %w", err)
	}
	return &KeypairSigner{key: key}, nil
}

func (s *KeypairSigner) PublicKey() solana.PublicKey {
	return s.key.PublicKey()
}

func (s *KeypairSigner) Sign(_ context.Context, tx *solana.Transaction) error {
	// drop the zero placeholders left by size measurement
	tx.Signatures = nil
	_, err := tx.Sign(func(k solana.PublicKey) *solana.PrivateKey {
		if k.Equals(s.key.PublicKey()) {
			return &s.key
		}
		return nil
	})
	return err
}
