package builder

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/leverage-engine/internal/domain"
	"github.com/hxuan190/leverage-engine/internal/metrics"
)

var (
	ErrNoInstructions     = errors.New("no instructions to assemble")
	ErrLookupTableMissing = errors.New("lookup table not resolved")
)

// Assembler compiles instruction groups into one v0 transaction and measures
// it against the size ceiling. It does no I/O.
type Assembler struct {
	limit int
}

func NewAssembler(limit int) *Assembler {
	if limit <= 0 {
		limit = domain.MaxTransactionSize
	}
	return &Assembler{limit: limit}
}

func (a *Assembler) Limit() int {
	return a.limit
}

type AssembleInput struct {
	Label     string
	Payer     solana.PublicKey
	Blockhash solana.Hash
	Groups    []domain.InstructionGroup
	// Tables holds resolved contents for every table the groups reference.
	Tables map[solana.PublicKey]solana.PublicKeySlice

	// Used only to rank mitigations on overflow.
	HasSwap     bool
	MaxAccounts int
}

// Assemble returns the compiled transaction or a TransactionTooLargeError.
func (a *Assembler) Assemble(in AssembleInput) (domain.PlannedTransaction, error) {
	ixs := Instructions(in.Groups)
	if len(ixs) == 0 {
		return domain.PlannedTransaction{}, ErrNoInstructions
	}

	addrs := LookupTables(in.Groups)
	tables := make(map[solana.PublicKey]solana.PublicKeySlice, len(addrs))
	for _, addr := range addrs {
		content, ok := in.Tables[addr]
		if !ok {
			return domain.PlannedTransaction{}, fmt.Errorf("%w: %s", ErrLookupTableMissing, addr)
		}
		tables[addr] = content
	}

	tx, err := solana.NewTransaction(
		ixs,
		in.Blockhash,
		solana.TransactionPayer(in.Payer),
		solana.TransactionAddressTables(tables),
	)
	if err != nil {
		return domain.PlannedTransaction{}, fmt.Errorf("compile %s: %w", in.Label, err)
	}

	raw, err := Serialize(tx)
	if err != nil {
		return domain.PlannedTransaction{}, fmt.Errorf("serialize %s: %w", in.Label, err)
	}
	size := len(raw)
	metrics.TransactionSize.WithLabelValues(in.Label).Observe(float64(size))

	if size > a.limit {
		metrics.TransactionTooLarge.WithLabelValues(in.Label).Inc()
		return domain.PlannedTransaction{}, &domain.TransactionTooLargeError{
			Label:       in.Label,
			Size:        size,
			Limit:       a.limit,
			Mitigations: domain.RankMitigations(size-a.limit, in.HasSwap, in.MaxAccounts),
		}
	}

	return domain.PlannedTransaction{
		Label:       in.Label,
		Transaction: tx,
		Base64:      base64.StdEncoding.EncodeToString(raw),
		Size:        size,
	}, nil
}

// Serialize pads missing signatures with zero placeholders so the measured
// length matches the signed wire size.
func Serialize(tx *solana.Transaction) ([]byte, error) {
	required := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Signatures) < required {
		sigs := make([]solana.Signature, required)
		copy(sigs, tx.Signatures)
		tx.Signatures = sigs
	}
	return tx.MarshalBinary()
}
