package blockchain

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

type OracleKind string

const (
	OracleWrapper  OracleKind = "wrapper"
	OraclePythPull OracleKind = "pyth_pull"
	OracleFixed    OracleKind = "fixed"
	OracleScaled   OracleKind = "scaled"
)

const (
	maxOracleDepth   = 4
	scaledPriceExpo  = -18
	pythVerifiedFull = 1
)

var (
	ErrUnknownOracle    = errors.New("unknown oracle account")
	ErrOracleCycle      = errors.New("oracle wrapper cycle")
	ErrOracleTooDeep    = errors.New("oracle wrapper chain too deep")
	ErrUnverifiedPrice  = errors.New("price update is only partially verified")
	ErrNonPositivePrice = errors.New("oracle price is not positive")

	pythPriceUpdateDiscriminator = [8]byte{34, 241, 35, 99, 157, 126, 244, 205}
	wrapperDiscriminator         = accountDiscriminator("OracleWrapper")
	fixedDiscriminator           = accountDiscriminator("FixedPriceOracle")
	scaledDiscriminator          = accountDiscriminator("ScaledPriceOracle")
)

func accountDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

type oracleWrapperAccount struct {
	Discriminator [8]byte
	Inner         solana.PublicKey
	Invert        uint8
}

type pythHeader struct {
	Discriminator  [8]byte
	WriteAuthority solana.PublicKey
	Verification   uint8
}

type pythPriceMessage struct {
	FeedID      [32]byte
	Price       int64
	Conf        uint64
	Exponent    int32
	PublishTime int64
}

type fixedPriceAccount struct {
	Discriminator [8]byte
	Price         uint64
	Exponent      int32
}

type scaledPriceAccount struct {
	Discriminator [8]byte
	Price         bin.Uint128
}

// OracleReading is one decoded oracle account. A wrapper carries only the
// pointer to the next account.
type OracleReading struct {
	Kind        OracleKind
	Price       decimal.Decimal
	Inner       solana.PublicKey
	Invert      bool
	PublishTime int64
}

// DecodeOracle decodes a single oracle account by its discriminator.
func DecodeOracle(data []byte) (*OracleReading, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: %d bytes", ErrUnknownOracle, len(data))
	}
	disc := data[:8]
	switch {
	case bytes.Equal(disc, wrapperDiscriminator[:]):
		var acc oracleWrapperAccount
		if err := bin.NewBinDecoder(data).Decode(&acc); err != nil {
			return nil, fmt.Errorf("decode wrapper: %w", err)
		}
		return &OracleReading{Kind: OracleWrapper, Inner: acc.Inner, Invert: acc.Invert != 0}, nil

	case bytes.Equal(disc, pythPriceUpdateDiscriminator[:]):
		var hdr pythHeader
		if err := bin.NewBinDecoder(data).Decode(&hdr); err != nil {
			return nil, fmt.Errorf("decode price update: %w", err)
		}
		if hdr.Verification != pythVerifiedFull {
			return nil, ErrUnverifiedPrice
		}
		var msg pythPriceMessage
		if err := bin.NewBinDecoder(data[41:]).Decode(&msg); err != nil {
			return nil, fmt.Errorf("decode price message: %w", err)
		}
		return positive(&OracleReading{
			Kind:        OraclePythPull,
			Price:       decimal.New(msg.Price, msg.Exponent),
			PublishTime: msg.PublishTime,
		})

	case bytes.Equal(disc, fixedDiscriminator[:]):
		var acc fixedPriceAccount
		if err := bin.NewBinDecoder(data).Decode(&acc); err != nil {
			return nil, fmt.Errorf("decode fixed price: %w", err)
		}
		return positive(&OracleReading{
			Kind:  OracleFixed,
			Price: decimal.NewFromUint64(acc.Price).Shift(acc.Exponent),
		})

	case bytes.Equal(disc, scaledDiscriminator[:]):
		var acc scaledPriceAccount
		if err := bin.NewBinDecoder(data).Decode(&acc); err != nil {
			return nil, fmt.Errorf("decode scaled price: %w", err)
		}
		return positive(&OracleReading{
			Kind:  OracleScaled,
			Price: decimal.NewFromBigInt(acc.Price.BigInt(), scaledPriceExpo),
		})
	}
	return nil, fmt.Errorf("%w: discriminator %x", ErrUnknownOracle, disc)
}

func positive(r *OracleReading) (*OracleReading, error) {
	if r.Price.Sign() <= 0 {
		return nil, ErrNonPositivePrice
	}
	return r, nil
}

type AccountFetcher func(ctx context.Context, addr solana.PublicKey) ([]byte, error)

// ResolveOraclePrice follows wrapper accounts to a priced oracle and applies
// every inversion on the way back.
func ResolveOraclePrice(ctx context.Context, fetch AccountFetcher, addr solana.PublicKey) (decimal.Decimal, error) {
	seen := make(map[solana.PublicKey]struct{}, maxOracleDepth)
	invert := false

	for depth := 0; depth <= maxOracleDepth; depth++ {
		if _, ok := seen[addr]; ok {
			return decimal.Zero, fmt.Errorf("%w at %s", ErrOracleCycle, addr)
		}
		seen[addr] = struct{}{}

		data, err := fetch(ctx, addr)
		if err != nil {
			return decimal.Zero, fmt.Errorf("fetch oracle %s: %w", addr, err)
		}
		reading, err := DecodeOracle(data)
		if err != nil {
			return decimal.Zero, fmt.Errorf("oracle %s: %w", addr, err)
		}
		if reading.Kind != OracleWrapper {
			if invert {
				return decimal.NewFromInt(1).Div(reading.Price), nil
			}
			return reading.Price, nil
		}
		if reading.Invert {
			invert = !invert
		}
		addr = reading.Inner
	}
	return decimal.Zero, ErrOracleTooDeep
}
