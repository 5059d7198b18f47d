package blockchain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/leverage-engine/internal/config"
	"github.com/hxuan190/leverage-engine/internal/domain"
)

const READER_SERVICE = "chain-reader-svc"

var ErrAccountNotFound = errors.New("account not found")

// ReaderService is the chain gateway used by builders and executors.
type ReaderService struct {
	container.BaseDIInstance

	rpcClient      *rpc.Client
	blockhashCache *BlockhashCacheService

	confirmTimeout time.Duration
	pollInterval   time.Duration
}

func (svc *ReaderService) ID() string {
	return READER_SERVICE
}

func (svc *ReaderService) Configure(c container.IContainer) error {
	rpcConfig := c.GetConfig(config.RPC_CONFIG_KEY).(*config.RPCConfig)
	svc.blockhashCache = c.Instance(BLOCKHASH_CACHE_SERVICE).(*BlockhashCacheService)
	svc.rpcClient = rpc.New(rpcConfig.RPCUrl)
	svc.confirmTimeout = rpcConfig.ConfirmTimeout
	svc.pollInterval = rpcConfig.ConfirmPollInterval
	return nil
}

func (svc *ReaderService) Start() error {
	return nil
}

func (svc *ReaderService) Stop() error {
	return nil
}

func (svc *ReaderService) Client() *rpc.Client {
	return svc.rpcClient
}

func (svc *ReaderService) GetBlockhash(ctx context.Context) (solana.Hash, uint64, error) {
	return svc.blockhashCache.GetBlockhash(ctx)
}

// Simulate runs the transaction without signature checks, against the
// latest blockhash. An RPC failure is returned as an error; a program
// failure is reported in the result.
func (svc *ReaderService) Simulate(ctx context.Context, tx *solana.Transaction) (*domain.SimulationResult, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction is nil")
	}
	out, err := svc.rpcClient.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
		SigVerify:              false,
		ReplaceRecentBlockhash: true,
		Commitment:             rpc.CommitmentProcessed,
	})
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	return ParseSimulation(out.Value.Err, out.Value.Logs, out.Value.UnitsConsumed), nil
}

// AccountData returns the raw data of one account.
func (svc *ReaderService) AccountData(ctx context.Context, addr solana.PublicKey) ([]byte, error) {
	info, err := svc.rpcClient.GetAccountInfo(ctx, addr)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
		}
		return nil, err
	}
	if info == nil || info.Value == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	return info.Value.Data.GetBinary(), nil
}

type sendFunc func(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)

// Send submits a signed transaction. Preflight is skipped because every
// build is simulated before it is handed out.
func (svc *ReaderService) Send(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	return send(ctx, svc.rpcClient.SendTransactionWithOpts, tx)
}

// A JSON-RPC error means the node refused the transaction. Any other failure
// leaves open whether it reached a leader.
func send(ctx context.Context, fn sendFunc, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := fn(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       true,
		PreflightCommitment: rpc.CommitmentProcessed,
	})
	if err != nil {
		var rpcErr *jsonrpc.RPCError
		return solana.Signature{}, &domain.SubmissionFailedError{
			Stage:                "send",
			Err:                  err,
			OnChainEffectUnknown: !errors.As(err, &rpcErr),
		}
	}
	return sig, nil
}

// Confirm polls until every signature reaches confirmed commitment.
func (svc *ReaderService) Confirm(ctx context.Context, sigs []solana.Signature) error {
	return confirm(ctx, svc.rpcClient.GetSignatureStatuses, sigs, svc.confirmTimeout, svc.pollInterval)
}

type statusFetcher func(ctx context.Context, searchHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)

func confirm(ctx context.Context, fetch statusFetcher, sigs []solana.Signature, timeout, interval time.Duration) error {
	if len(sigs) == 0 {
		return nil
	}
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := checkStatuses(ctx, fetch, sigs)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return &domain.ConfirmationTimeoutError{Signature: sigs[0].String(), Waited: time.Since(start)}
		case <-ticker.C:
		}
	}
}

func checkStatuses(ctx context.Context, fetch statusFetcher, sigs []solana.Signature) (bool, error) {
	out, err := fetch(ctx, true, sigs...)
	if err != nil {
		log.Warn().Err(err).Msg("[ReaderService] signature status poll failed")
		return false, nil
	}
	if out == nil || len(out.Value) < len(sigs) {
		return false, nil
	}
	for i, st := range out.Value {
		if st == nil {
			return false, nil
		}
		if st.Err != nil {
			return false, &domain.SubmissionFailedError{
				Stage: "confirm",
				Err:   fmt.Errorf("transaction %s failed on chain: %v", sigs[i], st.Err),
			}
		}
		if st.ConfirmationStatus != rpc.ConfirmationStatusConfirmed &&
			st.ConfirmationStatus != rpc.ConfirmationStatusFinalized {
			return false, nil
		}
	}
	return true, nil
}
