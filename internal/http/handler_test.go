package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	gohttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/leverage-engine/internal/domain"
	"github.com/hxuan190/leverage-engine/internal/engine"
	"github.com/hxuan190/leverage-engine/internal/engine/adapters/jito"
	"github.com/hxuan190/leverage-engine/internal/http/middlewares"
)

const wallet = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"

func init() {
	gin.SetMode(gin.TestMode)
}

type stubEngine struct {
	swapReq      domain.SwapOperationRequest
	rebalanceReq domain.RebalanceRequest
	buildErr     error
	execErr      error
	partial      *domain.ExecutionResult
	executed     bool
	submitted    []string
	status       *jito.BundleStatus
	invalidated  solana.PublicKey
	vaults       map[uint32]*domain.VaultConfig
}

func (s *stubEngine) result(op domain.Operation) *domain.BuildResult {
	return &domain.BuildResult{
		ID:        "b3c1c7a4-1d0e-4f55-9a3c-0d7f4c1f2e11",
		Operation: op,
		Plan: &domain.TransactionPlan{
			Mode:         domain.PlanModeSingle,
			Transactions: []domain.PlannedTransaction{{Label: string(op), Base64: "AQID", Size: 900}},
		},
	}
}

func (s *stubEngine) Leverage(_ context.Context, req domain.SwapOperationRequest) (*domain.BuildResult, error) {
	s.swapReq = req
	if s.buildErr != nil {
		return nil, s.buildErr
	}
	return s.result(domain.OperationLeverage), nil
}

func (s *stubEngine) Deleverage(_ context.Context, req domain.SwapOperationRequest) (*domain.BuildResult, error) {
	s.swapReq = req
	if s.buildErr != nil {
		return nil, s.buildErr
	}
	return s.result(domain.OperationDeleverage), nil
}

func (s *stubEngine) Rebalance(_ context.Context, req domain.RebalanceRequest) (*domain.BuildResult, error) {
	s.rebalanceReq = req
	if s.buildErr != nil {
		return nil, s.buildErr
	}
	return s.result(domain.OperationRebalance), nil
}

func (s *stubEngine) Execute(context.Context, *domain.TransactionPlan, engine.Signer) (*domain.ExecutionResult, error) {
	s.executed = true
	if s.execErr != nil {
		return s.partial, s.execErr
	}
	return &domain.ExecutionResult{Mode: domain.PlanModeSingle, Signatures: []string{"sig"}, Confirmed: true}, nil
}

func (s *stubEngine) SubmitBundle(_ context.Context, signed []string) (string, error) {
	s.submitted = signed
	return "bundle-1", nil
}

func (s *stubEngine) BundleStatus(context.Context, string) (*jito.BundleStatus, error) {
	return s.status, nil
}

func (s *stubEngine) Positions(_ context.Context, w solana.PublicKey) (*domain.WalletPositions, error) {
	return &domain.WalletPositions{Wallet: w.String()}, nil
}

func (s *stubEngine) RefreshPositions(_ context.Context, w solana.PublicKey) (*domain.WalletPositions, error) {
	return &domain.WalletPositions{Wallet: w.String()}, nil
}

func (s *stubEngine) InvalidatePositions(w solana.PublicKey) error {
	s.invalidated = w
	return nil
}

func (s *stubEngine) Vaults() map[uint32]*domain.VaultConfig {
	return s.vaults
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Details json.RawMessage `json:"details"`
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestLeverageParsesRequest(t *testing.T) {
	eng := &stubEngine{}
	r := NewRouter(eng, nil)

	w, env := do(t, r, gohttp.MethodPost, "/api/v1/leverage", gin.H{
		"wallet":         wallet,
		"vaultId":        1,
		"positionId":     42,
		"amount":         "6.000001",
		"slippageBps":    30,
		"preferredDexes": []string{"Orca"},
		"allowBundle":    true,
	})
	require.Equal(t, gohttp.StatusOK, w.Code)
	require.True(t, env.Success)
	require.False(t, eng.executed)

	require.Equal(t, solana.MustPublicKeyFromBase58(wallet), eng.swapReq.Wallet)
	require.Equal(t, domain.PositionKey{VaultID: 1, PositionID: 42}, eng.swapReq.Position)
	require.True(t, decimal.RequireFromString("6.000001").Equal(eng.swapReq.Amount))
	require.Equal(t, uint16(30), eng.swapReq.SlippageBps)
	require.Equal(t, []string{"Orca"}, eng.swapReq.PreferredDexes)
	require.True(t, eng.swapReq.AllowBundle)

	var res BuildResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.Equal(t, domain.OperationLeverage, res.Operation)
	require.Len(t, res.Plan.Transactions, 1)
	require.Nil(t, res.Execution)
}

func TestOperationErrorMapping(t *testing.T) {
	tooLarge := &domain.TransactionTooLargeError{
		Label:       "leverage",
		Size:        1300,
		Limit:       domain.MaxTransactionSize,
		Mitigations: domain.RankMitigations(68, true, 40),
	}

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", domain.NewValidationError("amount", "must be positive"), gohttp.StatusBadRequest},
		{"no route", fmt.Errorf("select: %w", domain.ErrQuoteUnavailable), gohttp.StatusNotFound},
		{"too large", tooLarge, gohttp.StatusRequestEntityTooLarge},
		{"simulation", &domain.SimulationFailedError{Label: "leverage", Reason: "custom program error"}, gohttp.StatusUnprocessableEntity},
		{"submission", &domain.SubmissionFailedError{Stage: "relay", Err: fmt.Errorf("503"), OnChainEffectUnknown: true}, gohttp.StatusBadGateway},
		{"unknown", fmt.Errorf("boom"), gohttp.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRouter(&stubEngine{buildErr: tc.err}, nil)
			w, env := do(t, r, gohttp.MethodPost, "/api/v1/deleverage", gin.H{
				"wallet": wallet, "vaultId": 1, "positionId": 42, "amount": "1.5",
			})
			require.Equal(t, tc.status, w.Code)
			require.False(t, env.Success)
			require.NotEmpty(t, env.Error)
		})
	}
}

func TestTooLargeCarriesMitigations(t *testing.T) {
	eng := &stubEngine{buildErr: &domain.TransactionTooLargeError{
		Label:       "leverage",
		Size:        1300,
		Limit:       domain.MaxTransactionSize,
		Mitigations: domain.RankMitigations(68, true, 40),
	}}
	w, env := do(t, NewRouter(eng, nil), gohttp.MethodPost, "/api/v1/leverage", gin.H{
		"wallet": wallet, "vaultId": 1, "positionId": 42, "amount": "6",
	})
	require.Equal(t, gohttp.StatusRequestEntityTooLarge, w.Code)

	var details struct {
		Overflow    int                 `json:"overflow"`
		Mitigations []domain.Mitigation `json:"mitigations"`
	}
	require.NoError(t, json.Unmarshal(env.Details, &details))
	require.Equal(t, 68, details.Overflow)
	require.NotEmpty(t, details.Mitigations)
	require.Equal(t, domain.MitigationBundleMode, details.Mitigations[len(details.Mitigations)-1].Kind)
}

func TestBadRequestBodies(t *testing.T) {
	tests := []struct {
		name string
		body gin.H
	}{
		{"missing wallet", gin.H{"vaultId": 1, "amount": "1"}},
		{"bad wallet", gin.H{"wallet": "not-a-key", "vaultId": 1, "amount": "1"}},
		{"bad amount", gin.H{"wallet": wallet, "vaultId": 1, "amount": "1,5"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			eng := &stubEngine{}
			w, _ := do(t, NewRouter(eng, nil), gohttp.MethodPost, "/api/v1/leverage", tc.body)
			require.Equal(t, gohttp.StatusBadRequest, w.Code)
			require.True(t, eng.swapReq.Wallet.IsZero())
		})
	}
}

func TestExecuteFlag(t *testing.T) {
	body := gin.H{"wallet": wallet, "vaultId": 1, "positionId": 42, "amount": "6", "execute": true}

	t.Run("executes", func(t *testing.T) {
		eng := &stubEngine{}
		w, env := do(t, NewRouter(eng, nil), gohttp.MethodPost, "/api/v1/leverage", body)
		require.Equal(t, gohttp.StatusOK, w.Code)
		require.True(t, eng.executed)

		var res BuildResponse
		require.NoError(t, json.Unmarshal(env.Data, &res))
		require.NotNil(t, res.Execution)
		require.True(t, res.Execution.Confirmed)
	})

	t.Run("no signer", func(t *testing.T) {
		eng := &stubEngine{execErr: engine.ErrNoSigner}
		w, _ := do(t, NewRouter(eng, nil), gohttp.MethodPost, "/api/v1/leverage", body)
		require.Equal(t, gohttp.StatusBadRequest, w.Code)
	})

	t.Run("signing rejected", func(t *testing.T) {
		eng := &stubEngine{execErr: &domain.SigningRejectedError{Err: fmt.Errorf("locked")}}
		w, _ := do(t, NewRouter(eng, nil), gohttp.MethodPost, "/api/v1/leverage", body)
		require.Equal(t, gohttp.StatusForbidden, w.Code)
	})

	t.Run("confirmation timeout", func(t *testing.T) {
		eng := &stubEngine{execErr: fmt.Errorf("confirm: %w", domain.ErrConfirmationTimeout)}
		w, _ := do(t, NewRouter(eng, nil), gohttp.MethodPost, "/api/v1/leverage", body)
		require.Equal(t, gohttp.StatusGatewayTimeout, w.Code)
	})

	t.Run("sent but unconfirmed keeps signatures", func(t *testing.T) {
		tests := []struct {
			name   string
			err    error
			status int
		}{
			{"timeout", fmt.Errorf("confirm: %w", domain.ErrConfirmationTimeout), gohttp.StatusGatewayTimeout},
			{"failed on chain", &domain.SubmissionFailedError{Stage: "confirm", Err: fmt.Errorf("custom program error")}, gohttp.StatusBadGateway},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				eng := &stubEngine{
					execErr: tc.err,
					partial: &domain.ExecutionResult{Mode: domain.PlanModeSingle, Signatures: []string{"5igA"}},
				}
				w, env := do(t, NewRouter(eng, nil), gohttp.MethodPost, "/api/v1/leverage", body)
				require.Equal(t, tc.status, w.Code)

				var details struct {
					Execution domain.ExecutionResult `json:"execution"`
				}
				require.NoError(t, json.Unmarshal(env.Details, &details))
				require.Equal(t, []string{"5igA"}, details.Execution.Signatures)
				require.False(t, details.Execution.Confirmed)
			})
		}
	})
}

func TestRebalanceRoute(t *testing.T) {
	eng := &stubEngine{}
	w, _ := do(t, NewRouter(eng, nil), gohttp.MethodPost, "/api/v1/rebalance", gin.H{
		"wallet":           wallet,
		"sourceVaultId":    1,
		"sourcePositionId": 7,
		"targetVaultId":    2,
		"targetPositionId": 9,
		"forceBundle":      true,
	})
	require.Equal(t, gohttp.StatusOK, w.Code)
	require.Equal(t, domain.PositionKey{VaultID: 1, PositionID: 7}, eng.rebalanceReq.Source)
	require.Equal(t, domain.PositionKey{VaultID: 2, PositionID: 9}, eng.rebalanceReq.Target)
	require.True(t, eng.rebalanceReq.ForceBundle)
}

func TestBundleRoutes(t *testing.T) {
	eng := &stubEngine{}
	r := NewRouter(eng, nil)

	w, env := do(t, r, gohttp.MethodPost, "/api/v1/bundle", gin.H{"transactions": []string{"AQID", "BAUG"}})
	require.Equal(t, gohttp.StatusOK, w.Code)
	require.Equal(t, []string{"AQID", "BAUG"}, eng.submitted)
	require.JSONEq(t, `{"bundleId":"bundle-1"}`, string(env.Data))

	w, _ = do(t, r, gohttp.MethodGet, "/api/v1/bundle/unknown", nil)
	require.Equal(t, gohttp.StatusNotFound, w.Code)

	eng.status = &jito.BundleStatus{BundleID: "bundle-1", Slot: 310, ConfirmationStatus: "confirmed"}
	w, env = do(t, r, gohttp.MethodGet, "/api/v1/bundle/bundle-1", nil)
	require.Equal(t, gohttp.StatusOK, w.Code)
	var status jito.BundleStatus
	require.NoError(t, json.Unmarshal(env.Data, &status))
	require.Equal(t, uint64(310), status.Slot)
}

func TestPositionRoutes(t *testing.T) {
	eng := &stubEngine{}
	r := NewRouter(eng, nil)

	w, _ := do(t, r, gohttp.MethodGet, "/api/v1/positions/"+wallet, nil)
	require.Equal(t, gohttp.StatusOK, w.Code)

	w, _ = do(t, r, gohttp.MethodGet, "/api/v1/positions/xyz", nil)
	require.Equal(t, gohttp.StatusBadRequest, w.Code)

	w, _ = do(t, r, gohttp.MethodPost, "/api/v1/positions/"+wallet+"/refresh", nil)
	require.Equal(t, gohttp.StatusOK, w.Code)

	w, _ = do(t, r, gohttp.MethodDelete, "/api/v1/admin/positions/"+wallet, nil)
	require.Equal(t, gohttp.StatusOK, w.Code)
	require.Equal(t, solana.MustPublicKeyFromBase58(wallet), eng.invalidated)
}

func TestVaultsSortedByID(t *testing.T) {
	eng := &stubEngine{vaults: map[uint32]*domain.VaultConfig{
		3: {VaultID: 3},
		1: {VaultID: 1},
		2: {VaultID: 2},
	}}
	w, env := do(t, NewRouter(eng, nil), gohttp.MethodGet, "/api/v1/vaults", nil)
	require.Equal(t, gohttp.StatusOK, w.Code)

	var vaults []domain.VaultConfig
	require.NoError(t, json.Unmarshal(env.Data, &vaults))
	require.Len(t, vaults, 3)
	for i, v := range vaults {
		require.Equal(t, uint32(i+1), v.VaultID)
	}
}

func TestRateLimitedRouter(t *testing.T) {
	r := NewRouter(&stubEngine{}, middlewares.NewRateLimiter(0.001, 1))

	w, _ := do(t, r, gohttp.MethodGet, "/health", nil)
	require.Equal(t, gohttp.StatusOK, w.Code)
	w, _ = do(t, r, gohttp.MethodGet, "/health", nil)
	require.Equal(t, gohttp.StatusTooManyRequests, w.Code)
}
