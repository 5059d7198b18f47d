package config

import (
	"errors"
	"os"
	"slices"
	"time"

	"github.com/andrew-solarstorm/go-packages/common"
)

type RPCConfig struct {
	RPCUrl    string
	WSUrl     string
	RPCApiKey string

	// Base58 private key used by the execute path. Empty means build-only.
	SignerKey string

	ConfirmTimeout      time.Duration
	ConfirmPollInterval time.Duration
}

func (r *RPCConfig) Key() string {
	return RPC_CONFIG_KEY
}

func (r *RPCConfig) Load() error {
	r.RPCUrl = os.Getenv("RPC_URL")
	r.WSUrl = os.Getenv("WS_URL")
	r.RPCApiKey = os.Getenv("RPC_KEY")
	r.SignerKey = os.Getenv("SIGNER_KEY")
	r.ConfirmTimeout = time.Duration(common.GetEnvOrDefaultInt("CONFIRM_TIMEOUT_SEC", 60)) * time.Second
	r.ConfirmPollInterval = time.Duration(common.GetEnvOrDefaultInt("CONFIRM_POLL_MS", 500)) * time.Millisecond
	return nil
}

func (r *RPCConfig) Validate() error {
	if slices.Contains([]string{r.WSUrl, r.RPCUrl, r.RPCApiKey}, "") {
		return errors.New("invalid rpc config")
	}
	if r.ConfirmTimeout <= 0 || r.ConfirmPollInterval <= 0 {
		return errors.New("invalid confirmation timing")
	}
	return nil
}
