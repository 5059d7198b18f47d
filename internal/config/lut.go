package config

import (
	"os"
	"strings"
	"time"

	"github.com/andrew-solarstorm/go-packages/common"
)

const LUT_CONFIG_KEY = "lut-config"

type LUTConfig struct {
	// Addresses of lookup tables attached to every transaction (base58).
	Addresses []string

	RefreshInterval time.Duration
}

func (c *LUTConfig) Key() string {
	return LUT_CONFIG_KEY
}

func (c *LUTConfig) Load() error {
	c.Addresses = splitList(os.Getenv("LUT_ADDRESSES"))
	c.RefreshInterval = time.Duration(common.GetEnvOrDefaultInt("LUT_REFRESH_SEC", 60)) * time.Second
	return nil
}

func (c *LUTConfig) Validate() error {
	return nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	out := make([]string, 0)
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
