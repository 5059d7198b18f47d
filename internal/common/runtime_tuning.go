package common

import (
	"os"
	"runtime"
	"runtime/debug"

	"github.com/rs/zerolog/log"
)

const gib = 1024 * 1024 * 1024

// RuntimeProfile holds GC and scheduler settings for a host size. The engine
// is request driven: each build allocates short-lived instruction and quote
// buffers, so a moderate GOGC with a memory ceiling keeps pauses short
// without letting the heap run away during aggregator bursts.
type RuntimeProfile struct {
	Name     string
	GOGC     int
	MemLimit int64
	MaxProcs int
}

// SelectRuntimeProfile picks settings from the CPU count. RAM is not probed;
// the limits assume the usual 2 GiB per vCPU.
func SelectRuntimeProfile(numCPU int) RuntimeProfile {
	switch {
	case numCPU <= 2:
		return RuntimeProfile{Name: "small", GOGC: 200, MemLimit: 3 * gib / 2, MaxProcs: numCPU}
	case numCPU <= 8:
		return RuntimeProfile{Name: "medium", GOGC: 300, MemLimit: 6 * gib, MaxProcs: numCPU}
	default:
		return RuntimeProfile{Name: "large", GOGC: 400, MemLimit: 12 * gib, MaxProcs: numCPU - 1}
	}
}

// InitRuntime applies the detected profile. GOGC, GOMAXPROCS and GOMEMLIMIT
// set in the environment win over the profile.
func InitRuntime() RuntimeProfile {
	p := SelectRuntimeProfile(runtime.NumCPU())

	if os.Getenv("GOGC") == "" {
		debug.SetGCPercent(p.GOGC)
	}
	if os.Getenv("GOMAXPROCS") == "" && p.MaxProcs > 0 {
		runtime.GOMAXPROCS(p.MaxProcs)
	}
	if os.Getenv("GOMEMLIMIT") == "" {
		debug.SetMemoryLimit(p.MemLimit)
	}

	log.Info().
		Str("profile", p.Name).
		Int("num_cpu", runtime.NumCPU()).
		Int("gomaxprocs", runtime.GOMAXPROCS(0)).
		Int64("memlimit_bytes", p.MemLimit).
		Str("go_version", runtime.Version()).
		Msg("[runtime] settings applied")
	return p
}
