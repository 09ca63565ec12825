package idgen

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"

	"quant-sweep-lab/internal/domain"
)

// SweepHash computes a deterministic content hash for a sweep configuration.
// Formula: base58(SHA256(canonical field rendering)).
//
// Callers key caches and persisted runs on this hash; after the OOM gate
// rewrites the subsample rate, re-deriving the hash from the returned config
// invalidates anything keyed on the old one.
func SweepHash(cfg domain.SweepConfig) string {
	data := fmt.Sprintf("bars=%d|fields=%d|params=%d|width=%d|rate=%.12g|floor=%.12g|k=%d|comm=%.12g|slip=%.12g|qty=%d",
		cfg.Bars,
		cfg.PriceFields,
		cfg.ParamsTotal,
		cfg.ParamWidth,
		cfg.ParamSubsampleRate,
		cfg.MinSubsampleRate,
		cfg.TopK,
		cfg.Commission,
		cfg.Slippage,
		cfg.OrderQty,
	)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}
