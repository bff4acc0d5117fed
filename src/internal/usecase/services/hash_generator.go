package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/codexac/coin-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/codexac/coin-ledger/src/internal/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const hashSaltBytes = 16

// HashGenerator produces transaction hashes that are not yet present on the chain.
type HashGenerator struct {
	now     func() time.Time
	entropy io.Reader
}

func NewHashGenerator(now func() time.Time) *HashGenerator {
	if now == nil {
		now = time.Now
	}
	return &HashGenerator{
		now:     now,
		entropy: rand.Reader,
	}
}

// Generate hashes from, to and amount together with the wall clock, a random
// salt and a random UUID, regenerating until the index reports the hash unused.
func (g *HashGenerator) Generate(ctx context.Context, index repo_interfaces.HashIndex, from string, to string, amount decimal.Decimal) (string, error) {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("generate transaction hash: %w", err)
		}

		salt := make([]byte, hashSaltBytes)
		if _, err := io.ReadFull(g.entropy, salt); err != nil {
			return "", fmt.Errorf("read hash salt: %w", err)
		}

		payload := fmt.Sprintf("%s-%s-%s-%d-%s-%s",
			from,
			to,
			amount.String(),
			g.now().UnixNano(),
			hex.EncodeToString(salt),
			uuid.NewString(),
		)
		sum := sha256.Sum256([]byte(payload))
		hash := hex.EncodeToString(sum[:])

		exists, err := index.HashExists(ctx, hash)
		if err != nil {
			return "", fmt.Errorf("check transaction hash: %w", err)
		}
		if !exists {
			return hash, nil
		}

		logger.Info("hash generator collision, regenerating", logger.Fields{
			"attempt": attempt,
		})
	}
}
