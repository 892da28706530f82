// Package lottery implements uniform winner selection for a round.
//
// Selection is a pure function over the eligible members it is handed;
// the round engine is responsible for excluding members who have
// already won. Randomness is injected so tests can run deterministic
// draws while production uses a cryptographically strong source that
// participants cannot predict or replay.
package lottery

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/marup-app/marup-server/internal/models"
)

// Source provides the randomness for a draw.
type Source interface {
	// Intn returns a uniform random int in [0, n). n must be > 0.
	Intn(n int) int
}

// CryptoSource draws from crypto/rand. It is the production source:
// server-side only and unpredictable to participants.
type CryptoSource struct{}

// Intn returns a uniform random int in [0, n) from the operating
// system's CSPRNG.
func (CryptoSource) Intn(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand failing means the platform RNG is broken;
		// there is no meaningful fallback for a fairness-critical draw.
		panic(fmt.Sprintf("lottery: crypto rand failed: %v", err))
	}
	return int(v.Int64())
}

// Pick selects one winner uniformly at random from eligible. Every
// member has probability 1/len(eligible). It returns an error if
// eligible is empty; callers must check eligibility before drawing.
func Pick(src Source, eligible []models.Member) (models.Member, error) {
	if len(eligible) == 0 {
		return models.Member{}, fmt.Errorf("no eligible members to draw from")
	}
	return eligible[src.Intn(len(eligible))], nil
}
