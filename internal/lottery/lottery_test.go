package lottery

import (
	"math/rand"
	"testing"

	"github.com/marup-app/marup-server/internal/models"
)

// seededSource adapts math/rand for deterministic test draws.
type seededSource struct {
	r *rand.Rand
}

func newSeededSource(seed int64) *seededSource {
	return &seededSource{r: rand.New(rand.NewSource(seed))}
}

func (s *seededSource) Intn(n int) int { return s.r.Intn(n) }

func members(ids ...string) []models.Member {
	out := make([]models.Member, len(ids))
	for i, id := range ids {
		out[i] = models.Member{ID: "m-" + id, UserID: id}
	}
	return out
}

func TestPick_EmptyEligible(t *testing.T) {
	_, err := Pick(newSeededSource(1), nil)
	if err == nil {
		t.Fatal("expected error for empty eligible set")
	}
}

func TestPick_SingleMember(t *testing.T) {
	eligible := members("alice")
	winner, err := Pick(newSeededSource(1), eligible)
	if err != nil {
		t.Fatalf("Pick failed: %v", err)
	}
	if winner.UserID != "alice" {
		t.Errorf("winner = %s, want alice", winner.UserID)
	}
}

func TestPick_OnlyReturnsEligible(t *testing.T) {
	eligible := members("alice", "bob", "carol")
	valid := map[string]bool{"alice": true, "bob": true, "carol": true}

	src := newSeededSource(42)
	for i := 0; i < 1000; i++ {
		winner, err := Pick(src, eligible)
		if err != nil {
			t.Fatalf("Pick failed: %v", err)
		}
		if !valid[winner.UserID] {
			t.Fatalf("winner %s not in eligible set", winner.UserID)
		}
	}
}

func TestPick_Uniformity(t *testing.T) {
	eligible := members("a", "b", "c", "d")
	counts := make(map[string]int)

	src := newSeededSource(7)
	const draws = 40000
	for i := 0; i < draws; i++ {
		winner, err := Pick(src, eligible)
		if err != nil {
			t.Fatalf("Pick failed: %v", err)
		}
		counts[winner.UserID]++
	}

	// Each member expects draws/4 = 10000 wins. A 5% band is far wider
	// than the sampling noise at this draw count.
	expected := draws / len(eligible)
	tolerance := expected / 20
	for _, m := range eligible {
		got := counts[m.UserID]
		if got < expected-tolerance || got > expected+tolerance {
			t.Errorf("member %s won %d draws, want %d ± %d", m.UserID, got, expected, tolerance)
		}
	}
}

func TestCryptoSource_Range(t *testing.T) {
	src := CryptoSource{}
	for i := 0; i < 100; i++ {
		v := src.Intn(5)
		if v < 0 || v >= 5 {
			t.Fatalf("Intn(5) = %d, out of range", v)
		}
	}
}
