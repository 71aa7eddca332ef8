package solver

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/reconcile-core/internal/domain/candidate"
)

func inv(id string, amount string) candidate.MatchCandidate {
	return candidate.MatchCandidate{
		ID:            id,
		Residual:      decimal.RequireFromString(amount),
		InvoiceNumber: "INV-" + id,
		Provenance:    candidate.ProvenanceInvoice,
	}
}

func bare(id string, amount string) candidate.MatchCandidate {
	return candidate.MatchCandidate{
		ID:         id,
		Residual:   decimal.RequireFromString(amount),
		Provenance: candidate.ProvenanceBare,
	}
}

func pickedIDs(sol Solution) []string {
	ids := make([]string, len(sol.Picks))
	for i, p := range sol.Picks {
		ids[i] = p.ID
	}
	return ids
}

func TestSolve_TwoInvoiceCombination(t *testing.T) {
	cands := []candidate.MatchCandidate{
		inv("A", "10000"),
		inv("B", "15000"),
		bare("C", "7000"),
	}

	sol := Solve(cands, decimal.NewFromInt(25000), DefaultConfig())

	require.True(t, sol.Found())
	assert.Equal(t, StrategyCombination, sol.Strategy)
	assert.ElementsMatch(t, []string{"A", "B"}, pickedIDs(sol))
	assert.True(t, sol.Total().Equal(decimal.NewFromInt(25000)))
}

func TestSolve_SingleInvoicePreferred(t *testing.T) {
	// Both {X} and {Y, Z} hit the target. X is an invoice, so it wins.
	cands := []candidate.MatchCandidate{
		bare("Y", "600"),
		bare("Z", "400"),
		inv("X", "1000"),
	}

	sol := Solve(cands, decimal.NewFromInt(1000), DefaultConfig())

	require.True(t, sol.Found())
	assert.Equal(t, StrategySingleInvoice, sol.Strategy)
	assert.Equal(t, []string{"X"}, pickedIDs(sol))
}

func TestSolve_SingleBareBeatsPair(t *testing.T) {
	cands := []candidate.MatchCandidate{
		bare("Y", "600"),
		bare("Z", "400"),
		bare("W", "1000"),
	}

	sol := Solve(cands, decimal.NewFromInt(1000), DefaultConfig())

	require.True(t, sol.Found())
	assert.Equal(t, StrategyCombination, sol.Strategy)
	assert.Equal(t, []string{"W"}, pickedIDs(sol))
}

func TestSolve_SmallestCardinalityWins(t *testing.T) {
	// 100 = 50+30+20 = 60+40; the pair must win
	cands := []candidate.MatchCandidate{
		bare("a", "50"), bare("b", "30"), bare("c", "20"),
		bare("d", "60"), bare("e", "40"),
	}

	sol := Solve(cands, decimal.NewFromInt(100), DefaultConfig())

	require.True(t, sol.Found())
	assert.Len(t, sol.Picks, 2)
	assert.ElementsMatch(t, []string{"d", "e"}, pickedIDs(sol))
}

func TestSolve_TieBrokenByDescendingVisitOrder(t *testing.T) {
	// {70,30} and {60,40} both sum to 100; 70 is visited first
	cands := []candidate.MatchCandidate{
		bare("b", "40"), bare("a", "60"), bare("c", "30"), bare("d", "70"),
	}

	sol := Solve(cands, decimal.NewFromInt(100), DefaultConfig())

	require.True(t, sol.Found())
	assert.Equal(t, []string{"d", "c"}, pickedIDs(sol))
}

func TestSolve_Deterministic(t *testing.T) {
	cands := []candidate.MatchCandidate{
		bare("a", "10"), bare("b", "20"), bare("c", "30"), bare("d", "40"), bare("e", "15"),
	}
	first := Solve(cands, decimal.NewFromInt(55), DefaultConfig())
	for i := 0; i < 5; i++ {
		again := Solve(cands, decimal.NewFromInt(55), DefaultConfig())
		assert.Equal(t, pickedIDs(first), pickedIDs(again))
	}
}

func TestSolve_NoCombination(t *testing.T) {
	cands := []candidate.MatchCandidate{bare("a", "10"), bare("b", "20")}

	sol := Solve(cands, decimal.NewFromInt(25), DefaultConfig())

	assert.False(t, sol.Found())
	assert.Empty(t, sol.Picks)
	assert.Equal(t, StrategyNone, sol.Strategy)
}

func TestSolve_InvalidInputs(t *testing.T) {
	cands := []candidate.MatchCandidate{bare("a", "10")}

	assert.False(t, Solve(cands, decimal.Zero, DefaultConfig()).Found())
	assert.False(t, Solve(cands, decimal.NewFromInt(-10), DefaultConfig()).Found())
	assert.False(t, Solve(nil, decimal.NewFromInt(10), DefaultConfig()).Found())

	cfg := DefaultConfig()
	cfg.MaxSubsetSize = 0
	assert.False(t, Solve(cands, decimal.NewFromInt(10), cfg).Found())
}

func TestSolve_MaxSubsetSizeBoundary(t *testing.T) {
	// Six distinct powers of two; each target has exactly one decomposition
	var cands []candidate.MatchCandidate
	for i := 0; i < 6; i++ {
		cands = append(cands, bare(fmt.Sprintf("p%d", i), decimal.NewFromInt(1<<i).String()))
	}

	cfg := DefaultConfig()

	// 1+2+4+8+16 = 31 needs exactly five
	sol := Solve(cands, decimal.NewFromInt(31), cfg)
	require.True(t, sol.Found())
	assert.Len(t, sol.Picks, 5)

	// 63 needs all six, which is over the limit
	sol = Solve(cands, decimal.NewFromInt(63), cfg)
	assert.False(t, sol.Found())

	cfg.MaxSubsetSize = 6
	sol = Solve(cands, decimal.NewFromInt(63), cfg)
	require.True(t, sol.Found())
	assert.Len(t, sol.Picks, 6)
}

func TestSolve_ToleranceBoundary(t *testing.T) {
	cands := []candidate.MatchCandidate{bare("a", "100.00"), bare("b", "50.00")}
	cfg := DefaultConfig()

	// Off by exactly the tolerance: accepted
	sol := Solve(cands, decimal.RequireFromString("150.01"), cfg)
	require.True(t, sol.Found())
	assert.Len(t, sol.Picks, 2)

	sol = Solve(cands, decimal.RequireFromString("149.99"), cfg)
	require.True(t, sol.Found())

	// Off by more than the tolerance: rejected
	sol = Solve(cands, decimal.RequireFromString("150.02"), cfg)
	assert.False(t, sol.Found())
}

func TestSolve_SingleInvoiceWithinTolerance(t *testing.T) {
	cands := []candidate.MatchCandidate{inv("A", "99.99")}
	sol := Solve(cands, decimal.NewFromInt(100), DefaultConfig())
	require.True(t, sol.Found())
	assert.Equal(t, StrategySingleInvoice, sol.Strategy)
}

func TestSolve_NodeBudget(t *testing.T) {
	var cands []candidate.MatchCandidate
	for i := 0; i < 40; i++ {
		cands = append(cands, bare(fmt.Sprintf("c%02d", i), "3"))
	}
	cfg := DefaultConfig()
	cfg.MaxNodes = 10

	// 4 is unreachable with 3s; the budget must stop the search
	sol := Solve(cands, decimal.NewFromInt(4), cfg)
	assert.False(t, sol.Found())
	assert.True(t, sol.Exhausted)
	assert.LessOrEqual(t, sol.Nodes, 10)
}

func TestSolve_NeverExceedsTargetOrLimit(t *testing.T) {
	cands := []candidate.MatchCandidate{
		bare("a", "12.50"), bare("b", "7.25"), bare("c", "3.10"), bare("d", "40.00"),
		bare("e", "19.15"), bare("f", "1.00"), bare("g", "8.80"),
	}
	cfg := DefaultConfig()

	for cents := int64(100); cents <= 9000; cents += 37 {
		target := decimal.New(cents, -2)
		sol := Solve(cands, target, cfg)
		if !sol.Found() {
			continue
		}
		assert.LessOrEqual(t, len(sol.Picks), cfg.MaxSubsetSize)
		assert.True(t, sol.Total().Sub(target).Abs().LessThanOrEqual(cfg.Tolerance),
			"target %s got %s", target, sol.Total())
	}
}
