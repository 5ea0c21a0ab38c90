package chess

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/park285/chess-evalboard/internal/chess/uci"
)

// Budget bounds one evaluation request.
type Budget struct {
	Name     string
	MoveTime time.Duration
	Depth    int
	Nodes    int
}

const (
	BudgetLive     = "live"
	BudgetAnalysis = "analysis"
	BudgetDeep     = "deep"
)

var budgetMu sync.RWMutex

// DefaultBudgets: "live" follows every board move, "analysis" is the
// one-shot FEN evaluation.
var DefaultBudgets = map[string]Budget{
	BudgetLive: {
		Name:     BudgetLive,
		MoveTime: 100 * time.Millisecond,
	},
	BudgetAnalysis: {
		Name:     BudgetAnalysis,
		MoveTime: 2 * time.Second,
	},
	BudgetDeep: {
		Name:  BudgetDeep,
		Depth: 22,
	},
}

func GetBudget(name string) (Budget, error) {
	budgetMu.RLock()
	defer budgetMu.RUnlock()
	key := strings.ToLower(strings.TrimSpace(name))
	b, ok := DefaultBudgets[key]
	if !ok {
		return Budget{}, fmt.Errorf("unknown budget %q (known: %s)", name, strings.Join(budgetNames(), ", "))
	}
	return b, nil
}

// RegisterBudget adds or replaces a named budget, e.g. from configuration.
func RegisterBudget(b Budget) error {
	b.Name = strings.ToLower(strings.TrimSpace(b.Name))
	if b.Name == "" {
		return fmt.Errorf("budget name required")
	}
	if err := ValidateBudget(b); err != nil {
		return err
	}
	budgetMu.Lock()
	DefaultBudgets[b.Name] = b
	budgetMu.Unlock()
	return nil
}

func ValidateBudget(b Budget) error {
	if b.MoveTime < 0 || b.Depth < 0 || b.Nodes < 0 {
		return fmt.Errorf("budget %s has negative limits", b.Name)
	}
	if b.MoveTime == 0 && b.Depth == 0 && b.Nodes == 0 {
		return fmt.Errorf("budget %s does not define search limits", b.Name)
	}
	return nil
}

// Label is a stable description used in cache keys and logs.
func (b Budget) Label() string {
	var parts []string
	if b.Depth > 0 {
		parts = append(parts, "depth="+strconv.Itoa(b.Depth))
	}
	if b.MoveTime > 0 {
		parts = append(parts, "movetime="+strconv.FormatInt(b.MoveTime.Milliseconds(), 10))
	}
	if b.Nodes > 0 {
		parts = append(parts, "nodes="+strconv.Itoa(b.Nodes))
	}
	return strings.Join(parts, ",")
}

func (b Budget) limits() uci.Limits {
	return uci.Limits{
		Depth:          b.Depth,
		MoveTimeMillis: int(b.MoveTime.Milliseconds()),
		NodeCap:        b.Nodes,
	}
}

// timeout is the wall-clock allowance for a whole request including
// process start and handshake.
func (b Budget) timeout() time.Duration {
	if b.MoveTime > 0 {
		return (b.MoveTime+800*time.Millisecond)*2 + engineEvaluationBuffer
	}
	if b.Depth > 0 {
		base := time.Duration(b.Depth) * 200 * time.Millisecond
		if base < 3*time.Second {
			base = 3 * time.Second
		}
		if base > 15*time.Second {
			base = 15 * time.Second
		}
		return base + engineEvaluationBuffer
	}
	return engineEvaluationFallbackTimeout
}

func budgetNames() []string {
	names := make([]string, 0, len(DefaultBudgets))
	for k := range DefaultBudgets {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
