// Package evalcache remembers engine evaluations per position so that
// revisiting a position does not spend another search budget on it.
package evalcache

import (
	"context"
	"strings"

	"github.com/park285/chess-evalboard/internal/eval"
)

type Store interface {
	Get(ctx context.Context, key string) (eval.Result, bool, error)
	Put(ctx context.Context, key string, r eval.Result) error
}

// Key builds a cache key from the position fields that affect the search
// (placement, side to move, castling, en passant) and the budget label.
// Move counters are dropped.
func Key(fen, budget string) string {
	fields := strings.Fields(fen)
	if len(fields) > 4 {
		fields = fields[:4]
	}
	return strings.Join(fields, " ") + "|" + budget
}

// Nop never hits.
type Nop struct{}

func (Nop) Get(context.Context, string) (eval.Result, bool, error) { return eval.Result{}, false, nil }
func (Nop) Put(context.Context, string, eval.Result) error         { return nil }
