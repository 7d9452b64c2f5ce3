package repository

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/okian/matchmaker/internal/domain/model"
	"github.com/okian/matchmaker/pkg/metrics"
)

// Leaderboard ranks users by social-capital total. It is an
// order-statistic treap ordered by score DESC, then user id ASC, so an
// in-order walk yields the board from best to worst.
//
// Ranks are competition ranks: users with equal scores share a rank and
// the next distinct score skips ahead (1, 2, 2, 4).
type Leaderboard struct {
	mu     sync.RWMutex
	root   *node
	scores map[string]int
}

type node struct {
	id    string
	score int
	prio  uint64
	left  *node
	right *node
	size  int
}

// NewLeaderboard creates an empty leaderboard.
func NewLeaderboard() *Leaderboard {
	return &Leaderboard{scores: make(map[string]int)}
}

// Upsert sets the score of userID. It reports whether the stored score
// changed.
func (l *Leaderboard) Upsert(_ context.Context, userID string, score int) bool {
	l.mu.Lock()
	old, exists := l.scores[userID]
	if exists && old == score {
		l.mu.Unlock()
		return false
	}
	if exists {
		l.root = remove(l.root, userID, old)
	}
	l.scores[userID] = score
	l.root = insert(l.root, &node{id: userID, score: score, prio: rand.Uint64(), size: 1})
	n := len(l.scores)
	l.mu.Unlock()

	if !exists {
		metrics.UpdateLeaderboardSize(n)
	}
	return true
}

// Rank returns the entry of userID in O(log n).
func (l *Leaderboard) Rank(_ context.Context, userID string) (model.LeaderboardEntry, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency("leaderboard_rank", msSince(start)) }()

	l.mu.RLock()
	defer l.mu.RUnlock()

	score, ok := l.scores[userID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.LeaderboardEntry{}, fmt.Errorf("leaderboard entry %q: %w", userID, model.ErrNotFound)
	}
	return model.LeaderboardEntry{
		Rank:   countAbove(l.root, score) + 1,
		UserID: userID,
		Score:  score,
	}, nil
}

// TopN returns the n best entries.
func (l *Leaderboard) TopN(_ context.Context, n int) ([]model.LeaderboardEntry, error) {
	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency("leaderboard_top", msSince(start)) }()

	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]model.LeaderboardEntry, 0, min(n, len(l.scores)))
	collect(l.root, n, &out)
	for i := range out {
		if i > 0 && out[i].Score == out[i-1].Score {
			out[i].Rank = out[i-1].Rank
		} else {
			out[i].Rank = i + 1
		}
	}
	return out, nil
}

// Count returns the number of ranked users.
func (l *Leaderboard) Count(_ context.Context) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.scores)
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	n.size = 1 + nsize(n.left) + nsize(n.right)
}

// before reports whether (aScore, aID) ranks ahead of (bScore, bID).
func before(aScore int, aID string, bScore int, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(root, n *node) *node {
	if root == nil {
		return n
	}
	if before(n.score, n.id, root.score, root.id) {
		root.left = insert(root.left, n)
		if root.left.prio > root.prio {
			root = rotateRight(root)
		}
	} else {
		root.right = insert(root.right, n)
		if root.right.prio > root.prio {
			root = rotateLeft(root)
		}
	}
	fix(root)
	return root
}

func remove(root *node, id string, score int) *node {
	if root == nil {
		return nil
	}
	switch {
	case root.id == id && root.score == score:
		if root.left == nil {
			return root.right
		}
		if root.right == nil {
			return root.left
		}
		if root.left.prio > root.right.prio {
			root = rotateRight(root)
			root.right = remove(root.right, id, score)
		} else {
			root = rotateLeft(root)
			root.left = remove(root.left, id, score)
		}
	case before(score, id, root.score, root.id):
		root.left = remove(root.left, id, score)
	default:
		root.right = remove(root.right, id, score)
	}
	fix(root)
	return root
}

// countAbove counts nodes with a score strictly greater than score.
func countAbove(n *node, score int) int {
	count := 0
	for n != nil {
		if n.score > score {
			count += 1 + nsize(n.left)
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

func collect(n *node, limit int, out *[]model.LeaderboardEntry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collect(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, model.LeaderboardEntry{UserID: n.id, Score: n.score})
	}
	collect(n.right, limit, out)
}
