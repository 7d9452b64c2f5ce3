package repository

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"testing"

	"github.com/okian/matchmaker/internal/domain/model"
)

func TestLeaderboard_BasicOperations(t *testing.T) {
	ctx := context.Background()
	lb := NewLeaderboard()

	if n := lb.Count(ctx); n != 0 {
		t.Fatalf("expected empty board, got %d", n)
	}
	if !lb.Upsert(ctx, "u1", 42) {
		t.Fatal("expected first upsert to change the board")
	}
	if lb.Upsert(ctx, "u1", 42) {
		t.Error("expected identical upsert to be a no-op")
	}

	entry, err := lb.Rank(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Rank != 1 || entry.Score != 42 {
		t.Errorf("unexpected entry %+v", entry)
	}

	if _, err := lb.Rank(ctx, "ghost"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := lb.TopN(ctx, 0); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}
}

func TestLeaderboard_UpsertReplacesScore(t *testing.T) {
	ctx := context.Background()
	lb := NewLeaderboard()
	lb.Upsert(ctx, "a", 80)
	lb.Upsert(ctx, "b", 60)

	// social capital can fall as well as rise
	lb.Upsert(ctx, "a", 10)

	top, err := lb.TopN(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []model.LeaderboardEntry{{Rank: 1, UserID: "b", Score: 60}, {Rank: 2, UserID: "a", Score: 10}}
	if fmt.Sprint(top) != fmt.Sprint(want) {
		t.Errorf("got %v, want %v", top, want)
	}
	if lb.Count(ctx) != 2 {
		t.Errorf("expected 2 users, got %d", lb.Count(ctx))
	}
}

func TestLeaderboard_CompetitionRanks(t *testing.T) {
	ctx := context.Background()
	lb := NewLeaderboard()
	for id, score := range map[string]int{"d": 50, "a": 70, "c": 70, "b": 90, "e": 10} {
		lb.Upsert(ctx, id, score)
	}

	top, err := lb.TopN(ctx, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []model.LeaderboardEntry{
		{Rank: 1, UserID: "b", Score: 90},
		{Rank: 2, UserID: "a", Score: 70},
		{Rank: 2, UserID: "c", Score: 70},
		{Rank: 4, UserID: "d", Score: 50},
		{Rank: 5, UserID: "e", Score: 10},
	}
	if fmt.Sprint(top) != fmt.Sprint(want) {
		t.Fatalf("got %v, want %v", top, want)
	}

	for _, w := range want {
		got, err := lb.Rank(ctx, w.UserID)
		if err != nil {
			t.Fatalf("rank %s: %v", w.UserID, err)
		}
		if got != w {
			t.Errorf("rank %s: got %+v, want %+v", w.UserID, got, w)
		}
	}

	short, _ := lb.TopN(ctx, 2)
	if len(short) != 2 || short[1].UserID != "a" {
		t.Errorf("unexpected truncated board %v", short)
	}
}

func TestLeaderboard_RandomizedAgainstSort(t *testing.T) {
	ctx := context.Background()
	lb := NewLeaderboard()
	r := rand.New(rand.NewPCG(1, 2))
	scores := map[string]int{}

	for i := 0; i < 2000; i++ {
		id := fmt.Sprintf("u%03d", r.IntN(300))
		score := r.IntN(101)
		lb.Upsert(ctx, id, score)
		scores[id] = score
	}

	if nsize(lb.root) != len(scores) {
		t.Fatalf("tree size %d, want %d", nsize(lb.root), len(scores))
	}

	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return before(scores[ids[i]], ids[i], scores[ids[j]], ids[j]) })

	top, err := lb.TopN(ctx, len(ids))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, id := range ids {
		if top[i].UserID != id {
			t.Fatalf("position %d: got %s, want %s", i, top[i].UserID, id)
		}
		above := 0
		for _, other := range ids {
			if scores[other] > scores[id] {
				above++
			}
		}
		e, _ := lb.Rank(ctx, id)
		if e.Rank != above+1 || top[i].Rank != above+1 {
			t.Fatalf("%s: rank %d / %d, want %d", id, e.Rank, top[i].Rank, above+1)
		}
	}
}

func TestLeaderboard_ConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	lb := NewLeaderboard()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				lb.Upsert(ctx, fmt.Sprintf("u%d", i), w*10+i%10)
				_, _ = lb.TopN(ctx, 5)
			}
		}(w)
	}
	wg.Wait()

	if lb.Count(ctx) != 100 {
		t.Errorf("expected 100 users, got %d", lb.Count(ctx))
	}
	if nsize(lb.root) != 100 {
		t.Errorf("tree size drifted to %d", nsize(lb.root))
	}
}
