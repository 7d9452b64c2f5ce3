package repository

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"
)

func seededBoard(b *testing.B, users int) *Leaderboard {
	b.Helper()
	ctx := context.Background()
	lb := NewLeaderboard()
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < users; i++ {
		lb.Upsert(ctx, fmt.Sprintf("user-%06d", i), rng.IntN(100))
	}
	return lb
}

func BenchmarkLeaderboard(b *testing.B) {
	ctx := context.Background()
	for _, users := range []int{1_000, 100_000} {
		b.Run(fmt.Sprintf("Upsert/%d", users), func(b *testing.B) {
			lb := seededBoard(b, users)
			rng := rand.New(rand.NewPCG(3, 4))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				lb.Upsert(ctx, fmt.Sprintf("user-%06d", rng.IntN(users)), rng.IntN(100))
			}
		})

		b.Run(fmt.Sprintf("Rank/%d", users), func(b *testing.B) {
			lb := seededBoard(b, users)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, _ = lb.Rank(ctx, fmt.Sprintf("user-%06d", i%users))
			}
		})

		b.Run(fmt.Sprintf("TopN50/%d", users), func(b *testing.B) {
			lb := seededBoard(b, users)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, _ = lb.TopN(ctx, 50)
			}
		})

		b.Run(fmt.Sprintf("Parallel/%d", users), func(b *testing.B) {
			lb := seededBoard(b, users)
			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				rng := rand.New(rand.NewPCG(rand.Uint64(), 0))
				for pb.Next() {
					id := fmt.Sprintf("user-%06d", rng.IntN(users))
					switch rng.IntN(10) {
					case 0, 1:
						lb.Upsert(ctx, id, rng.IntN(100))
					case 2:
						_, _ = lb.TopN(ctx, 10)
					default:
						_, _ = lb.Rank(ctx, id)
					}
				}
			})
		})
	}
}
