package tickfeed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Wakhungu1234/Wakhungu28Ai/internal/broker/sim"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/persistence"
)

func TestFeedPersistsTicks(t *testing.T) {
	repo, err := persistence.NewBadgerRepository("", true)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	broker := sim.New(sim.WithSeed(5), sim.WithTickInterval(time.Millisecond))
	feed := New(broker, repo, nil, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go feed.Run(ctx, []string{"R_10"})

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		ticks, err := repo.RecentTicks("R_10", 10)
		require.NoError(t, err)
		if len(ticks) >= 3 {
			cancel()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	t.Fatal("no ticks persisted")
}
