package schedule

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetbuilder/internal/build"
	"git.home.luguber.info/inful/assetbuilder/internal/config"
)

type countingService struct {
	mu   sync.Mutex
	reqs []build.BuildRequest
}

func (c *countingService) Run(_ context.Context, req build.BuildRequest) (*build.BuildResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reqs = append(c.reqs, req)
	return &build.BuildResult{Status: build.BuildStatusSuccess}, nil
}

func (c *countingService) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.reqs)
}

func TestScheduler_ScheduleEvery(t *testing.T) {
	t.Run("returns job id for valid interval", func(t *testing.T) {
		s, err := NewScheduler()
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop() })

		id, err := s.ScheduleEvery("test", 10*time.Second, func() {})
		require.NoError(t, err)
		require.NotEmpty(t, id)
	})

	t.Run("rejects non-positive interval", func(t *testing.T) {
		s, err := NewScheduler()
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop() })

		_, err = s.ScheduleEvery("test", 0, func() {})
		require.Error(t, err)
	})
}

func TestScheduler_ScheduleBuildsRunsTasks(t *testing.T) {
	s, err := NewScheduler()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })

	svc := &countingService{}
	entries := []config.ScheduleConfig{{Task: "images", Every: "20ms"}}
	require.NoError(t, s.ScheduleBuilds(t.Context(), entries, svc))
	s.Start()

	require.Eventually(t, func() bool { return svc.count() >= 2 }, 2*time.Second, 5*time.Millisecond)
	svc.mu.Lock()
	first := svc.reqs[0]
	svc.mu.Unlock()
	require.Equal(t, []string{"images"}, first.Goals)
	require.Equal(t, TriggerSchedule, first.Trigger)
}
