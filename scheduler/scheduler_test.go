package scheduler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"envelope/config"
	"envelope/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCleaner struct {
	n     int64
	err   error
	calls int
}

func (s *stubCleaner) Cleanup(context.Context) (int64, error) {
	s.calls++
	return s.n, s.err
}

type stubSweeper struct {
	retain time.Duration
}

func (s *stubSweeper) SweepExpired(_ context.Context, retain time.Duration) (int64, error) {
	s.retain = retain
	return 2, nil
}

func TestNew_RegistersJobs(t *testing.T) {
	s, err := New(config.CleanupConfig{Enabled: true, Cron: "*/5 * * * *"}, &stubCleaner{}, &stubSweeper{})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Jobs())

	s, err = New(config.CleanupConfig{Enabled: false}, &stubCleaner{}, &stubSweeper{})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Jobs())

	_, err = New(config.CleanupConfig{Enabled: true, Cron: "not a cron"}, &stubCleaner{}, &stubSweeper{})
	assert.Error(t, err)
}

func TestRunJobs(t *testing.T) {
	var buf bytes.Buffer
	previous := logger.L()
	t.Cleanup(func() { logger.SetDefault(previous) })
	logger.SetDefault(logger.New(&buf, slog.LevelInfo, "json"))

	cleaner := &stubCleaner{n: 3}
	sweeper := &stubSweeper{}
	s, err := New(config.CleanupConfig{Enabled: true}, cleaner, sweeper)
	require.NoError(t, err)

	s.run("消息清理", s.CleanupMessages)
	assert.Equal(t, 1, cleaner.calls)
	assert.Contains(t, buf.String(), `"affected":3`)

	n, err := s.SweepInvitations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, ExpiredInvitationRetention, sweeper.retain)

	buf.Reset()
	cleaner.err = errors.New("db down")
	s.run("消息清理", s.CleanupMessages)
	assert.Contains(t, buf.String(), "db down")
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
}

func TestStartStop(t *testing.T) {
	s, err := New(config.CleanupConfig{Enabled: true}, &stubCleaner{}, &stubSweeper{})
	require.NoError(t, err)
	s.Start()
	s.Stop()
}
