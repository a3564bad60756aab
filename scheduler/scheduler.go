package scheduler

import (
	"context"
	"fmt"
	"time"

	"envelope/config"
	"envelope/logger"

	"github.com/robfig/cron/v3"
)

// ExpiredInvitationRetention 过期邀请保留多久后删除
const ExpiredInvitationRetention = 30 * 24 * time.Hour

// jobTimeout 单次任务的执行上限
const jobTimeout = 5 * time.Minute

// MessageCleaner 物理删除到期的匿名消息
type MessageCleaner interface {
	Cleanup(ctx context.Context) (int64, error)
}

// InvitationSweeper 删除长期过期的邀请
type InvitationSweeper interface {
	SweepExpired(ctx context.Context, retain time.Duration) (int64, error)
}

// Scheduler 后台定时任务
type Scheduler struct {
	cron        *cron.Cron
	messages    MessageCleaner
	invitations InvitationSweeper
}

// New 注册定时任务；cleanup.enabled 为 false 时不注册消息清理
func New(cfg config.CleanupConfig, messages MessageCleaner, invitations InvitationSweeper) (*Scheduler, error) {
	s := &Scheduler{
		cron:        cron.New(),
		messages:    messages,
		invitations: invitations,
	}

	if cfg.Enabled {
		spec := cfg.Cron
		if spec == "" {
			spec = "@hourly"
		}
		if _, err := s.cron.AddFunc(spec, func() { s.run("消息清理", s.CleanupMessages) }); err != nil {
			return nil, fmt.Errorf("注册消息清理任务失败: %w", err)
		}
	}
	if _, err := s.cron.AddFunc("@daily", func() { s.run("邀请清理", s.SweepInvitations) }); err != nil {
		return nil, fmt.Errorf("注册邀请清理任务失败: %w", err)
	}
	return s, nil
}

// Start 后台启动
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Jobs 已注册的任务数
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// CleanupMessages 执行一次消息清理
func (s *Scheduler) CleanupMessages(ctx context.Context) (int64, error) {
	return s.messages.Cleanup(ctx)
}

// SweepInvitations 执行一次过期邀请清理
func (s *Scheduler) SweepInvitations(ctx context.Context) (int64, error) {
	return s.invitations.SweepExpired(ctx, ExpiredInvitationRetention)
}

func (s *Scheduler) run(name string, job func(context.Context) (int64, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	n, err := job(ctx)
	if err != nil {
		logger.L().InternalError("定时任务失败", err, "job", name)
		return
	}
	logger.L().Info("定时任务完成", "job", name, "affected", n, "elapsed_ms", time.Since(start).Milliseconds())
}
