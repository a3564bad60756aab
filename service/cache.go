package service

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type summaryEntry struct {
	summary      *PlanSummary
	planID       uint
	incomePlanID uint
	expiresAt    time.Time
}

// SummaryCache 预算汇总缓存，按 (用户, 计划, 月份) 缓存
// 任何交易或预算写入都会同步失效相关计划
type SummaryCache struct {
	ttl     time.Duration
	mu      sync.Mutex
	gen     uint64
	entries map[string]summaryEntry
	group   singleflight.Group
	now     func() time.Time
}

// NewSummaryCache ttl<=0 时不缓存
func NewSummaryCache(ttl time.Duration) *SummaryCache {
	return &SummaryCache{
		ttl:     ttl,
		entries: make(map[string]summaryEntry),
		now:     time.Now,
	}
}

func summaryKey(userID, planID uint, month time.Time) string {
	return fmt.Sprintf("%d:%d:%s", userID, planID, month.Format("2006-01"))
}

// GetOrLoad 命中则返回缓存，否则合并并发请求执行 load
func (c *SummaryCache) GetOrLoad(userID, planID uint, month time.Time, load func() (*PlanSummary, error)) (*PlanSummary, error) {
	if c == nil || c.ttl <= 0 {
		return load()
	}
	key := summaryKey(userID, planID, month)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.now().Before(e.expiresAt) {
		c.mu.Unlock()
		return e.summary, nil
	}
	gen := c.gen
	c.mu.Unlock()

	// 失效后发起的请求不会合并到失效前的加载
	flightKey := fmt.Sprintf("%s#%d", key, gen)
	v, err, _ := c.group.Do(flightKey, func() (interface{}, error) {
		s, err := load()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.gen == gen {
			c.entries[key] = summaryEntry{
				summary:      s,
				planID:       planID,
				incomePlanID: s.IncomePlanID,
				expiresAt:    c.now().Add(c.ttl),
			}
		}
		c.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*PlanSummary), nil
}

// InvalidatePlan 删除涉及这些计划的缓存（含以其为收入来源的汇总）
func (c *SummaryCache) InvalidatePlan(planIDs ...uint) {
	if c == nil || len(planIDs) == 0 {
		return
	}
	set := make(map[uint]struct{}, len(planIDs))
	for _, id := range planIDs {
		set[id] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	for key, e := range c.entries {
		_, hitPlan := set[e.planID]
		_, hitIncome := set[e.incomePlanID]
		if hitPlan || hitIncome {
			delete(c.entries, key)
		}
	}
}

// InvalidateAll 清空缓存，删除计划时使用
func (c *SummaryCache) InvalidateAll() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.gen++
	c.entries = make(map[string]summaryEntry)
	c.mu.Unlock()
}

// Len 当前缓存条目数
func (c *SummaryCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
