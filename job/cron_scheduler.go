package job

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
)

// JobFunc 任务执行函数
type JobFunc func(ctx context.Context) error

// JobConfig 任务配置
type JobConfig struct {
	Name        string        // 任务名称
	CronExpr    string        // cron表达式, 秒级
	JobFunc     JobFunc       // 任务执行函数
	Description string        // 任务描述
	Enabled     bool          // 是否启用
	Timeout     time.Duration // 任务超时时间
}

// JobStatus 任务状态
type JobStatus struct {
	Name         string        `json:"name"`
	CronExpr     string        `json:"cron_expr"`
	Description  string        `json:"description"`
	Enabled      bool          `json:"enabled"`
	LastRun      *time.Time    `json:"last_run,omitempty"`
	NextRun      *time.Time    `json:"next_run,omitempty"`
	LastDuration time.Duration `json:"last_duration"`
	LastError    string        `json:"last_error,omitempty"`
	RunCount     int64         `json:"run_count"`
	ErrorCount   int64         `json:"error_count"`
}

var jobRunsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "online_judge_duel",
		Subsystem: "cronjob",
		Name:      "job_runs_total",
		Help:      "Cron job runs total.",
	},
	[]string{"name", "result"},
)

func init() {
	prometheus.MustRegister(jobRunsTotal)
}

// CronScheduler cron定时任务调度器, 同一任务上一次未结束时跳过本次触发
type CronScheduler struct {
	cron        *cron.Cron
	jobs        map[string]*JobConfig
	entries     map[string]cron.EntryID
	jobStatuses map[string]*JobStatus
	log         logger.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.RWMutex
}

func NewCronScheduler(log logger.Logger) *CronScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &CronScheduler{
		cron:        newCron(),
		jobs:        make(map[string]*JobConfig),
		entries:     make(map[string]cron.EntryID),
		jobStatuses: make(map[string]*JobStatus),
		log:         log,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func newCron() *cron.Cron {
	return cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
}

// AddJob 添加任务
func (s *CronScheduler) AddJob(config *JobConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if config.Name == "" {
		return fmt.Errorf("job name cannot be empty")
	}
	if config.JobFunc == nil {
		return fmt.Errorf("job function cannot be nil")
	}
	if _, err := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor).Parse(config.CronExpr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", config.CronExpr, err)
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Minute
	}

	s.jobs[config.Name] = config
	s.jobStatuses[config.Name] = &JobStatus{
		Name:        config.Name,
		CronExpr:    config.CronExpr,
		Description: config.Description,
		Enabled:     config.Enabled,
	}

	s.log.InfoContext(s.ctx, "Job added",
		logger.String("name", config.Name),
		logger.String("cronExpr", config.CronExpr),
		logger.Bool("enabled", config.Enabled),
	)
	return nil
}

// Start 启动调度器
func (s *CronScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cron.Stop()
	s.cron = newCron()
	s.entries = make(map[string]cron.EntryID)

	for name, job := range s.jobs {
		if !job.Enabled {
			continue
		}
		id, err := s.cron.AddFunc(job.CronExpr, s.wrapJobFunc(name, job))
		if err != nil {
			return fmt.Errorf("add job %s to cron failed: %w", name, err)
		}
		s.entries[name] = id
	}

	s.cron.Start()
	for name, id := range s.entries {
		next := s.cron.Entry(id).Next
		s.jobStatuses[name].NextRun = &next
	}
	s.log.InfoContext(s.ctx, "Cron scheduler started", logger.Int("jobs", len(s.entries)))
	return nil
}

// Stop 停止调度器并等待运行中的任务结束
func (s *CronScheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.mu.Unlock()

	<-c.Stop().Done()
	s.cancel()
	s.log.InfoContext(s.ctx, "Cron scheduler stopped")
}

// wrapJobFunc 包装任务函数，添加日志、超时、统计
func (s *CronScheduler) wrapJobFunc(name string, job *JobConfig) func() {
	return func() {
		startTime := time.Now()

		s.mu.Lock()
		status := s.jobStatuses[name]
		status.LastRun = &startTime
		status.RunCount++
		s.mu.Unlock()

		ctx := logger.ContextWithFields(s.ctx, logger.String("job", name))
		err := s.run(ctx, job)
		duration := time.Since(startTime)

		s.mu.Lock()
		defer s.mu.Unlock()
		status.LastDuration = duration
		if id, ok := s.entries[name]; ok {
			next := s.cron.Entry(id).Next
			status.NextRun = &next
		}
		if err != nil {
			status.ErrorCount++
			status.LastError = err.Error()
			jobRunsTotal.WithLabelValues(name, "failed").Inc()
			s.log.ErrorContext(ctx, "Job failed", logger.Duration("duration", duration), logger.Error(err))
			return
		}
		status.LastError = ""
		jobRunsTotal.WithLabelValues(name, "success").Inc()
		s.log.InfoContext(ctx, "Job completed", logger.Duration("duration", duration))
	}
}

func (s *CronScheduler) run(ctx context.Context, job *JobConfig) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	ctx, cancel := context.WithTimeout(ctx, job.Timeout)
	defer cancel()
	return job.JobFunc(ctx)
}

// GetJobStatus 获取指定任务状态
func (s *CronScheduler) GetJobStatus(name string) (*JobStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status, exists := s.jobStatuses[name]
	if !exists {
		return nil, fmt.Errorf("job %s not found", name)
	}
	statusCopy := *status
	return &statusCopy, nil
}

// RunJobOnce 手动执行一次任务, 启动时补偿上次停机期间错过的触发
func (s *CronScheduler) RunJobOnce(name string) error {
	s.mu.RLock()
	job, exists := s.jobs[name]
	s.mu.RUnlock()
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	s.log.InfoContext(s.ctx, "Running job manually", logger.String("name", name))
	return s.run(logger.ContextWithFields(s.ctx, logger.String("job", name)), job)
}
