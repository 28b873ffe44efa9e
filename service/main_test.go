package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/to404hanga/online_judge_duel/config"
	"github.com/to404hanga/online_judge_duel/entity"
	"github.com/to404hanga/online_judge_duel/event"
	"github.com/to404hanga/online_judge_duel/pkg/identity"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
	"github.com/to404hanga/online_judge_duel/pkg/runner"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_pragma=foreign_keys(0)", name, dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 单连接, 事务天然串行
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, entity.AutoMigrate(db))
	return db
}

// newPooledTestDB 多连接的文件库, WAL + busy_timeout, 事务以 BEGIN IMMEDIATE 开启,
// 并发调用各自持有连接, 靠数据库锁而不是连接池串行
func newPooledTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "duel.db") +
		"?_txlock=immediate&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(0)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(8)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, entity.AutoMigrate(db))
	return db
}

// recordLockedTables 记录带 FOR UPDATE 子句的查询所在的表
func recordLockedTables(t *testing.T, db *gorm.DB) func() []string {
	t.Helper()
	var (
		mu     sync.Mutex
		tables []string
	)
	err := db.Callback().Query().Before("gorm:query").Register("test:record_locks", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Clauses["FOR"]; ok {
			mu.Lock()
			tables = append(tables, tx.Statement.Table)
			mu.Unlock()
		}
	})
	require.NoError(t, err)
	return func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), tables...)
	}
}

func newTestRedis(t *testing.T) (redis.Cmdable, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()}), mr
}

type fakeClock struct {
	now atomic.Int64
}

func newFakeClock(t time.Time) *fakeClock {
	c := &fakeClock{}
	c.Set(t)
	return c
}

func (c *fakeClock) Now() time.Time { return time.Unix(0, c.now.Load()).UTC() }

func (c *fakeClock) Set(t time.Time) { c.now.Store(t.UnixNano()) }

func (c *fakeClock) Advance(d time.Duration) { c.now.Add(int64(d)) }

// fakeRunner 以 "echo:<output>" 形式的代码返回 output, "fail" 返回执行错误
type fakeRunner struct {
	duration time.Duration
	calls    atomic.Int32
}

func (r *fakeRunner) Run(_ context.Context, code, input string) (*runner.Result, error) {
	r.calls.Add(1)
	switch {
	case code == "fail":
		return nil, &runner.ExecutionError{Output: "boom"}
	case code == "unavailable":
		return nil, runner.ErrRunnerUnavailable
	case code == "identity":
		return &runner.Result{Output: input, Duration: r.duration}, nil
	case strings.HasPrefix(code, "echo:"):
		return &runner.Result{Output: strings.TrimPrefix(code, "echo:"), Duration: r.duration}, nil
	}
	return &runner.Result{Output: "", Duration: r.duration}, nil
}

type fakeProvider struct {
	deleted []string
	err     error
}

func (p *fakeProvider) DeleteUser(_ context.Context, subject string) error {
	if p.err != nil {
		return p.err
	}
	p.deleted = append(p.deleted, subject)
	return nil
}

type testEnv struct {
	db           *gorm.DB
	rdb          redis.Cmdable
	mr           *miniredis.Miniredis
	clock        *fakeClock
	cfg          config.BattleConfig
	log          logger.Logger
	runner       *fakeRunner
	provider     *fakeProvider
	producer     event.Producer
	verifier     identity.Verifier
	notifier     *recordingNotifier
	problemSvc   ProblemService
	leaderboard  LeaderboardService
	userSvc      UserService
	battleSvc    BattleService
	submitSvc    SubmissionService
	resultSvc    ResultService
	deadline     *fakeDeadline
	orchestrator DuelOrchestrator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithDB(t, newTestDB(t))
}

func newTestEnvWithDB(t *testing.T, db *gorm.DB) *testEnv {
	t.Helper()
	rdb, mr := newTestRedis(t)
	log := logger.NewNopLogger()
	cfg := config.DefaultBattleConfig()
	clock := newFakeClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	env := &testEnv{
		db:       db,
		rdb:      rdb,
		mr:       mr,
		clock:    clock,
		cfg:      cfg,
		log:      log,
		runner:   &fakeRunner{duration: 40 * time.Millisecond},
		provider: &fakeProvider{},
		producer: event.NopProducer{},
		notifier: &recordingNotifier{},
	}
	env.problemSvc = NewProblemService(db, rdb, log)
	env.leaderboard = NewLeaderboardService(db, rdb, log)
	verifier, err := identity.NewJWTVerifier(rdb, "HS256", "secret", "", "", time.Hour)
	require.NoError(t, err)
	env.verifier = verifier
	env.userSvc = NewUserService(db, env.verifier, env.provider, env.leaderboard, log, cfg)
	env.battleSvc = NewBattleService(db, NewInviteCodeIssuer(cfg.InviteCode), env.problemSvc, log, cfg, WithClock(clock.Now))
	env.submitSvc = NewSubmissionService(db, env.runner, env.problemSvc, log, cfg, 4, WithClock(clock.Now))
	env.resultSvc = NewResultService(db, env.userSvc, env.leaderboard, env.producer, log, cfg)
	env.deadline = &fakeDeadline{scheduled: make(map[string]time.Time)}
	env.orchestrator = NewDuelOrchestrator(env.userSvc, env.battleSvc, env.submitSvc, env.resultSvc, env.problemSvc,
		NewRedisBattleLocker(rdb, log), env.deadline, env.notifier, log, cfg)
	return env
}

func (e *testEnv) createUser(t *testing.T, externalID string, rating int) *entity.User {
	t.Helper()
	u := &entity.User{ExternalID: externalID, Nickname: externalID, Rating: rating}
	require.NoError(t, e.db.Create(u).Error)
	return u
}

func (e *testEnv) createProblem(t *testing.T, examples int, cases ...entity.TestCase) *entity.Problem {
	t.Helper()
	p := &entity.Problem{Prompt: "sum", ExampleCount: examples, ReviewText: "use a loop"}
	require.NoError(t, e.db.Create(p).Error)
	for i := range cases {
		cases[i].ProblemID = p.ID
		if cases[i].Order == 0 {
			cases[i].Order = i + 1
		}
	}
	if len(cases) > 0 {
		require.NoError(t, e.db.Create(&cases).Error)
	}
	return p
}

// startBattle 走完邀请、加入、双方准备的完整流程
func (e *testEnv) startBattle(t *testing.T, owner, joiner *entity.User) *entity.Battle {
	t.Helper()
	ctx := context.Background()
	inv, err := e.battleSvc.CreateInvitation(ctx, owner.ID)
	require.NoError(t, err)
	b, err := e.battleSvc.CreateBattle(ctx, joiner.ID, inv.InviteCode)
	require.NoError(t, err)
	_, err = e.battleSvc.MarkReady(ctx, b.ID, owner.ID)
	require.NoError(t, err)
	started, err := e.battleSvc.MarkReady(ctx, b.ID, joiner.ID)
	require.NoError(t, err)
	require.True(t, started)
	b, err = e.battleSvc.GetBattleByID(ctx, b.ID)
	require.NoError(t, err)
	return b
}

type notification struct {
	Room   string
	Event  string
	Data   any
	Except string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) NotifyRoom(_ context.Context, room, event string, data any, exceptUserID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{Room: room, Event: event, Data: data, Except: exceptUserID})
	return nil
}

func (n *recordingNotifier) events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	res := make([]string, 0, len(n.sent))
	for _, s := range n.sent {
		res = append(res, s.Event)
	}
	return res
}

func (n *recordingNotifier) last(event string) (notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].Event == event {
			return n.sent[i], true
		}
	}
	return notification{}, false
}

// fakeDeadline 只记录调度, 由测试手动触发
type fakeDeadline struct {
	mu        sync.Mutex
	scheduled map[string]time.Time
	fns       map[string]func(ctx context.Context)
}

func (d *fakeDeadline) Schedule(_ context.Context, battleID string, at time.Time, fn func(ctx context.Context)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fns == nil {
		d.fns = make(map[string]func(ctx context.Context))
	}
	d.scheduled[battleID] = at
	d.fns[battleID] = fn
	return nil
}

func (d *fakeDeadline) Cancel(battleID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.scheduled, battleID)
	delete(d.fns, battleID)
}

func (d *fakeDeadline) Stop() error { return nil }

func (d *fakeDeadline) fire(battleID string) bool {
	d.mu.Lock()
	fn, ok := d.fns[battleID]
	d.mu.Unlock()
	if ok {
		fn(context.Background())
	}
	return ok
}
