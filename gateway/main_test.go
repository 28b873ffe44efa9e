package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	json "github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/to404hanga/online_judge_duel/config"
	"github.com/to404hanga/online_judge_duel/entity"
	"github.com/to404hanga/online_judge_duel/event"
	"github.com/to404hanga/online_judge_duel/pkg/identity"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
	"github.com/to404hanga/online_judge_duel/pkg/runner"
	"github.com/to404hanga/online_judge_duel/service"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testJWTSecret = "gateway-secret"

var dbSeq atomic.Int64

// echoRunner 以 "echo:<output>" 形式的代码返回 output
type echoRunner struct{}

func (echoRunner) Run(_ context.Context, code, _ string) (*runner.Result, error) {
	if out, ok := strings.CutPrefix(code, "echo:"); ok {
		return &runner.Result{Output: out, Duration: 30 * time.Millisecond}, nil
	}
	return nil, &runner.ExecutionError{Output: "SyntaxError"}
}

type testGateway struct {
	db  *gorm.DB
	srv *httptest.Server
}

func newTestGateway(t *testing.T) *testGateway {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:gateway_%d?mode=memory&cache=shared&_pragma=foreign_keys(0)", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, entity.AutoMigrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := logger.NewNopLogger()
	cfg := config.DefaultBattleConfig()
	verifier, err := identity.NewJWTVerifier(rdb, "HS256", testJWTSecret, "", "", time.Hour)
	require.NoError(t, err)

	hub := NewHub(log)
	notifier := NewRedisNotifier(rdb, hub, log)

	problemSvc := service.NewProblemService(db, rdb, log)
	leaderboard := service.NewLeaderboardService(db, rdb, log)
	userSvc := service.NewUserService(db, verifier, nil, leaderboard, log, cfg)
	battleSvc := service.NewBattleService(db, service.NewInviteCodeIssuer(cfg.InviteCode), problemSvc, log, cfg)
	submitSvc := service.NewSubmissionService(db, echoRunner{}, problemSvc, log, cfg, 2)
	resultSvc := service.NewResultService(db, userSvc, leaderboard, event.NopProducer{}, log, cfg)
	orchestrator := service.NewDuelOrchestrator(userSvc, battleSvc, submitSvc, resultSvc, problemSvc,
		service.NewRedisBattleLocker(rdb, log), nil, notifier, log, cfg)

	gw := NewGateway(hub, NewDispatcher(orchestrator, hub, log), verifier, nil, log)
	engine := gin.New()
	gw.Register(engine)
	srv := httptest.NewServer(engine)

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = notifier.Run(ctx, ready)
	}()
	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		t.Fatal("room event subscription not ready")
	}
	t.Cleanup(func() {
		gw.Shutdown()
		srv.Close()
		cancel()
		<-done
	})

	problem := &entity.Problem{Prompt: "print three", ExampleCount: 1, ReviewText: "just print"}
	require.NoError(t, db.Create(problem).Error)
	require.NoError(t, db.Create(&[]entity.TestCase{
		{ProblemID: problem.ID, Order: 1, Input: "1\n2", Output: "3"},
		{ProblemID: problem.ID, Order: 2, Input: "0\n3", Output: "3"},
	}).Error)

	return &testGateway{db: db, srv: srv}
}

func signToken(t *testing.T, subject string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, identity.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Nickname: subject,
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return tok
}

type wsConn struct {
	t       *testing.T
	conn    *websocket.Conn
	pending []Frame
}

func (g *testGateway) dial(t *testing.T, subject string) *wsConn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(g.srv.URL, "http") + "/battle"
	header := http.Header{}
	header.Set("Authorization", "Bearer "+signToken(t, subject))
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &wsConn{t: t, conn: conn}
}

func (c *wsConn) send(event string, data any) {
	c.t.Helper()
	raw, err := encodeFrame(event, data)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, raw))
}

// expect 读取直到出现指定事件; 房间广播与直接回复的先后不固定, 途中的其他事件留待后续 expect
func (c *wsConn) expect(event string, out any) {
	c.t.Helper()
	for i, f := range c.pending {
		if f.Event == event {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			c.decode(f, out)
			return
		}
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		require.NoError(c.t, c.conn.SetReadDeadline(deadline))
		_, raw, err := c.conn.ReadMessage()
		require.NoError(c.t, err, "waiting for %s", event)
		var f Frame
		require.NoError(c.t, json.Unmarshal(raw, &f))
		if f.Event != event {
			c.pending = append(c.pending, f)
			continue
		}
		c.decode(f, out)
		return
	}
}

func (c *wsConn) decode(f Frame, out any) {
	c.t.Helper()
	if out != nil {
		require.NoError(c.t, json.Unmarshal(f.Data, out))
	}
}
