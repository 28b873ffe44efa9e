package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/to404hanga/online_judge_duel/constants"
	"github.com/to404hanga/online_judge_duel/pkg/identity"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
)

// Gateway 对战 websocket 入口
type Gateway struct {
	hub        *Hub
	dispatcher *Dispatcher
	verifier   identity.Verifier
	upgrader   websocket.Upgrader
	log        logger.Logger
}

func NewGateway(hub *Hub, dispatcher *Dispatcher, verifier identity.Verifier, allowOrigins []string, log logger.Logger) *Gateway {
	return &Gateway{
		hub:        hub,
		dispatcher: dispatcher,
		verifier:   verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin(allowOrigins),
		},
		log: log,
	}
}

func (g *Gateway) Register(r *gin.Engine) {
	r.GET(constants.BattleWebsocketPath, g.ServeBattle)
}

// ServeBattle 握手时校验访问令牌, 失败返回 401 且不升级
func (g *Gateway) ServeBattle(c *gin.Context) {
	reqCtx := c.Request.Context()
	id, err := g.verifier.VerifyBearer(reqCtx, identity.TokenFromRequest(c.Request))
	if err != nil {
		connectionsTotal.WithLabelValues("unauthorized").Inc()
		g.log.InfoContext(reqCtx, "battle handshake rejected", logger.Error(err))
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		connectionsTotal.WithLabelValues("upgrade_failed").Inc()
		g.log.WarnContext(reqCtx, "battle upgrade failed", logger.Error(err))
		return
	}
	connectionsTotal.WithLabelValues("accepted").Inc()
	start := time.Now()

	ctx, cancel := context.WithCancel(logger.DetachContext(reqCtx))
	defer cancel()
	ctx = logger.ContextWithFields(ctx, logger.String("subject", id.Subject))

	client := newClient(g.hub, conn, id, g.log)
	g.hub.register(client)
	go client.writePump()

	reason := client.readPump(ctx, g.dispatcher)
	g.hub.unregister(client)
	connectionDurationSeconds.WithLabelValues(reason).Observe(time.Since(start).Seconds())
}

// Shutdown 关闭本实例上的全部连接
func (g *Gateway) Shutdown() {
	g.hub.closeAll()
}

func checkOrigin(allowOrigins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(allowOrigins))
	for _, o := range allowOrigins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
