package engine

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
	"lms.com/internal/auth"
	"lms.com/internal/config"
	"lms.com/internal/domain"
	"lms.com/internal/event"
	"lms.com/internal/infra"
	"lms.com/internal/service"
)

const eventBufferSize = 256

// Engine 是一个轻量级协调器，负责：
// 1. 持有基础设施（数据库、Redis、事件总线、WebSocket）
// 2. 组装业务服务
// 3. 将业务事件分发给 WebSocket 连接（单实例直接分发，多实例经 Redis 中转）
type Engine struct {
	cfg *config.Config

	// 基础设施
	db           *infra.DatabaseClient
	rdb          *redis.Client // nil when Redis is disabled
	bus          *event.Bus
	websocketHub *infra.WsManager
	tokens       *auth.TokenManager
	tokenStore   domain.TokenStore

	// 业务服务
	accounts  *service.AccountServiceImpl
	requests  *service.RequestServiceImpl
	inventory *service.InventoryServiceImpl
	catalog   *service.CatalogServiceImpl
	search    *service.SearchServiceImpl
	profiles  *service.ProfileServiceImpl

	// 上下文控制
	ctx    context.Context
	cancel context.CancelFunc
}

// NewEngine 创建引擎。rdb 与 storage 都可以为 nil。
func NewEngine(
	cfg *config.Config,
	db *infra.DatabaseClient,
	rdb *redis.Client,
	websocketHub *infra.WsManager,
	storage domain.ObjectStorage,
) *Engine {
	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		cfg:          cfg,
		db:           db,
		rdb:          rdb,
		bus:          event.NewBus(eventBufferSize),
		websocketHub: websocketHub,
		tokens:       auth.NewTokenManager(cfg.Server.JWTSecret, cfg.Server.TokenTTL),
		ctx:          ctx,
		cancel:       cancel,
	}
	if rdb != nil {
		e.tokenStore = infra.NewRedisTokenStore(rdb)
	}

	e.accounts = service.NewAccountService(db.DB, e.tokens, e.tokenStore, e.bus)
	e.requests = service.NewRequestService(db.DB, e.bus)
	e.inventory = service.NewInventoryService(db.DB, e.bus)
	e.catalog = service.NewCatalogService(db.DB)
	e.search = service.NewSearchService(db.DB)
	e.profiles = service.NewProfileService(db.DB, storage)
	return e
}

// Start 启动引擎后台进程
func (e *Engine) Start() error {
	log.Println("Engine: Starting...")

	// 1. 启动 WebSocket 管理器
	go e.websocketHub.Start(e.ctx)

	// 2. 事件分发
	if e.rdb != nil {
		// 所有实例都订阅 Redis 频道，本实例的事件也经由 Redis 回到 WebSocket
		e.bus.Subscribe(event.Wildcard, infra.RedisEventForwarder(e.rdb))
		if err := infra.StartEventSubscriber(e.ctx, e.rdb, e.websocketHub.HandleEvent); err != nil {
			return err
		}
	} else {
		e.bus.Subscribe(event.Wildcard, func(ctx context.Context, ev event.Event) error {
			e.websocketHub.HandleEvent(ev)
			return nil
		})
	}

	// 3. 确保存在管理员账户
	b := e.cfg.Bootstrap
	if err := e.accounts.EnsureAdmin(e.ctx, b.AdminUsername, b.AdminPassword, b.AdminEmail); err != nil {
		return err
	}

	log.Println("Engine: Started successfully")
	return nil
}

// Stop 停止引擎，排空尚未分发的事件
func (e *Engine) Stop() {
	log.Println("Engine: Stopping...")
	e.bus.Shutdown()
	e.cancel()
	if e.rdb != nil {
		if err := e.rdb.Close(); err != nil {
			log.Printf("Engine: Failed to close redis: %v", err)
		}
	}
}

// GetDatabaseClient 返回数据库客户端
func (e *Engine) GetDatabaseClient() *infra.DatabaseClient { return e.db }

// GetWebSocketHub 返回 WebSocket 管理器
func (e *Engine) GetWebSocketHub() *infra.WsManager { return e.websocketHub }

func (e *Engine) GetTokenManager() *auth.TokenManager { return e.tokens }

// GetTokenStore returns nil when Redis is disabled.
func (e *Engine) GetTokenStore() domain.TokenStore { return e.tokenStore }

func (e *Engine) GetEventBus() *event.Bus { return e.bus }

func (e *Engine) GetAccountService() domain.AccountService     { return e.accounts }
func (e *Engine) GetRequestService() domain.RequestService     { return e.requests }
func (e *Engine) GetInventoryService() domain.InventoryService { return e.inventory }
func (e *Engine) GetCatalogService() domain.CatalogService     { return e.catalog }
func (e *Engine) GetSearchService() domain.SearchService       { return e.search }
func (e *Engine) GetProfileService() domain.ProfileService     { return e.profiles }
