package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/cloudwego/hertz/pkg/app/middlewares/server/recovery"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/hertz-contrib/cors"
	"github.com/hertz-contrib/gzip"
	"github.com/hertz-contrib/logger/accesslog"
	"github.com/hertz-contrib/pprof"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"papertrade-hertz/biz/dal"
	"papertrade-hertz/biz/dal/kafka"
	"papertrade-hertz/biz/dal/pg"
	"papertrade-hertz/biz/dal/redis"
	"papertrade-hertz/biz/engine"
	"papertrade-hertz/biz/handler"
	"papertrade-hertz/biz/market"
	"papertrade-hertz/biz/router"
	"papertrade-hertz/biz/service"
	"papertrade-hertz/conf"
	papersrv "papertrade-hertz/server"
	"papertrade-hertz/util"
)

const feedPoolSize = 1000

func main() {
	_ = godotenv.Load()
	cfg := conf.GetConf()

	h := server.New(server.WithHostPorts(cfg.Hertz.Address), server.WithExitWaitTime(5*time.Second))
	h.NoHijackConnPool = true
	initLog(h)

	dal.Init()
	util.InitSonyFlake()
	if err := engine.InitLookupPool(cfg.Trading.LookupPoolSize); err != nil {
		hlog.Fatalf("[Main] 初始化行情协程池失败: %v", err)
	}
	if err := engine.InitFeedPool(feedPoolSize); err != nil {
		hlog.Fatalf("[Main] 初始化推送协程池失败: %v", err)
	}

	trading := cfg.Trading
	startingCash, feeRate, fxDefault := trading.Decimals()
	client := &http.Client{}
	quotes := market.NewYahooQuoteSource(client, trading.QuoteEndpoint, trading.QuoteTimeout())

	var fxOpts []market.FXOption
	if redis.Client != nil {
		fxOpts = append(fxOpts, market.WithRateStore(redis.NewFXRateStore(redis.Client)))
	}
	fx := market.NewCurrencyNormalizer(client, market.FXConfig{
		Endpoint:    trading.FXEndpoint,
		Currency:    trading.FXCurrency,
		Timeout:     trading.FXTimeout(),
		TTL:         trading.FXTTL(),
		DefaultRate: fxDefault,
	}, fxOpts...)
	warmCtx, cancel := context.WithTimeout(context.Background(), trading.FXTimeout())
	fx.Warm(warmCtx)
	cancel()

	calendar, err := market.NewCalendar(market.CalendarConfig{
		Timezone: trading.DomesticTimezone,
		Open:     trading.DomesticOpen,
		Close:    trading.DomesticClose,
		Holidays: trading.Holidays,
	})
	if err != nil {
		hlog.Fatalf("[Main] 交易日历配置错误: %v", err)
	}

	feed := papersrv.NewExecutionFeed(engine.FeedPool)
	publishers := service.MultiPublisher{service.NewFeedPublisher(feed.Unicast)}
	var kafkaPub *service.KafkaPublisher
	if kafka.Enabled() {
		kafkaPub = service.NewKafkaPublisher(kafka.GetWriter(cfg.Kafka.Topic), cfg.Kafka.Topic)
		publishers = append(publishers, kafkaPub)
	}

	store := pg.NewStore(pg.GormDB)
	settings := service.Settings{StartingCash: startingCash, FeeRate: feeRate}
	tradeEngine := service.NewTradeEngine(store, quotes, fx, calendar, settings, service.WithPublisher(publishers))
	valuator := service.NewValuator(store, quotes, fx, engine.LookupPool, trading.QuoteTimeout(), startingCash)
	marketService := service.NewMarketService(quotes, quotes, fx)

	registerMiddleware(h)
	router.Register(h.Engine, router.Handlers{
		Trade:     handler.NewTradeHandler(tradeEngine),
		Portfolio: handler.NewPortfolioHandler(valuator, service.NewLedger(store)),
		Market:    handler.NewMarketHandler(marketService),
		Feed:      feed.Handler(),
		Ping:      pg.Ping,
	})

	registerNode(h, cfg)
	h.OnShutdown = append(h.OnShutdown, func(ctx context.Context) {
		if kafkaPub != nil {
			kafkaPub.Close()
		}
		engine.Release()
		dal.Close()
	})

	hlog.Infof("[Main] papertrade 启动, env=%s addr=%s", cfg.Env, cfg.Hertz.Address)
	h.Spin()
}

func registerMiddleware(h *server.Hertz) {
	cfg := conf.GetConf().Hertz
	if cfg.EnablePprof {
		pprof.Register(h)
	}
	if cfg.EnableGzip {
		h.Use(gzip.Gzip(gzip.DefaultCompression))
	}
	if cfg.EnableAccessLog {
		h.Use(accesslog.New(accesslog.WithFormat("[${time}] ${status} - ${latency} ${method} ${path} ${queryParams}")))
	}
	h.Use(recovery.Recovery())

	origins := util.ParseList(os.Getenv("CORS_ORIGINS"))
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "X-User-ID"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
	}
	h.Use(cors.New(corsCfg))
}

// registerNode 注册到 consul，未配置注册中心时跳过
func registerNode(h *server.Hertz, cfg *conf.Config) {
	if len(cfg.Registry.RegistryAddress) == 0 || cfg.Registry.NodeID == "" {
		return
	}
	helper, err := service.NewConsulHelperWithAddrs(cfg.Registry.RegistryAddress,
		service.WithServiceName(cfg.Hertz.Service),
		service.WithBasicAuth(cfg.Registry.Username, cfg.Registry.Password),
	)
	if err != nil {
		hlog.Errorf("[Consul] 连接失败: %v", err)
		return
	}
	host, port, err := util.AdvertiseAddr(cfg.Hertz.Address)
	if err != nil {
		hlog.Errorf("[Consul] 监听地址解析失败: %v", err)
		return
	}
	if err := helper.RegisterNode(cfg.Registry.NodeID, host, port); err != nil {
		hlog.Errorf("[Consul] 注册节点失败: %v", err)
		return
	}
	hlog.Infof("[Consul] 节点已注册: %s %s:%d", cfg.Registry.NodeID, host, port)
	h.OnShutdown = append(h.OnShutdown, func(ctx context.Context) {
		if err := helper.DeregisterNode(cfg.Registry.NodeID); err != nil {
			hlog.Warnf("[Consul] 注销节点失败: %v", err)
		}
	})
}

func initLog(h *server.Hertz) {
	cfg := conf.GetConf()
	hlog.SetLevel(conf.LogLevel())
	if cfg.Env == "test" || cfg.Env == "dev" || cfg.Hertz.LogFileName == "" {
		hlog.SetOutput(os.Stdout)
		return
	}
	asyncWriter := &zapcore.BufferedWriteSyncer{
		WS: zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.Hertz.LogFileName,
			MaxSize:    cfg.Hertz.LogMaxSize,
			MaxBackups: cfg.Hertz.LogMaxBackups,
			MaxAge:     cfg.Hertz.LogMaxAge,
		}),
		FlushInterval: time.Minute,
	}
	hlog.SetOutput(asyncWriter)
	h.OnShutdown = append(h.OnShutdown, func(ctx context.Context) {
		_ = asyncWriter.Sync()
	})
}
