package pg

import (
	"context"
	"fmt"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"papertrade-hertz/biz/model"
	"papertrade-hertz/conf"
)

var PostgresClient *pgxpool.Pool
var GormDB *gorm.DB

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Init 按配置初始化数据库连接并自动迁移
func Init() {
	pgConf := conf.GetConf().Postgres
	if pgConf.Driver == DriverPostgres {
		// 健康检查使用独立的 pgx 连接池
		pool, err := pgxpool.New(context.Background(), pgConf.DSN)
		if err != nil {
			panic(fmt.Sprintf("failed to connect to postgres: %v", err))
		}
		if err := pool.Ping(context.Background()); err != nil {
			panic(fmt.Sprintf("failed to ping postgres: %v", err))
		}
		PostgresClient = pool
	}

	db, err := Open(pgConf.Driver, pgConf.DSN)
	if err != nil {
		panic(fmt.Sprintf("failed to init gorm: %v", err))
	}
	GormDB = db
	if err := AutoMigrate(GormDB); err != nil {
		panic(fmt.Sprintf("failed to auto migrate: %v", err))
	}
	hlog.Infof("[DB] 数据库初始化完成, driver=%s", pgConf.Driver)
}

// Open 打开 gorm 连接，sqlite 仅用于本地运行和测试
func Open(driver, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	switch driver {
	case DriverPostgres:
		return gorm.Open(postgres.Open(dsn), cfg)
	case DriverSQLite:
		db, err := gorm.Open(sqlite.Open(dsn), cfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// sqlite 只允许单写连接
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// AutoMigrate 自动迁移表结构
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return gorm.ErrInvalidDB
	}
	return db.AutoMigrate(&model.User{}, &model.Portfolio{}, &model.Holding{}, &model.Transaction{})
}

// Ping 检查数据库连通性
func Ping(ctx context.Context) error {
	if PostgresClient != nil {
		return PostgresClient.Ping(ctx)
	}
	if GormDB == nil {
		return gorm.ErrInvalidDB
	}
	sqlDB, err := GormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 关闭连接池
func Close() {
	if PostgresClient != nil {
		PostgresClient.Close()
	}
	if GormDB != nil {
		if sqlDB, err := GormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
