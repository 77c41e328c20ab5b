// Package di contains dependency injection tokens for the pool context.
package di

import (
	"github.com/fd1az/orca-arbitrage-bot/business/pool/app"
	"github.com/fd1az/orca-arbitrage-bot/business/pool/domain"
	"github.com/fd1az/orca-arbitrage-bot/business/pool/infra/redis"
	"github.com/fd1az/orca-arbitrage-bot/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Cache = di.NewToken[*app.Cache]("pool.Cache")
	Curve = di.NewToken[domain.Curve]("pool.Curve")
)

// Private dependency tokens - internal to pool module
var (
	PoolQuery = di.NewToken[app.PoolQuery]("pool:poolQuery")
	// Mirror resolves to a nil *redis.Mirror when no redis url is configured.
	Mirror = di.NewToken[*redis.Mirror]("pool:mirror")
)

// Helper functions for type-safe access
func GetCache(c di.ServiceRegistry) *app.Cache {
	return di.GetToken(c, Cache)
}

func GetCurve(c di.ServiceRegistry) domain.Curve {
	return di.GetToken(c, Curve)
}

func GetPoolQuery(c di.ServiceRegistry) app.PoolQuery {
	return di.GetToken(c, PoolQuery)
}

func GetMirror(c di.ServiceRegistry) *redis.Mirror {
	return di.GetToken(c, Mirror)
}
