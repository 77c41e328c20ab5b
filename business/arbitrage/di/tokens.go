// Package di contains dependency injection tokens for the arbitrage context.
package di

import (
	"github.com/fd1az/orca-arbitrage-bot/business/arbitrage/app"
	"github.com/fd1az/orca-arbitrage-bot/business/arbitrage/infra/txbuilder"
	"github.com/fd1az/orca-arbitrage-bot/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Pipeline = di.NewToken[*app.Pipeline]("arbitrage.Pipeline")
	Analyzer = di.NewToken[*app.Analyzer]("arbitrage.Analyzer")
	Bundler  = di.NewToken[*app.Bundler]("arbitrage.Bundler")
	Executor = di.NewToken[*app.Executor]("arbitrage.Executor")
)

// Private dependency tokens - internal to arbitrage module
var (
	// TxBuilder resolves to a nil *txbuilder.Builder without a signer.
	TxBuilder = di.NewToken[*txbuilder.Builder]("arbitrage:txBuilder")
	Dedup     = di.NewToken[*app.Dedup]("arbitrage:dedup")
)

// Helper functions for type-safe access
func GetPipeline(c di.ServiceRegistry) *app.Pipeline {
	return di.GetToken(c, Pipeline)
}

func GetAnalyzer(c di.ServiceRegistry) *app.Analyzer {
	return di.GetToken(c, Analyzer)
}

func GetBundler(c di.ServiceRegistry) *app.Bundler {
	return di.GetToken(c, Bundler)
}

func GetExecutor(c di.ServiceRegistry) *app.Executor {
	return di.GetToken(c, Executor)
}

func GetTxBuilder(c di.ServiceRegistry) *txbuilder.Builder {
	return di.GetToken(c, TxBuilder)
}

func GetDedup(c di.ServiceRegistry) *app.Dedup {
	return di.GetToken(c, Dedup)
}
