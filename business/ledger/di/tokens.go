// Package di contains dependency injection tokens for the ledger context.
package di

import (
	"github.com/fd1az/orca-arbitrage-bot/business/ledger/app"
	"github.com/fd1az/orca-arbitrage-bot/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Gateway = di.NewToken[*app.Gateway]("ledger.Gateway")
)

// Private dependency tokens - internal to ledger module
var (
	RPCClient = di.NewToken[app.RPCClient]("ledger:rpcClient")
	LogStream = di.NewToken[app.LogStream]("ledger:logStream")
)

// Helper functions for type-safe access
func GetGateway(c di.ServiceRegistry) *app.Gateway {
	return di.GetToken(c, Gateway)
}

func GetRPCClient(c di.ServiceRegistry) app.RPCClient {
	return di.GetToken(c, RPCClient)
}

func GetLogStream(c di.ServiceRegistry) app.LogStream {
	return di.GetToken(c, LogStream)
}
