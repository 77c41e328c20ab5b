// Package di contains dependency injection tokens for the listener context.
package di

import (
	"github.com/fd1az/orca-arbitrage-bot/business/listener/app"
	"github.com/fd1az/orca-arbitrage-bot/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Listener   = di.NewToken[*app.Listener]("listener.Listener")
	EventQueue = di.NewToken[*app.EventQueue]("listener.EventQueue")
)

// Helper functions for type-safe access
func GetListener(c di.ServiceRegistry) *app.Listener {
	return di.GetToken(c, Listener)
}

func GetEventQueue(c di.ServiceRegistry) *app.EventQueue {
	return di.GetToken(c, EventQueue)
}
