package gateway

import "context"

// Dispatcher is the interface services use to push events to connected
// WebSocket clients. The concrete Manager implements this interface.
type Dispatcher interface {
	DispatchToAccount(accountID int64, event string, data interface{})
}

// Authorizer decides whether a viewer may watch an account's bans.
type Authorizer interface {
	CanViewBans(ctx context.Context, viewerID, accountID int64) (bool, error)
}
