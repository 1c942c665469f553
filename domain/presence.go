package domain

import (
	"context"
)

type PresenceRepository interface {
	SetOnline(ctx context.Context, address string) error
	Refresh(ctx context.Context, address string) error
	SetOffline(ctx context.Context, address string) error
	// OnlineAmong returns the subset of addresses that are currently online.
	OnlineAmong(ctx context.Context, addresses []string) ([]string, error)
}

type PresenceService interface {
	SetUserOnline(ctx context.Context, address string) error
	RefreshUserPresence(ctx context.Context, address string) error
	SetUserOffline(ctx context.Context, address string) error
}
