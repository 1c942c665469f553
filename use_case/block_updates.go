package use_case

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/lam0glia/social-service/domain"
	"github.com/lam0glia/social-service/rpc"
	"github.com/lam0glia/social-service/stream"
)

type BlockUpdateResponse struct {
	Address   string `json:"address"`
	IsBlocked bool   `json:"isBlocked"`
}

type subscribeToBlockUpdates struct {
	logger *slog.Logger
}

func (uc *subscribeToBlockUpdates) Execute(
	ctx context.Context,
	rc *rpc.Context,
	_ json.RawMessage,
) (rpc.Stream, error) {
	return open(ctx, rc, stream.Subscription[BlockUpdateResponse]{
		Type: domain.UpdateBlock,
		GetAddress: func(u domain.Update) string {
			return u.(*domain.BlockUpdate).BlockerAddress
		},
		ShouldHandle: func(u domain.Update) bool {
			return u.(*domain.BlockUpdate).BlockerAddress != rc.Address
		},
		Parse: func(u domain.Update, peer string) (BlockUpdateResponse, error) {
			return BlockUpdateResponse{
				Address:   peer,
				IsBlocked: u.(*domain.BlockUpdate).IsBlocked,
			}, nil
		},
	}, uc.logger)
}

func NewSubscribeToBlockUpdates(logger *slog.Logger) *subscribeToBlockUpdates {
	return &subscribeToBlockUpdates{logger: logger}
}
