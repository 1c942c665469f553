package use_case

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lam0glia/social-service/domain"
	"github.com/lam0glia/social-service/rpc"
	"github.com/lam0glia/social-service/stream"
)

type FriendshipUpdateResponse struct {
	ID        string                  `json:"id"`
	Address   string                  `json:"address"`
	Action    domain.FriendshipAction `json:"action"`
	CreatedAt int64                   `json:"createdAt"`
	Message   string                  `json:"message,omitempty"`
}

type subscribeToFriendshipUpdates struct {
	logger *slog.Logger
}

func (uc *subscribeToFriendshipUpdates) Execute(
	ctx context.Context,
	rc *rpc.Context,
	_ json.RawMessage,
) (rpc.Stream, error) {
	return open(ctx, rc, stream.Subscription[FriendshipUpdateResponse]{
		Type: domain.UpdateFriendship,
		GetAddress: func(u domain.Update) string {
			return u.(*domain.FriendshipUpdate).From
		},
		ShouldHandle: func(u domain.Update) bool {
			return u.(*domain.FriendshipUpdate).From != rc.Address
		},
		Parse: parseFriendshipUpdate,
	}, uc.logger)
}

func parseFriendshipUpdate(u domain.Update, peer string) (FriendshipUpdateResponse, error) {
	f := u.(*domain.FriendshipUpdate)

	switch f.Action {
	case domain.FriendshipActionRequest,
		domain.FriendshipActionCancel,
		domain.FriendshipActionAccept,
		domain.FriendshipActionReject,
		domain.FriendshipActionDelete,
		domain.FriendshipActionBlock:
	default:
		return FriendshipUpdateResponse{}, fmt.Errorf("unknown friendship action %q", f.Action)
	}

	resp := FriendshipUpdateResponse{
		ID:        f.ID,
		Address:   peer,
		Action:    f.Action,
		CreatedAt: f.Timestamp,
	}

	if f.Action == domain.FriendshipActionRequest && f.Metadata != nil {
		resp.Message = f.Metadata.Message
	}

	return resp, nil
}

func NewSubscribeToFriendshipUpdates(logger *slog.Logger) *subscribeToFriendshipUpdates {
	return &subscribeToFriendshipUpdates{logger: logger}
}
