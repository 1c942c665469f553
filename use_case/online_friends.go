package use_case

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lam0glia/social-service/domain"
	"github.com/lam0glia/social-service/rpc"
)

type OnlineFriendsResponse struct {
	Friends []FriendConnectivityResponse `json:"friends"`
}

type getOnlineFriends struct {
	friends  domain.FriendshipReader
	presence domain.PresenceRepository
}

func (uc *getOnlineFriends) Execute(ctx context.Context, rc *rpc.Context, _ json.RawMessage) (any, error) {
	friends, err := uc.list(ctx, rc.Address)
	if err != nil {
		return nil, err
	}

	return OnlineFriendsResponse{Friends: friends}, nil
}

func (uc *getOnlineFriends) list(ctx context.Context, address string) ([]FriendConnectivityResponse, error) {
	friends, err := uc.friends.GetFriends(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("get friends: %w", err)
	}

	if len(friends) == 0 {
		return []FriendConnectivityResponse{}, nil
	}

	online, err := uc.presence.OnlineAmong(ctx, friends)
	if err != nil {
		return nil, fmt.Errorf("get online friends: %w", err)
	}

	out := make([]FriendConnectivityResponse, 0, len(online))
	for _, friend := range online {
		out = append(out, FriendConnectivityResponse{
			Address: friend,
			Status:  domain.ConnectivityOnline,
		})
	}

	return out, nil
}

func NewGetOnlineFriends(
	friends domain.FriendshipReader,
	presence domain.PresenceRepository,
) *getOnlineFriends {
	return &getOnlineFriends{
		friends:  friends,
		presence: presence,
	}
}
