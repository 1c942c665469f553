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

type FriendConnectivityResponse struct {
	Address string                    `json:"address"`
	Status  domain.ConnectivityStatus `json:"status"`
}

type subscribeToFriendConnectivityUpdates struct {
	onlineFriends *getOnlineFriends
	logger        *slog.Logger
}

func (uc *subscribeToFriendConnectivityUpdates) Execute(
	ctx context.Context,
	rc *rpc.Context,
	_ json.RawMessage,
) (rpc.Stream, error) {
	return open(ctx, rc, stream.Subscription[FriendConnectivityResponse]{
		Type: domain.UpdateFriendConnectivity,
		GetAddress: func(u domain.Update) string {
			return u.(*domain.FriendConnectivityUpdate).Address
		},
		ShouldHandle: func(u domain.Update) bool {
			return u.(*domain.FriendConnectivityUpdate).Address != rc.Address
		},
		Parse: func(u domain.Update, peer string) (FriendConnectivityResponse, error) {
			return FriendConnectivityResponse{
				Address: peer,
				Status:  u.(*domain.FriendConnectivityUpdate).Status,
			}, nil
		},
		Initial: func(ctx context.Context) ([]FriendConnectivityResponse, error) {
			return uc.onlineFriends.list(ctx, rc.Address)
		},
	}, uc.logger)
}

func NewSubscribeToFriendConnectivityUpdates(
	friends domain.FriendshipReader,
	presence domain.PresenceRepository,
	logger *slog.Logger,
) *subscribeToFriendConnectivityUpdates {
	return &subscribeToFriendConnectivityUpdates{
		onlineFriends: NewGetOnlineFriends(friends, presence),
		logger:        logger,
	}
}

type CommunityMemberConnectivityResponse struct {
	CommunityID string                    `json:"communityId"`
	Address     string                    `json:"address"`
	Status      domain.ConnectivityStatus `json:"status"`
}

type subscribeToCommunityMemberConnectivityUpdates struct {
	logger *slog.Logger
}

func (uc *subscribeToCommunityMemberConnectivityUpdates) Execute(
	ctx context.Context,
	rc *rpc.Context,
	_ json.RawMessage,
) (rpc.Stream, error) {
	return open(ctx, rc, stream.Subscription[CommunityMemberConnectivityResponse]{
		Type: domain.UpdateCommunityMemberConnectivity,
		GetAddress: func(u domain.Update) string {
			return u.(*domain.CommunityMemberConnectivityUpdate).MemberAddress
		},
		ShouldHandle: func(u domain.Update) bool {
			return u.(*domain.CommunityMemberConnectivityUpdate).MemberAddress != rc.Address
		},
		Parse: func(u domain.Update, peer string) (CommunityMemberConnectivityResponse, error) {
			c := u.(*domain.CommunityMemberConnectivityUpdate)
			if c.CommunityID == "" {
				return CommunityMemberConnectivityResponse{}, fmt.Errorf("missing community id")
			}

			return CommunityMemberConnectivityResponse{
				CommunityID: c.CommunityID,
				Address:     peer,
				Status:      c.Status,
			}, nil
		},
	}, uc.logger)
}

func NewSubscribeToCommunityMemberConnectivityUpdates(logger *slog.Logger) *subscribeToCommunityMemberConnectivityUpdates {
	return &subscribeToCommunityMemberConnectivityUpdates{logger: logger}
}
