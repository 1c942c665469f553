package use_case

import (
	"context"
	"log/slog"

	"github.com/lam0glia/social-service/domain"
	"github.com/lam0glia/social-service/rpc"
	"github.com/lam0glia/social-service/stream"
)

const (
	MethodSubscribeToFriendshipUpdates                  = "subscribeToFriendshipUpdates"
	MethodSubscribeToFriendConnectivityUpdates          = "subscribeToFriendConnectivityUpdates"
	MethodSubscribeToBlockUpdates                       = "subscribeToBlockUpdates"
	MethodSubscribeToPrivateVoiceChatUpdates            = "subscribeToPrivateVoiceChatUpdates"
	MethodSubscribeToCommunityMemberConnectivityUpdates = "subscribeToCommunityMemberConnectivityUpdates"
	MethodGetOnlineFriends                              = "getOnlineFriends"
)

type Dependencies struct {
	Friends  domain.FriendshipReader
	Presence domain.PresenceRepository
	Logger   *slog.Logger
}

// Register binds every social method to server.
func Register(server *rpc.Server, deps Dependencies) {
	logger := deps.Logger.With("component", "use_case")

	server.RegisterStream(MethodSubscribeToFriendshipUpdates,
		NewSubscribeToFriendshipUpdates(logger).Execute)
	server.RegisterStream(MethodSubscribeToFriendConnectivityUpdates,
		NewSubscribeToFriendConnectivityUpdates(deps.Friends, deps.Presence, logger).Execute)
	server.RegisterStream(MethodSubscribeToBlockUpdates,
		NewSubscribeToBlockUpdates(logger).Execute)
	server.RegisterStream(MethodSubscribeToPrivateVoiceChatUpdates,
		NewSubscribeToPrivateVoiceChatUpdates(logger).Execute)
	server.RegisterStream(MethodSubscribeToCommunityMemberConnectivityUpdates,
		NewSubscribeToCommunityMemberConnectivityUpdates(logger).Execute)
	server.RegisterUnary(MethodGetOnlineFriends,
		NewGetOnlineFriends(deps.Friends, deps.Presence).Execute)
}

func open[R any](
	ctx context.Context,
	rc *rpc.Context,
	sub stream.Subscription[R],
	logger *slog.Logger,
) (rpc.Stream, error) {
	s, err := stream.Subscribe(ctx, rc.Emitter(), sub, logger.With("address", rc.Address))
	if err != nil {
		return nil, err
	}

	return rpc.Adapt[R](s), nil
}
