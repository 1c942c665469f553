package domain

import "context"

type FriendshipReader interface {
	GetFriends(ctx context.Context, address string) ([]string, error)
	// FriendsAmong returns the candidates that are friends of address.
	FriendsAmong(ctx context.Context, address string, candidates []string) ([]string, error)
}

type CommunityReader interface {
	// MembersAmong returns the candidates that are members of the community.
	MembersAmong(ctx context.Context, communityID string, candidates []string) ([]string, error)
}
