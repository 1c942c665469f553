package service

import (
	"context"
	"fmt"

	"github.com/lam0glia/social-service/domain"
)

type presenceService struct {
	repository domain.PresenceRepository
	bus        domain.PubSub
}

func (s *presenceService) SetUserOnline(ctx context.Context, address string) error {
	err := s.repository.SetOnline(ctx, address)
	if err != nil {
		return fmt.Errorf("set online: %w", err)
	}

	if err = s.publish(ctx, address, domain.ConnectivityOnline); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	return nil
}

func (s *presenceService) RefreshUserPresence(ctx context.Context, address string) error {
	return s.repository.Refresh(ctx, address)
}

func (s *presenceService) SetUserOffline(ctx context.Context, address string) error {
	err := s.repository.SetOffline(ctx, address)
	if err != nil {
		return fmt.Errorf("set offline: %w", err)
	}

	if err = s.publish(ctx, address, domain.ConnectivityOffline); err != nil {
		return fmt.Errorf("publish message to channel: %w", err)
	}

	return nil
}

func (s *presenceService) publish(ctx context.Context, address string, status domain.ConnectivityStatus) error {
	body, err := domain.MarshalEnvelope(&domain.FriendConnectivityUpdate{
		Address: address,
		Status:  status,
	})
	if err != nil {
		return err
	}

	return s.bus.Publish(ctx, domain.ChannelFriendConnectivityUpdates, body)
}

func NewPresence(repository domain.PresenceRepository, bus domain.PubSub) *presenceService {
	return &presenceService{
		repository: repository,
		bus:        bus,
	}
}
