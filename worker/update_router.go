package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lam0glia/social-service/domain"
	"github.com/lam0glia/social-service/metrics"
	"github.com/lam0glia/social-service/subscriber"
)

// UpdateRouter fans updates received from the bus out to the emitters of
// the addresses connected to this process.
type UpdateRouter struct {
	bus         domain.PubSub
	subscribers *subscriber.Registry
	friends     domain.FriendshipReader
	communities domain.CommunityReader
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

func NewUpdateRouter(
	bus domain.PubSub,
	subscribers *subscriber.Registry,
	friends domain.FriendshipReader,
	communities domain.CommunityReader,
	logger *slog.Logger,
	m *metrics.Metrics,
) *UpdateRouter {
	return &UpdateRouter{
		bus:         bus,
		subscribers: subscribers,
		friends:     friends,
		communities: communities,
		logger:      logger.With("component", "update_router"),
		metrics:     m,
	}
}

// Start subscribes to every update channel. Handlers stop when ctx is done.
func (r *UpdateRouter) Start(ctx context.Context) error {
	for _, channel := range domain.Channels {
		channel := channel

		err := r.bus.Subscribe(ctx, channel, func(ctx context.Context, body []byte) {
			r.Handle(ctx, channel, body)
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", channel, err)
		}
	}

	r.logger.Info("listening for updates", "channels", domain.Channels)

	return nil
}

// Handle routes one bus message. Undecodable messages are dropped.
func (r *UpdateRouter) Handle(ctx context.Context, channel string, body []byte) {
	u, err := domain.UnmarshalEnvelope(body)
	if err != nil {
		r.metrics.BusMessages.WithLabelValues(channel, "malformed").Inc()
		r.logger.Warn("drop update", "channel", channel, "err", err)
		return
	}

	if u.UpdateType().Channel() != channel {
		r.metrics.BusMessages.WithLabelValues(channel, "wrong_channel").Inc()
		r.logger.Warn("drop update published on the wrong channel",
			"channel", channel,
			"type", u.UpdateType())
		return
	}

	recipients, err := r.recipients(ctx, u)
	if err != nil {
		r.metrics.BusMessages.WithLabelValues(channel, "lookup_failed").Inc()
		r.logger.Error("resolve recipients", "channel", channel, "err", err)
		return
	}

	delivered := 0
	for _, address := range recipients {
		emitter, ok := r.subscribers.Lookup(address)
		if !ok {
			continue
		}

		emitter.Emit(u.UpdateType(), u)
		delivered++
	}

	outcome := "routed"
	if delivered == 0 {
		outcome = "no_recipient"
	}
	r.metrics.BusMessages.WithLabelValues(channel, outcome).Inc()
}

func (r *UpdateRouter) recipients(ctx context.Context, u domain.Update) ([]string, error) {
	switch u := u.(type) {
	case *domain.FriendshipUpdate:
		return []string{u.To}, nil

	case *domain.BlockUpdate:
		return []string{u.BlockedAddress}, nil

	case *domain.PrivateVoiceChatUpdate:
		switch u.Status {
		case domain.VoiceChatRequested:
			return []string{u.CalleeAddress}, nil
		case domain.VoiceChatAccepted, domain.VoiceChatRejected:
			return []string{u.CallerAddress}, nil
		case domain.VoiceChatEnded, domain.VoiceChatExpired:
			return []string{u.CallerAddress, u.CalleeAddress}, nil
		default:
			return nil, fmt.Errorf("voice chat status %q", u.Status)
		}

	case *domain.FriendConnectivityUpdate:
		candidates := r.localAddressesExcept(u.Address)
		if len(candidates) == 0 {
			return nil, nil
		}

		friends, err := r.friends.FriendsAmong(ctx, u.Address, candidates)
		if err != nil {
			return nil, fmt.Errorf("friends of %s: %w", u.Address, err)
		}
		return friends, nil

	case *domain.CommunityMemberConnectivityUpdate:
		candidates := r.localAddressesExcept(u.MemberAddress)
		if len(candidates) == 0 {
			return nil, nil
		}

		members, err := r.communities.MembersAmong(ctx, u.CommunityID, candidates)
		if err != nil {
			return nil, fmt.Errorf("members of %s: %w", u.CommunityID, err)
		}
		return members, nil

	default:
		return nil, fmt.Errorf("%w: %T", domain.ErrUnknownUpdateType, u)
	}
}

func (r *UpdateRouter) localAddressesExcept(address string) []string {
	all := r.subscribers.Addresses()

	out := all[:0]
	for _, a := range all {
		if a != address {
			out = append(out, a)
		}
	}

	return out
}
