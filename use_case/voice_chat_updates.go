package use_case

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/lam0glia/social-service/domain"
	"github.com/lam0glia/social-service/rpc"
	"github.com/lam0glia/social-service/stream"
)

type PrivateVoiceChatResponse struct {
	CallID        string                 `json:"callId"`
	Status        domain.VoiceChatStatus `json:"status"`
	Address       string                 `json:"address"`
	ConnectionURL string                 `json:"connectionUrl,omitempty"`
}

type subscribeToPrivateVoiceChatUpdates struct {
	logger *slog.Logger
}

func (uc *subscribeToPrivateVoiceChatUpdates) Execute(
	ctx context.Context,
	rc *rpc.Context,
	_ json.RawMessage,
) (rpc.Stream, error) {
	return open(ctx, rc, stream.Subscription[PrivateVoiceChatResponse]{
		Type: domain.UpdatePrivateVoiceChat,
		GetAddress: func(u domain.Update) string {
			v := u.(*domain.PrivateVoiceChatUpdate)
			if v.CallerAddress == rc.Address {
				return v.CalleeAddress
			}
			return v.CallerAddress
		},
		ShouldHandle: func(u domain.Update) bool {
			return !isOwnVoiceChatAction(u.(*domain.PrivateVoiceChatUpdate), rc.Address)
		},
		Parse: func(u domain.Update, peer string) (PrivateVoiceChatResponse, error) {
			v := u.(*domain.PrivateVoiceChatUpdate)

			resp := PrivateVoiceChatResponse{
				CallID:  v.CallID,
				Status:  v.Status,
				Address: peer,
			}
			if v.Credentials != nil {
				resp.ConnectionURL = v.Credentials.ConnectionURL
			}

			return resp, nil
		},
	}, uc.logger)
}

// isOwnVoiceChatAction reports whether address caused the transition. Ended
// and expired calls reach both parties.
func isOwnVoiceChatAction(v *domain.PrivateVoiceChatUpdate, address string) bool {
	switch v.Status {
	case domain.VoiceChatRequested:
		return v.CallerAddress == address
	case domain.VoiceChatAccepted, domain.VoiceChatRejected:
		return v.CalleeAddress == address
	default:
		return false
	}
}

func NewSubscribeToPrivateVoiceChatUpdates(logger *slog.Logger) *subscribeToPrivateVoiceChatUpdates {
	return &subscribeToPrivateVoiceChatUpdates{logger: logger}
}
