package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

const envelopeTypeField = "type"

// MarshalEnvelope encodes u as a flat JSON object carrying a "type"
// discriminator next to the update's own fields.
func MarshalEnvelope(u Update) ([]byte, error) {
	body, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("encode update: %w", err)
	}

	var fields map[string]json.RawMessage
	if err = json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("decode update fields: %w", err)
	}

	fields[envelopeTypeField], err = json.Marshal(u.UpdateType())
	if err != nil {
		return nil, fmt.Errorf("encode update type: %w", err)
	}

	return json.Marshal(fields)
}

// NormalizeAddress returns the form addresses take as identities and
// registry keys.
func NormalizeAddress(address string) string {
	return strings.ToLower(address)
}

// UnmarshalEnvelope decodes an envelope produced by MarshalEnvelope. The
// returned update is a pointer to the concrete type with every address
// normalized.
func UnmarshalEnvelope(body []byte) (Update, error) {
	var head struct {
		Type UpdateType `json:"type"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	var u Update

	switch head.Type {
	case UpdateFriendship:
		u = &FriendshipUpdate{}
	case UpdateFriendConnectivity:
		u = &FriendConnectivityUpdate{}
	case UpdateBlock:
		u = &BlockUpdate{}
	case UpdatePrivateVoiceChat:
		u = &PrivateVoiceChatUpdate{}
	case UpdateCommunityMemberConnectivity:
		u = &CommunityMemberConnectivityUpdate{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownUpdateType, head.Type)
	}

	if err := json.Unmarshal(body, u); err != nil {
		return nil, fmt.Errorf("decode %s: %w", head.Type, err)
	}

	normalizeAddresses(u)

	return u, nil
}

func normalizeAddresses(u Update) {
	switch u := u.(type) {
	case *FriendshipUpdate:
		u.From = NormalizeAddress(u.From)
		u.To = NormalizeAddress(u.To)
	case *FriendConnectivityUpdate:
		u.Address = NormalizeAddress(u.Address)
	case *BlockUpdate:
		u.BlockerAddress = NormalizeAddress(u.BlockerAddress)
		u.BlockedAddress = NormalizeAddress(u.BlockedAddress)
	case *PrivateVoiceChatUpdate:
		u.CallerAddress = NormalizeAddress(u.CallerAddress)
		u.CalleeAddress = NormalizeAddress(u.CalleeAddress)
	case *CommunityMemberConnectivityUpdate:
		u.MemberAddress = NormalizeAddress(u.MemberAddress)
	}
}
