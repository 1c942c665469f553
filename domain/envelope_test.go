package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalEnvelope_Friendship(t *testing.T) {
	body := []byte(`{"type":"friendshipUpdate","to":"0xa","from":"0xb","action":"REQUEST","metadata":{"message":"hi"}}`)

	u, err := UnmarshalEnvelope(body)
	require.NoError(t, err)

	update, ok := u.(*FriendshipUpdate)
	require.True(t, ok)
	assert.Equal(t, "0xa", update.To)
	assert.Equal(t, "0xb", update.From)
	assert.Equal(t, FriendshipActionRequest, update.Action)
	assert.Equal(t, "hi", update.Metadata.Message)
}

func TestMarshalEnvelope_AddsTypeDiscriminator(t *testing.T) {
	body, err := MarshalEnvelope(BlockUpdate{BlockerAddress: "0xa", BlockedAddress: "0xb", IsBlocked: true})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(body, &fields))
	assert.Equal(t, "blockUpdate", fields["type"])
	assert.Equal(t, "0xb", fields["blockedAddress"])

	u, err := UnmarshalEnvelope(body)
	require.NoError(t, err)
	assert.Equal(t, &BlockUpdate{BlockerAddress: "0xa", BlockedAddress: "0xb", IsBlocked: true}, u)
}

func TestUnmarshalEnvelope_Errors(t *testing.T) {
	_, err := UnmarshalEnvelope([]byte(`{"type":"somethingElse"}`))
	assert.ErrorIs(t, err, ErrUnknownUpdateType)

	_, err = UnmarshalEnvelope([]byte(`not json`))
	assert.Error(t, err)

	_, err = UnmarshalEnvelope([]byte(`{"type":"blockUpdate","isBlocked":"yes"}`))
	assert.Error(t, err)
}

func TestUpdateType_Channel(t *testing.T) {
	for _, u := range []Update{
		FriendshipUpdate{},
		FriendConnectivityUpdate{},
		BlockUpdate{},
		PrivateVoiceChatUpdate{},
		CommunityMemberConnectivityUpdate{},
	} {
		assert.Contains(t, Channels, u.UpdateType().Channel())
	}

	assert.Empty(t, UpdateType("nope").Channel())
}

func TestUnmarshalEnvelope_NormalizesAddresses(t *testing.T) {
	u, err := UnmarshalEnvelope([]byte(`{"type":"privateVoiceChatUpdate","callId":"c1","status":"ENDED","callerAddress":"0xAB","calleeAddress":"0xCd"}`))
	require.NoError(t, err)
	assert.Equal(t, &PrivateVoiceChatUpdate{CallID: "c1", Status: VoiceChatEnded, CallerAddress: "0xab", CalleeAddress: "0xcd"}, u)

	u, err = UnmarshalEnvelope([]byte(`{"type":"friendshipUpdate","from":"0xB","to":"0xA","action":"REQUEST"}`))
	require.NoError(t, err)
	assert.Equal(t, "0xb", u.(*FriendshipUpdate).From)
	assert.Equal(t, "0xa", u.(*FriendshipUpdate).To)
}
