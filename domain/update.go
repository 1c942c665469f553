package domain

type UpdateType string

const (
	UpdateFriendship                  UpdateType = "friendshipUpdate"
	UpdateFriendConnectivity          UpdateType = "friendConnectivityUpdate"
	UpdateBlock                       UpdateType = "blockUpdate"
	UpdatePrivateVoiceChat            UpdateType = "privateVoiceChatUpdate"
	UpdateCommunityMemberConnectivity UpdateType = "communityMemberConnectivityUpdate"
)

// Channel returns the pub/sub channel that carries updates of this type.
func (t UpdateType) Channel() string {
	switch t {
	case UpdateFriendship:
		return ChannelFriendshipUpdates
	case UpdateFriendConnectivity:
		return ChannelFriendConnectivityUpdates
	case UpdateBlock:
		return ChannelBlockUpdates
	case UpdatePrivateVoiceChat:
		return ChannelPrivateVoiceChatUpdates
	case UpdateCommunityMemberConnectivity:
		return ChannelCommunityMemberConnectivityUpdates
	default:
		return ""
	}
}

// Update is a decoded domain event on its way from the bus to subscribers.
type Update interface {
	UpdateType() UpdateType
}

type FriendshipAction string

const (
	FriendshipActionRequest FriendshipAction = "REQUEST"
	FriendshipActionCancel  FriendshipAction = "CANCEL"
	FriendshipActionAccept  FriendshipAction = "ACCEPT"
	FriendshipActionReject  FriendshipAction = "REJECT"
	FriendshipActionDelete  FriendshipAction = "DELETE"
	FriendshipActionBlock   FriendshipAction = "BLOCK"
)

type FriendshipMetadata struct {
	Message string `json:"message,omitempty"`
}

type FriendshipUpdate struct {
	ID        string              `json:"id"`
	From      string              `json:"from"`
	To        string              `json:"to"`
	Action    FriendshipAction    `json:"action"`
	Timestamp int64               `json:"timestamp"`
	Metadata  *FriendshipMetadata `json:"metadata,omitempty"`
}

func (FriendshipUpdate) UpdateType() UpdateType { return UpdateFriendship }

type ConnectivityStatus string

const (
	ConnectivityOnline  ConnectivityStatus = "ONLINE"
	ConnectivityOffline ConnectivityStatus = "OFFLINE"
	ConnectivityAway    ConnectivityStatus = "AWAY"
)

type FriendConnectivityUpdate struct {
	Address string             `json:"address"`
	Status  ConnectivityStatus `json:"status"`
}

func (FriendConnectivityUpdate) UpdateType() UpdateType { return UpdateFriendConnectivity }

type BlockUpdate struct {
	BlockerAddress string `json:"blockerAddress"`
	BlockedAddress string `json:"blockedAddress"`
	IsBlocked      bool   `json:"isBlocked"`
}

func (BlockUpdate) UpdateType() UpdateType { return UpdateBlock }

type VoiceChatStatus string

const (
	VoiceChatRequested VoiceChatStatus = "REQUESTED"
	VoiceChatAccepted  VoiceChatStatus = "ACCEPTED"
	VoiceChatRejected  VoiceChatStatus = "REJECTED"
	VoiceChatEnded     VoiceChatStatus = "ENDED"
	VoiceChatExpired   VoiceChatStatus = "EXPIRED"
)

type VoiceChatCredentials struct {
	ConnectionURL string `json:"connectionUrl"`
}

type PrivateVoiceChatUpdate struct {
	CallID        string                `json:"callId"`
	Status        VoiceChatStatus       `json:"status"`
	CallerAddress string                `json:"callerAddress"`
	CalleeAddress string                `json:"calleeAddress"`
	Credentials   *VoiceChatCredentials `json:"credentials,omitempty"`
}

func (PrivateVoiceChatUpdate) UpdateType() UpdateType { return UpdatePrivateVoiceChat }

type CommunityMemberConnectivityUpdate struct {
	CommunityID   string             `json:"communityId"`
	MemberAddress string             `json:"memberAddress"`
	Status        ConnectivityStatus `json:"status"`
}

func (CommunityMemberConnectivityUpdate) UpdateType() UpdateType {
	return UpdateCommunityMemberConnectivity
}
