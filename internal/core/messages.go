package core

// Protocol event names exchanged with clients.
const (
	// MessageVersion reports the protocol version on connect.
	MessageVersion = "version"
	// MessageUserProps carries a client's property bag.
	MessageUserProps = "user-props"
	// MessageUserJoin announces a newly joined lobby member.
	MessageUserJoin = "user-join"
	// MessageUserLeave carries the id of a departing user.
	MessageUserLeave = "user-leave"
	// MessageLobbyUsers carries the lobby roster sent to a joiner.
	MessageLobbyUsers = "lobby-users"
)
