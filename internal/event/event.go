// Package event defines the outbound frames pushed to connected clients.
// Shared by the delivery pipeline (producer) and the gateway (serializer)
// so neither imports the other.
package event

type Type string

const (
	TypeMatchFormed       Type = "match_formed"
	TypeMatchDissolved    Type = "match_dissolved"
	TypeMessageReceived   Type = "message_received"
	TypeNewLike           Type = "new_like"
	TypeSessionSuperseded Type = "session_superseded"
	TypeAck               Type = "ack"
	TypeError             Type = "error"
)

// Event is the single outbound frame shape; unset fields are omitted on
// the wire. Receivers must treat a duplicate (sender_id, sequence) as an
// idempotent no-op: a message can be pushed live and fetched again later.
type Event struct {
	Type Type `json:"type"`

	MatchID     uint64 `json:"match_id,omitempty"`
	OtherUserID uint64 `json:"other_user_id,omitempty"`

	MessageID uint64 `json:"message_id,omitempty"`
	SenderID  uint64 `json:"sender_id,omitempty"`
	Sequence  uint64 `json:"sequence,omitempty"`
	Content   string `json:"content,omitempty"`

	Code   string `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func MatchFormed(matchID, otherUserID uint64) Event {
	return Event{Type: TypeMatchFormed, MatchID: matchID, OtherUserID: otherUserID}
}

func MatchDissolved(matchID, otherUserID uint64) Event {
	return Event{Type: TypeMatchDissolved, MatchID: matchID, OtherUserID: otherUserID}
}

func MessageReceived(messageID, senderID, seq uint64, content string) Event {
	return Event{
		Type:      TypeMessageReceived,
		MessageID: messageID,
		SenderID:  senderID,
		Sequence:  seq,
		Content:   content,
	}
}

func NewLike(likerID uint64) Event {
	return Event{Type: TypeNewLike, OtherUserID: likerID}
}

func SessionSuperseded() Event {
	return Event{Type: TypeSessionSuperseded}
}

func Ack(messageID, seq uint64) Event {
	return Event{Type: TypeAck, MessageID: messageID, Sequence: seq}
}

func Error(code, detail string) Event {
	return Event{Type: TypeError, Code: code, Detail: detail}
}
