package gateway

import "fmt"

// FrameType enumerates the inbound client events.
type FrameType string

const (
	FrameView    FrameType = "view"
	FrameLike    FrameType = "like"
	FrameUnlike  FrameType = "unlike"
	FrameMessage FrameType = "message"
)

// Frame is one inbound wire frame. JSON over the websocket; unknown or
// incomplete frames are protocol errors.
type Frame struct {
	Type       FrameType `json:"type"`
	ViewedID   uint64    `json:"viewed_id,omitempty"`
	LikedID    uint64    `json:"liked_id,omitempty"`
	ReceiverID uint64    `json:"receiver_id,omitempty"`
	Content    string    `json:"content,omitempty"`
}

// Validate checks the frame carries the fields its type requires.
func (f *Frame) Validate() error {
	switch f.Type {
	case FrameView:
		if f.ViewedID == 0 {
			return fmt.Errorf("view frame missing viewed_id")
		}
	case FrameLike, FrameUnlike:
		if f.LikedID == 0 {
			return fmt.Errorf("%s frame missing liked_id", f.Type)
		}
	case FrameMessage:
		if f.ReceiverID == 0 {
			return fmt.Errorf("message frame missing receiver_id")
		}
	default:
		return fmt.Errorf("unknown frame type %q", f.Type)
	}
	return nil
}
