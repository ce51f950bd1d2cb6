package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameValidate(t *testing.T) {
	cases := []struct {
		name    string
		frame   Frame
		wantErr bool
	}{
		{"view ok", Frame{Type: FrameView, ViewedID: 2}, false},
		{"view missing target", Frame{Type: FrameView}, true},
		{"like ok", Frame{Type: FrameLike, LikedID: 2}, false},
		{"like missing target", Frame{Type: FrameLike}, true},
		{"unlike ok", Frame{Type: FrameUnlike, LikedID: 2}, false},
		{"message ok", Frame{Type: FrameMessage, ReceiverID: 2, Content: "hi"}, false},
		{"message missing receiver", Frame{Type: FrameMessage, Content: "hi"}, true},
		{"unknown type", Frame{Type: "poke"}, true},
		{"empty type", Frame{}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.frame.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
