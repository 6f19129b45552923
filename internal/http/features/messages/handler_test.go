package messages

import (
	"testing"

	"github.com/google/uuid"

	"github.com/rishta-app/rishta/internal/domain"
)

func TestCanReply(t *testing.T) {
	recipient := uuid.New()
	sender := uuid.New()
	outsider := uuid.New()

	withSender := &domain.Message{RecipientID: recipient, SenderID: &sender}
	anonymous := &domain.Message{RecipientID: recipient}

	tests := []struct {
		name     string
		msg      *domain.Message
		identity uuid.UUID
		want     bool
	}{
		{name: "recipient may reply", msg: withSender, identity: recipient, want: true},
		{name: "original sender may reply", msg: withSender, identity: sender, want: true},
		{name: "outsider may not reply", msg: withSender, identity: outsider, want: false},
		{name: "recipient of anonymous message may reply", msg: anonymous, identity: recipient, want: true},
		{name: "outsider on anonymous message may not", msg: anonymous, identity: outsider, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := canReply(tt.msg, tt.identity); got != tt.want {
				t.Errorf("canReply() = %v, want %v", got, tt.want)
			}
		})
	}
}
