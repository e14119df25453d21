package smtp

import (
	"strings"
	"testing"

	"github.com/mikey/llm-mail-agent/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildMessage(t *testing.T) {
	original := &core.IncomingMessage{
		ID: "msg-1",
		Headers: map[string][]string{
			"message-id": {"<orig@mail.acme.com>"},
			"references": {"<r1@mail.acme.com>"},
		},
	}
	draft := &core.DraftReply{
		To:      "Carol Chen <carol@acme.com>",
		Subject: "Re: Quarterly sync",
		Body:    "Happy to connect.\n\nBest,\nAndrew",
	}

	msg := string(buildMessage("andrew@evqlv.ai", "<gen-1@evqlv.ai>", original, draft))

	headers, body, found := strings.Cut(msg, "\r\n\r\n")
	require.True(t, found, "message has no blank line between headers and body")

	assert.Contains(t, headers, "From: andrew@evqlv.ai\r\n")
	assert.Contains(t, headers, "To: Carol Chen <carol@acme.com>\r\n")
	assert.Contains(t, headers, "Subject: Re: Quarterly sync\r\n")
	assert.Contains(t, headers, "Message-ID: <gen-1@evqlv.ai>\r\n")
	assert.Contains(t, headers, "Date: ")
	assert.Contains(t, headers, "In-Reply-To: <orig@mail.acme.com>\r\n")
	assert.Contains(t, headers, "References: <r1@mail.acme.com> <orig@mail.acme.com>\r\n")
	assert.Contains(t, headers, "Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	assert.Contains(t, headers, "MIME-Version: 1.0")
	assert.Equal(t, "Happy to connect.\n\nBest,\nAndrew", body)
}

func TestBuildMessageWithoutOriginal(t *testing.T) {
	draft := &core.DraftReply{To: "carol@acme.com", Subject: "Hello", Body: "hi"}

	msg := string(buildMessage("andrew@evqlv.ai", "<gen-1@evqlv.ai>", nil, draft))
	assert.NotContains(t, msg, "In-Reply-To:")
	assert.NotContains(t, msg, "References:")
}

func TestBuildMessageEncodesSubject(t *testing.T) {
	draft := &core.DraftReply{To: "carol@acme.com", Subject: "Re: Café láser", Body: "hi"}

	msg := string(buildMessage("andrew@evqlv.ai", "<gen-1@evqlv.ai>", nil, draft))
	assert.NotContains(t, msg, "Café láser")
	assert.Contains(t, msg, "Subject: =?UTF-8?")
}

func TestSenderDomain(t *testing.T) {
	tests := []struct {
		name string
		from string
		want string
	}{
		{
			name: "plain address",
			from: "andrew@evqlv.ai",
			want: "evqlv.ai",
		},
		{
			name: "no at sign",
			from: "andrew",
			want: "localhost",
		},
		{
			name: "trailing at sign",
			from: "andrew@",
			want: "localhost",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSender("smtp.example.com", 587, "", "", tt.from, zap.NewNop())
			assert.Equal(t, tt.want, s.domain())
		})
	}
}
