package bypass

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestShouldBypass(t *testing.T) {
	rules := []string{
		"notifications@github.com",
		"  NoReply@Billing.Example.com ",
		"@mailer.example.com",
		"",
	}
	c := NewChecker(rules, zap.NewNop())

	tests := []struct {
		name    string
		address string
		want    bool
	}{
		{
			name:    "exact address match",
			address: "notifications@github.com",
			want:    true,
		},
		{
			name:    "address match is case insensitive",
			address: "NOREPLY@billing.example.com",
			want:    true,
		},
		{
			name:    "domain rule matches any local part",
			address: "digest-42@mailer.example.com",
			want:    true,
		},
		{
			name:    "unlisted address",
			address: "carol@acme.com",
			want:    false,
		},
		{
			name:    "domain rule does not match subdomains",
			address: "x@sub.mailer.example.com",
			want:    false,
		},
		{
			name:    "address without domain part",
			address: "not-an-address",
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.ShouldBypass(tt.address))
		})
	}
}

func TestShouldBypassWithNoRules(t *testing.T) {
	c := NewChecker(nil, zap.NewNop())
	assert.False(t, c.ShouldBypass("anyone@example.com"))
}

func TestNewCheckerWithoutLogger(t *testing.T) {
	c := NewChecker([]string{"a@b.com"}, nil)
	assert.True(t, c.ShouldBypass("a@b.com"))
	assert.False(t, c.ShouldBypass("c@d.com"))
}
