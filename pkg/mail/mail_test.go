package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPSenderRetriesThenSucceeds(t *testing.T) {
	s := NewSMTPSender(Config{Host: "smtp.local", Port: "25", From: "noreply@local", Attempts: 2})
	calls := 0
	var got []byte
	s.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		calls++
		assert.Equal(t, "smtp.local:25", addr)
		assert.Equal(t, []string{"a@b.c"}, to)
		if calls == 1 {
			return errors.New("temporary")
		}
		got = msg
		return nil
	}

	err := s.Send(context.Background(), VerifyOTP("a@b.c", "123456"))
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Contains(t, string(got), "Subject: Account Verification OTP\r\n")
	assert.Contains(t, string(got), "123456")
}

func TestSMTPSenderGivesUp(t *testing.T) {
	s := NewSMTPSender(Config{Host: "smtp.local", Port: "25", Attempts: 1})
	s.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("down") }

	err := s.Send(context.Background(), Welcome("a@b.c", "Ann"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "a@b.c"))
}

func TestSMTPSenderRequiresHost(t *testing.T) {
	s := NewSMTPSender(Config{})
	require.Error(t, s.Send(context.Background(), ResetOTP("a@b.c", "1")))
}

func TestWelcomeEscapesName(t *testing.T) {
	m := Welcome("a@b.c", `<script>alert("x")</script>`)
	assert.NotContains(t, m.HTML, "<script>")
	assert.Contains(t, m.HTML, "&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt;")
}
