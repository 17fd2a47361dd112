package mail

import (
	"context"
	"fmt"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/eta/backend/internal/domain/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSMTP is a minimal SMTP server speaking just enough of the protocol
// for net/smtp's client
type fakeSMTP struct {
	ln       net.Listener
	mailCode int
	rcptCode int
	received chan string
}

func newFakeSMTP(t *testing.T) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &fakeSMTP{ln: ln, received: make(chan string, 1)}
	t.Cleanup(func() { _ = ln.Close() })
	go s.serve()
	return s
}

func (s *fakeSMTP) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *fakeSMTP) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeSMTP) handle(conn net.Conn) {
	tp := textproto.NewConn(conn)
	defer tp.Close()

	_ = tp.PrintfLine("220 localhost ESMTP fake")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
		switch verb {
		case "EHLO", "HELO":
			_ = tp.PrintfLine("250 localhost")
		case "MAIL":
			s.reply(tp, s.mailCode)
		case "RCPT":
			s.reply(tp, s.rcptCode)
		case "DATA":
			_ = tp.PrintfLine("354 go ahead")
			data, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			s.received <- string(data)
			_ = tp.PrintfLine("250 queued")
		case "QUIT":
			_ = tp.PrintfLine("221 bye")
			return
		default:
			_ = tp.PrintfLine("250 OK")
		}
	}
}

func (s *fakeSMTP) reply(tp *textproto.Conn, code int) {
	if code == 0 {
		_ = tp.PrintfLine("250 OK")
		return
	}
	_ = tp.PrintfLine("%d rejected", code)
}

func newTestMailer(port int) *SMTPMailer {
	m := NewSMTPMailer(SMTPConfig{
		Host:    "127.0.0.1",
		Port:    port,
		From:    "orders@acme.test",
		Timeout: 2 * time.Second,
	})
	m.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return m
}

func TestSMTPMailer_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers plain text", func(t *testing.T) {
		srv := newFakeSMTP(t)
		id, err := newTestMailer(srv.port()).Send(ctx, notification.Message{
			To:      []string{"jane@example.com"},
			Subject: "Order 100023 confirmed",
			Body:    "Thanks!\nSee you soon.",
		})
		require.NoError(t, err)
		assert.Contains(t, id, "@127.0.0.1>")

		data := <-srv.received
		assert.Contains(t, data, "To: jane@example.com")
		assert.Contains(t, data, "Subject: Order 100023 confirmed")
		assert.Contains(t, data, "Message-ID: "+id)
		assert.Contains(t, data, "Thanks!")
	})

	t.Run("delivers multipart html", func(t *testing.T) {
		srv := newFakeSMTP(t)
		_, err := newTestMailer(srv.port()).Send(ctx, notification.Message{
			To:      []string{"jane@example.com"},
			Subject: "Hi",
			Body:    "plain",
			HTML:    "<p>html</p>",
		})
		require.NoError(t, err)

		data := <-srv.received
		assert.Contains(t, data, "multipart/alternative")
		assert.Contains(t, data, "<p>html</p>")
	})

	t.Run("4xx reply is transient", func(t *testing.T) {
		srv := newFakeSMTP(t)
		srv.mailCode = 421
		_, err := newTestMailer(srv.port()).Send(ctx, notification.Message{To: []string{"a@b.c"}})
		require.Error(t, err)
		assert.True(t, notification.IsTransient(err))
	})

	t.Run("5xx reply is permanent", func(t *testing.T) {
		srv := newFakeSMTP(t)
		srv.rcptCode = 550
		_, err := newTestMailer(srv.port()).Send(ctx, notification.Message{To: []string{"a@b.c"}})
		require.Error(t, err)
		assert.False(t, notification.IsTransient(err))
	})

	t.Run("connection refused is transient", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		port := ln.Addr().(*net.TCPAddr).Port
		require.NoError(t, ln.Close())

		_, err = newTestMailer(port).Send(ctx, notification.Message{To: []string{"a@b.c"}})
		require.Error(t, err)
		assert.True(t, notification.IsTransient(err))
	})

	t.Run("no recipients", func(t *testing.T) {
		_, err := newTestMailer(1).Send(ctx, notification.Message{})
		require.Error(t, err)
		assert.False(t, notification.IsTransient(err))
	})
}

func TestClassify(t *testing.T) {
	assert.Nil(t, classify(nil))
	assert.True(t, notification.IsTransient(classify(&textproto.Error{Code: 451, Msg: "later"})))
	assert.False(t, notification.IsTransient(classify(&textproto.Error{Code: 554, Msg: "no"})))
	assert.True(t, notification.IsTransient(classify(fmt.Errorf("wrapped: %w", context.DeadlineExceeded))))
	assert.False(t, notification.IsTransient(classify(fmt.Errorf("template broke"))))
}
