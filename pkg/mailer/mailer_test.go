package mailer

import (
	"context"
	"net/smtp"
	"strings"
	"testing"

	"github.com/olegbarsky/tradeport-backend/pkg/config"
)

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(config.SMTPConfig{Port: 25, From: "noreply@tradeport.ru"}, nil); err == nil {
		t.Fatal("expected error for missing host")
	}
	if _, err := New(config.SMTPConfig{Host: "mail", From: "noreply@tradeport.ru"}, nil); err == nil {
		t.Fatal("expected error for missing port")
	}
	if _, err := New(config.SMTPConfig{Host: "mail", Port: 25}, nil); err == nil {
		t.Fatal("expected error for missing from address")
	}
}

func TestSendBuildsHeaders(t *testing.T) {
	m, err := New(config.SMTPConfig{Host: "mail", Port: 25, From: "noreply@tradeport.ru"}, nil)
	if err != nil {
		t.Fatalf("new mailer: %v", err)
	}

	var gotAddr, gotFrom string
	var gotTo []string
	var gotRaw []byte
	m.send = func(addr string, _ smtp.Auth, from string, to []string, raw []byte) error {
		gotAddr, gotFrom, gotTo, gotRaw = addr, from, to, raw
		return nil
	}

	msg := Message{
		To:      "buyer@example.com",
		Subject: "Order\r\nconfirmed",
		Body:    "Thanks for your order.",
	}
	if err := m.Send(context.Background(), msg); err != nil {
		t.Fatalf("send: %v", err)
	}

	if gotAddr != "mail:25" {
		t.Fatalf("unexpected addr %q", gotAddr)
	}
	if gotFrom != "noreply@tradeport.ru" {
		t.Fatalf("unexpected from %q", gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "buyer@example.com" {
		t.Fatalf("unexpected recipients %v", gotTo)
	}
	raw := string(gotRaw)
	if !strings.Contains(raw, "Subject: Order  confirmed\r\n") {
		t.Fatalf("subject not sanitized: %q", raw)
	}
	if !strings.HasSuffix(raw, "Thanks for your order.") {
		t.Fatalf("body missing: %q", raw)
	}
}

func TestSendRequiresRecipient(t *testing.T) {
	m, err := New(config.SMTPConfig{Host: "mail", Port: 25, From: "noreply@tradeport.ru"}, nil)
	if err != nil {
		t.Fatalf("new mailer: %v", err)
	}
	if err := m.Send(context.Background(), Message{Subject: "x"}); err == nil {
		t.Fatal("expected error for empty recipient")
	}
}
