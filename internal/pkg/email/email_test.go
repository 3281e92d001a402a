package email

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestBuildMessageHeaders(t *testing.T) {
	msg := buildMessage("A-MAP <noreply@amap.army.mil>", "soldier@army.mil", SubjectPrefix+"Transfer Request", "<p>hi</p>")

	if !strings.HasPrefix(msg, "Content-Type: text/html; charset=UTF-8\r\n") {
		t.Fatalf("headers should be sorted, got %q", msg[:40])
	}
	if !strings.Contains(msg, "Subject: [A-MAP] - Transfer Request\r\n") {
		t.Fatalf("missing subject header: %q", msg)
	}
	if !strings.HasSuffix(msg, "\r\n\r\n<p>hi</p>") {
		t.Fatalf("body should follow a blank line")
	}
}

func TestNotificationBodyEscapes(t *testing.T) {
	body := NotificationBody("SGT <Smith>", "Your Permission Request for WDDRA0 has been approved", "https://amap.example")
	if strings.Contains(body, "<Smith>") {
		t.Fatalf("name should be escaped")
	}
	if !strings.Contains(body, `href="https://amap.example"`) {
		t.Fatalf("missing link: %s", body)
	}
}

func TestSendWithoutCredentialsIsLogged(t *testing.T) {
	svc := NewEmailService(SMTPConfig{}, zerolog.Nop())
	if err := svc.SendNotificationEmail("soldier@army.mil", "SGT Smith", "Announcement", "text"); err != nil {
		t.Fatalf("expected dev mode to succeed, got %v", err)
	}
	if err := svc.SendNotificationEmail("", "SGT Smith", "Announcement", "text"); err == nil {
		t.Fatalf("expected an error for a missing address")
	}
}
