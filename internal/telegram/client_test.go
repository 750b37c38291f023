package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/smartbin/internal/models"
)

type fakeSender struct {
	mu       sync.Mutex
	failures int // fail this many sends before succeeding
	sent     []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return tgbotapi.Message{}, errors.New("too many requests")
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]tgbotapi.MessageConfig, len(f.sent))
	copy(out, f.sent)
	return out
}

func newTestClient(t *testing.T, sender Sender) *Client {
	t.Helper()
	c, err := newClient(sender, "12345", 3, time.Millisecond)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c
}

func testBin() models.BinState {
	return models.BinState{
		ID:             "TC001",
		Name:           "Main Entrance",
		Location:       "Building A",
		TargetCategory: models.CategoryRecyclable,
		FillLevel:      82,
		Weight:         12.3,
		Status:         models.StatusWarning,
		LastEmptiedAt:  time.Now().Add(-2 * time.Hour),
		Categories:     models.CategoryCounts{Recyclable: 8, Organic: 3, General: 7},
	}
}

func TestNewClientRejectsBadChatID(t *testing.T) {
	if _, err := newClient(&fakeSender{}, "not-a-number", 3, time.Second); err == nil {
		t.Error("Expected invalid chat ID to fail")
	}
}

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"plain", "plain"},
		{"82.5%", "82\\.5%"},
		{"Main Entrance (TC001)", "Main Entrance \\(TC001\\)"},
		{"a_b*c", "a\\_b\\*c"},
		{"back\\slash", "back\\\\slash"},
	}

	for _, tt := range tests {
		if got := escapeMarkdownV2(tt.in); got != tt.expected {
			t.Errorf("escapeMarkdownV2(%q) = %q, expected %q", tt.in, got, tt.expected)
		}
	}
}

func TestPublishDeliversOnlyAlerts(t *testing.T) {
	sender := &fakeSender{}
	c := newTestClient(t, sender)

	now := time.Now()
	bin := testBin()
	c.Publish(bin, []models.Event{
		models.NewDetectionEvent(models.DetectionLogEntry{Timestamp: "t", Item: "can"}, models.CategoryRecyclable, models.CategoryRecyclable, now),
		models.NewAlertEvent(82, now),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for len(sender.messages()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	msgs := sender.messages()
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(msgs))
	}
	if msgs[0].ChatID != 12345 {
		t.Errorf("Expected chat 12345, got %d", msgs[0].ChatID)
	}
	if msgs[0].ParseMode != tgbotapi.ModeMarkdownV2 {
		t.Errorf("Expected MarkdownV2, got %q", msgs[0].ParseMode)
	}
	if !strings.Contains(msgs[0].Text, "Fill level reached 82%") {
		t.Errorf("Expected alert text, got %q", msgs[0].Text)
	}
	if !strings.Contains(msgs[0].Text, "Main Entrance \\(TC001\\)") {
		t.Errorf("Expected escaped bin label, got %q", msgs[0].Text)
	}
}

func TestEnqueueDoesNotBlockWhenFull(t *testing.T) {
	c := newTestClient(t, &fakeSender{})

	done := make(chan struct{})
	go func() {
		for i := 0; i < queueSize*2; i++ {
			c.PollingResumed(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked on a full queue")
	}
	if len(c.queue) != queueSize {
		t.Errorf("Expected full queue of %d, got %d", queueSize, len(c.queue))
	}
}

func TestSendRetries(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		wantErr  bool
	}{
		{"first attempt", 0, false},
		{"succeeds on retry", 2, false},
		{"gives up", 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{failures: tt.failures}
			c := newTestClient(t, sender)

			err := c.send(context.Background(), c.chatID, "hello")
			if (err != nil) != tt.wantErr {
				t.Errorf("send() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHealthNotices(t *testing.T) {
	paused := formatPaused(fmt.Errorf("source unavailable: backend reports %q", "degraded"), time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	if !strings.Contains(paused, "Polling paused") || !strings.Contains(paused, "2026\\-01\\-02 03:04:05") {
		t.Errorf("Unexpected pause notice: %q", paused)
	}

	if got := formatResumed(1); !strings.HasSuffix(got, "1 failed health check") {
		t.Errorf("Unexpected resume notice: %q", got)
	}
	if got := formatResumed(3); !strings.HasSuffix(got, "3 failed health checks") {
		t.Errorf("Unexpected resume notice: %q", got)
	}
}
