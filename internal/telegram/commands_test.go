package telegram

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rewired-gh/smartbin/internal/models"
)

type fakeController struct {
	bin   models.BinState
	calls []string
}

func (f *fakeController) Snapshot() models.BinState { return f.bin }

func (f *fakeController) EmptyBin(ctx context.Context) models.BinState {
	f.calls = append(f.calls, "empty")
	f.bin.Categories = models.CategoryCounts{}
	f.bin.FillLevel = 0
	return f.bin
}

func (f *fakeController) Reset() models.BinState {
	f.calls = append(f.calls, "reset")
	return f.bin
}

func (f *fakeController) SetTargetCategory(c models.Category) (models.BinState, error) {
	f.calls = append(f.calls, "target:"+string(c))
	f.bin.TargetCategory = c
	return f.bin, nil
}

func (f *fakeController) ClearEvents() models.BinState {
	f.calls = append(f.calls, "clear")
	f.bin.Events = nil
	return f.bin
}

func (f *fakeController) RemoveEvent(i int) (models.BinState, error) {
	f.calls = append(f.calls, fmt.Sprintf("remove:%d", i))
	if i < 0 || i >= len(f.bin.Events) {
		return f.bin, fmt.Errorf("invalid command: event index %d out of range", i)
	}
	f.bin.Events = append(f.bin.Events[:i], f.bin.Events[i+1:]...)
	return f.bin, nil
}

func TestDispatch(t *testing.T) {
	tests := []struct {
		name      string
		command   string
		args      string
		wantCall  string
		wantReply string
	}{
		{"status", "status", "", "", "Contamination: 56%"},
		{"empty", "empty", "", "empty", "emptied"},
		{"reset", "reset", "", "reset", "reset to defaults"},
		{"target", "target", " Organic ", "target:organic", "Target category is now organic"},
		{"target without argument", "target", "", "", "Usage: /target"},
		{"target unknown", "target", "plastic", "", "Usage: /target"},
		{"clear", "clear", "", "clear", "Event log cleared"},
		{"remove", "remove", "0", "remove:0", "Event 0 removed, 0 left"},
		{"remove out of range", "remove", "7", "remove:7", "out of range"},
		{"remove not a number", "remove", "newest", "", "Usage: /remove"},
		{"unknown", "dance", "", "", "Available commands"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin := testBin()
			bin.Events = []models.Event{{ID: "e1", Kind: models.EventEmpty, Message: "Trash can emptied"}}
			ctrl := &fakeController{bin: bin}

			reply := dispatch(context.Background(), ctrl, tt.command, tt.args)

			if tt.wantCall == "" && len(ctrl.calls) != 0 {
				t.Errorf("Expected no controller call, got %v", ctrl.calls)
			}
			if tt.wantCall != "" && (len(ctrl.calls) != 1 || ctrl.calls[0] != tt.wantCall) {
				t.Errorf("Expected call %q, got %v", tt.wantCall, ctrl.calls)
			}
			// Replies are MarkdownV2; compare against the unescaped text.
			plain := strings.ReplaceAll(reply, "\\", "")
			if !strings.Contains(plain, tt.wantReply) {
				t.Errorf("Expected reply to contain %q, got %q", tt.wantReply, reply)
			}
		})
	}
}

func TestFormatStatus(t *testing.T) {
	got := formatStatus(testBin())

	for _, want := range []string{
		"Main Entrance \\(TC001\\)",
		"Fill: *82%* \\(warning\\)",
		"Weight: 12\\.3 kg",
		"Items: 8 recyclable, 3 organic, 7 general",
		"Contamination: 56% \\(10 of 18\\)",
		"Last emptied: 2 hours ago",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected status to contain %q, got:\n%s", want, got)
		}
	}
}
