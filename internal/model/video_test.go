package model

import "testing"

func TestVideoStatus_Terminal(t *testing.T) {
	tests := []struct {
		status VideoStatus
		want   bool
	}{
		{StatusNew, false},
		{StatusUpcoming, false},
		{StatusLive, false},
		{StatusUploaded, true},
		{StatusEnded, true},
		{StatusMissing, true},
	}

	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestVideo_WatchURL(t *testing.T) {
	v := &Video{ID: "dQw4w9WgXcQ"}
	want := "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	if got := v.WatchURL(); got != want {
		t.Errorf("WatchURL() = %v, want %v", got, want)
	}
}
