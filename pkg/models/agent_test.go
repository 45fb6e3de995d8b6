package models

import (
	"testing"
	"time"
)

func TestAgent_TemperatureValue(t *testing.T) {
	tests := []struct {
		stored string
		want   float64
	}{
		{"0.2", 0.2},
		{"1", 1},
		{"", DefaultTemperature},
		{"warm", DefaultTemperature},
	}

	for _, tt := range tests {
		t.Run(tt.stored, func(t *testing.T) {
			a := Agent{Temperature: tt.stored}
			if got := a.TemperatureValue(); got != tt.want {
				t.Errorf("TemperatureValue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAgent_MaxTokensValue(t *testing.T) {
	tests := []struct {
		stored string
		want   int64
	}{
		{"4000", 4000},
		{"", DefaultMaxTokens},
		{"-5", DefaultMaxTokens},
		{"lots", DefaultMaxTokens},
	}

	for _, tt := range tests {
		t.Run(tt.stored, func(t *testing.T) {
			a := Agent{MaxTokens: tt.stored}
			if got := a.MaxTokensValue(); got != tt.want {
				t.Errorf("MaxTokensValue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatTemperature(t *testing.T) {
	if got := FormatTemperature(0.3); got != "0.3" {
		t.Errorf("FormatTemperature(0.3) = %q, want %q", got, "0.3")
	}
	if got := FormatMaxTokens(3000); got != "3000" {
		t.Errorf("FormatMaxTokens(3000) = %q, want %q", got, "3000")
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{1230 * time.Millisecond, "1.23s"},
		{0, "0.00s"},
		{90 * time.Second, "90.00s"},
	}
	for _, tt := range tests {
		if got := FormatElapsed(tt.d); got != tt.want {
			t.Errorf("FormatElapsed(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestExecutionStatus_CanTransitionTo(t *testing.T) {
	if !ExecutionStatusPending.CanTransitionTo(ExecutionStatusRunning) {
		t.Error("pending -> running should be allowed")
	}
	if !ExecutionStatusRunning.CanTransitionTo(ExecutionStatusCompleted) {
		t.Error("running -> completed should be allowed")
	}
	if ExecutionStatusCompleted.CanTransitionTo(ExecutionStatusRunning) {
		t.Error("completed -> running should be rejected")
	}
	if ExecutionStatusPending.CanTransitionTo(ExecutionStatusCompleted) {
		t.Error("pending -> completed should be rejected")
	}
	if ExecutionStatus("queued").Valid() {
		t.Error("unknown status should be invalid")
	}
}
