package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestParseTypeFromString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Type
		wantErr bool
	}{
		{name: "valid uppercase", input: "NEW_MESSAGE", want: TypeNewMessage},
		{name: "valid lowercase with spaces", input: " system ", want: TypeSystem},
		{name: "invalid", input: "broadcast", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseTypeFromString(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("ParseTypeFromString() error = %v, want ErrValidation", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseTypeFromString() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseTypeFromString() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestIsRetryableFetchError(t *testing.T) {
	t.Parallel()

	if IsRetryableFetchError(nil) {
		t.Fatal("nil error should not be retryable")
	}
	if IsRetryableFetchError(context.Canceled) {
		t.Fatal("cancelled context should not be retryable")
	}
	if IsRetryableFetchError(fmt.Errorf("session check: %w", ErrUnauthorized)) {
		t.Fatal("wrapped ErrUnauthorized should not be retryable")
	}
	if !IsRetryableFetchError(errors.New("connection refused")) {
		t.Fatal("generic errors should be retryable")
	}
}

func TestConversationCounterpart(t *testing.T) {
	t.Parallel()

	conv := Conversation{
		ID:         "c1",
		AgentID:    "agent-1",
		AgentName:  "Amina",
		ClientID:   "client-1",
		ClientName: "Karim",
	}

	if got := conv.Counterpart("agent-1"); got != "Karim" {
		t.Fatalf("Counterpart(agent) = %s, want Karim", got)
	}
	if got := conv.Counterpart("client-1"); got != "Amina" {
		t.Fatalf("Counterpart(client) = %s, want Amina", got)
	}
}
