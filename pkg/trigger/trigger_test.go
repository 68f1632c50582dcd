package trigger

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type postCall struct {
	url         string
	contentType string
	body        []byte
}

// recordingClient captures Post calls on a channel
type recordingClient struct {
	calls  chan postCall
	status int
	err    error
}

func newRecordingClient() *recordingClient {
	return &recordingClient{calls: make(chan postCall, 4), status: http.StatusOK}
}

func (r *recordingClient) Post(url, contentType string, body io.Reader) (*http.Response, error) {
	payload, _ := io.ReadAll(body)
	r.calls <- postCall{url: url, contentType: contentType, body: payload}
	if r.err != nil {
		return nil, r.err
	}
	return &http.Response{StatusCode: r.status, Body: io.NopCloser(strings.NewReader(""))}, nil
}

func (r *recordingClient) Get(string) (*http.Response, error) {
	return nil, errors.New("unexpected Get")
}

func (r *recordingClient) Do(*http.Request) (*http.Response, error) {
	return nil, errors.New("unexpected Do")
}

func (r *recordingClient) next(t *testing.T) postCall {
	t.Helper()
	select {
	case call := <-r.calls:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("trigger was not called")
		return postCall{}
	}
}

func TestNotifier_PostsEvent(t *testing.T) {
	client := newRecordingClient()
	notifier := NewNotifier(client, map[string]string{
		SessionBooked: "https://hooks.example.com/booked",
	})

	notifier.NotifyAsync(Event{Type: SessionBooked, SessionID: "s-1", Status: "pending"})

	call := client.next(t)
	assert.Equal(t, "https://hooks.example.com/booked", call.url)
	assert.Equal(t, "application/json", call.contentType)

	var event Event
	require.NoError(t, json.Unmarshal(call.body, &event))
	assert.Equal(t, SessionBooked, event.Type)
	assert.Equal(t, "s-1", event.SessionID)
	assert.Equal(t, "pending", event.Status)
	assert.False(t, event.OccurredAt.IsZero())
}

func TestNotifier_SkipsUnconfiguredEvents(t *testing.T) {
	client := newRecordingClient()
	notifier := NewNotifier(client, map[string]string{
		SessionBooked:        "https://hooks.example.com/booked",
		SessionStatusChanged: "",
	})

	notifier.NotifyAsync(Event{Type: SessionStatusChanged, SessionID: "s-1"})

	select {
	case call := <-client.calls:
		t.Fatalf("unexpected call to %s", call.url)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNotifier_FailuresDoNotPanic(t *testing.T) {
	client := newRecordingClient()
	client.err = errors.New("connection refused")
	notifier := NewNotifier(client, map[string]string{SessionBooked: "https://hooks.example.com/booked"})

	notifier.NotifyAsync(Event{Type: SessionBooked, SessionID: "s-1"})
	client.next(t)

	client.err = nil
	client.status = http.StatusBadGateway
	notifier.NotifyAsync(Event{Type: SessionBooked, SessionID: "s-2"})
	client.next(t)
}

func TestNotifier_NilIsNoop(t *testing.T) {
	var notifier *Notifier
	assert.NotPanics(t, func() {
		notifier.NotifyAsync(Event{Type: SessionBooked, SessionID: "s-1"})
	})
}
