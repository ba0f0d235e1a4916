package stream_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/morahq/mora/internal/events"
	"github.com/morahq/mora/internal/stream"
)

type wireEvent struct {
	name string
	data string
}

// sseServer serves a fixed script of wire events for any session, then
// either closes the response or holds it open until the client goes away.
func sseServer(t *testing.T, script []wireEvent, holdOpen bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fl, ok := w.(http.Flusher)
		require.True(t, ok)

		fmt.Fprint(w, ": heartbeat\n\n")
		for _, e := range script {
			if e.name != "" {
				fmt.Fprintf(w, "event: %s\n", e.name)
			}
			if e.data != "" {
				fmt.Fprintf(w, "data: %s\n", e.data)
			}
			fmt.Fprint(w, "\n")
			fl.Flush()
		}
		if holdOpen {
			<-r.Context().Done()
		}
	}))
}

func TestStreamDeliversTypedMessagesInOrder(t *testing.T) {
	srv := sseServer(t, []wireEvent{
		{"thought", `{"content":"正在提取字幕..."}`},
		{"code_segment", `{"segmentIndex":0,"startTime":0,"endTime":10,"code":"x = 1\n"}`},
		{"done", `{}`},
	}, false)
	defer srv.Close()

	c := stream.New(srv.URL)
	require.NoError(t, c.Open(context.Background(), "sess-1"))

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not terminate")
	}

	msgs := c.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, events.TypeThought, msgs[0].Type)
	assert.Equal(t, "正在提取字幕...", msgs[0].Content)
	assert.Equal(t, events.TypeCodeSegment, msgs[1].Type)
	require.NotNil(t, msgs[1].Segment)
	assert.Equal(t, events.TypeDone, msgs[2].Type)

	assert.Equal(t, stream.StateDisconnected, c.State())
	assert.Empty(t, c.Err())
}

func TestStreamProtocolErrorCapturesMessage(t *testing.T) {
	srv := sseServer(t, []wireEvent{
		{"thought", `{"content":"analyzing video"}`},
		{"error", `{"message":"subtitle service unavailable"}`},
	}, false)
	defer srv.Close()

	c := stream.New(srv.URL)
	require.NoError(t, c.Open(context.Background(), "sess-1"))
	<-c.Done()

	assert.Equal(t, stream.StateDisconnected, c.State())
	assert.Equal(t, "subtitle service unavailable", c.Err())
	// Prior messages are preserved, not cleared.
	require.Len(t, c.Messages(), 2)
	assert.Equal(t, events.TypeError, c.Messages()[1].Type)
}

func TestStreamSkipsUndecodableEvents(t *testing.T) {
	srv := sseServer(t, []wireEvent{
		{"thought", `{"content":"step"}`},
		{"hologram", `{}`},
		{"thought", `{broken json`},
		{"done", ""},
	}, false)
	defer srv.Close()

	c := stream.New(srv.URL)
	require.NoError(t, c.Open(context.Background(), "sess-1"))
	<-c.Done()

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, events.TypeThought, msgs[0].Type)
	assert.Equal(t, events.TypeDone, msgs[1].Type)
}

func TestStreamCloseIsIdempotent(t *testing.T) {
	srv := sseServer(t, []wireEvent{
		{"thought", `{"content":"step"}`},
	}, true)
	defer srv.Close()

	c := stream.New(srv.URL)
	require.NoError(t, c.Open(context.Background(), "sess-1"))

	require.Eventually(t, func() bool { return c.Len() == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, stream.StateDisconnected, c.State())
	assert.Empty(t, c.Err())

	select {
	case <-c.Done():
	default:
		t.Fatal("Done must be closed after Close")
	}
}

func TestStreamCloseAfterDoneEvent(t *testing.T) {
	srv := sseServer(t, []wireEvent{{"done", ""}}, false)
	defer srv.Close()

	c := stream.New(srv.URL)
	require.NoError(t, c.Open(context.Background(), "sess-1"))
	<-c.Done()

	// Unmount racing the done event: still a no-op.
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, stream.StateDisconnected, c.State())
}

func TestStreamEmptySessionID(t *testing.T) {
	c := stream.New("http://localhost:0")
	require.NoError(t, c.Open(context.Background(), ""))

	assert.Equal(t, stream.StateDisconnected, c.State())
	assert.Empty(t, c.Err())
	select {
	case <-c.Done():
	default:
		t.Fatal("Done must be closed when no connection is attempted")
	}
}

func TestStreamRejectedConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such session", http.StatusNotFound)
	}))
	defer srv.Close()

	c := stream.New(srv.URL)
	err := c.Open(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, stream.StateDisconnected, c.State())
	assert.NotEmpty(t, c.Err())
}

func TestStreamServerDropWithoutDone(t *testing.T) {
	srv := sseServer(t, []wireEvent{
		{"thought", `{"content":"step"}`},
	}, false)
	defer srv.Close()

	c := stream.New(srv.URL)
	require.NoError(t, c.Open(context.Background(), "sess-1"))
	<-c.Done()

	assert.Equal(t, stream.StateDisconnected, c.State())
	assert.NotEmpty(t, c.Err())
	require.Len(t, c.Messages(), 1)
}

func TestStreamSinceHighWaterMark(t *testing.T) {
	srv := sseServer(t, []wireEvent{
		{"thought", `{"content":"a"}`},
		{"thought", `{"content":"b"}`},
		{"done", ""},
	}, false)
	defer srv.Close()

	c := stream.New(srv.URL)
	require.NoError(t, c.Open(context.Background(), "sess-1"))
	<-c.Done()

	all := c.Since(0)
	require.Len(t, all, 3)
	assert.Len(t, c.Since(1), 2)
	assert.Len(t, c.Since(3), 0)
	assert.Len(t, c.Since(99), 0)
	assert.Len(t, c.Since(-5), 3)
}

func TestStreamLifecycleNoLeaks(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv := sseServer(t, []wireEvent{{"done", ""}}, false)
	c := stream.New(srv.URL)
	require.NoError(t, c.Open(context.Background(), "sess-1"))
	<-c.Done()
	require.NoError(t, c.Close())

	srv.Close()
	http.DefaultTransport.(*http.Transport).CloseIdleConnections()
}
