package websocket

import (
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorcast/api/internal/model"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg := <-c.Send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func TestHub_TopicRouting(t *testing.T) {
	h := NewHub(quietLogger())
	go h.Run()
	defer h.Stop()

	job := &Client{Topic: JobTopic("j1"), Send: make(chan []byte, 4)}
	sess := &Client{Topic: SessionTopic("s1"), Send: make(chan []byte, 4)}
	h.Register(job)
	h.Register(sess)
	require.Eventually(t, func() bool { return h.Subscribers(JobTopic("j1")) == 1 }, time.Second, 5*time.Millisecond)

	h.BroadcastProgress("j1", 40, model.JobStatusRunning, "Compiling timeline")
	var progress model.WSProgressMessage
	require.NoError(t, json.Unmarshal(receive(t, job), &progress))
	assert.Equal(t, model.WSMessageTypeProgress, progress.Type)
	assert.Equal(t, 40, progress.Progress)

	h.BroadcastSession("s1", "step-completed", model.StateWaitingForInput, map[string]string{"stepId": "s2"})
	var ev model.WSSessionMessage
	require.NoError(t, json.Unmarshal(receive(t, sess), &ev))
	assert.Equal(t, "s1", ev.SessionID)
	assert.Equal(t, "step-completed", ev.Event)
	assert.Equal(t, "waiting-for-input", ev.State)

	assert.Len(t, job.Send, 0, "session events do not reach job subscribers")
}

func TestHub_Unregister(t *testing.T) {
	h := NewHub(quietLogger())
	go h.Run()
	defer h.Stop()

	c := &Client{Topic: JobTopic("j1"), Send: make(chan []byte, 1)}
	h.Register(c)
	h.Unregister(c)
	require.Eventually(t, func() bool { return h.Subscribers(JobTopic("j1")) == 0 }, time.Second, 5*time.Millisecond)

	_, open := <-c.Send
	assert.False(t, open)
}
