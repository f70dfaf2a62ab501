package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvaas/quest-engine/internal/models"
	"github.com/cvaas/quest-engine/internal/quest"
)

func dialEvents(t *testing.T, env *testEnv, tok string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/api/v1/events/ws?access_token=" + tok
	return websocket.DefaultDialer.Dial(url, nil)
}

func readStream(t *testing.T, conn *websocket.Conn) StreamMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg StreamMessage
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func TestEventsWS_RequiresToken(t *testing.T) {
	env := newTestEnv(t, nil)

	_, resp, err := dialEvents(t, env, "")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestEventsWS_DeliversOwnEvents(t *testing.T) {
	env := newTestEnv(t, nil)

	conn, _, err := dialEvents(t, env, token(t, testCandidate, models.RoleCandidate))
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "connected", readStream(t, conn).Type)

	require.Eventually(t, func() bool {
		return env.hub.Subscribers(testCandidate) == 1
	}, time.Second, 10*time.Millisecond)

	env.hub.Publish(testOther, quest.EventBadgeAwarded, map[string]string{"badge": "other"})
	env.hub.Publish(testCandidate, quest.EventSubmissionReviewed, map[string]string{"status": "passed"})

	msg := readStream(t, conn)
	assert.Equal(t, "event", msg.Type)
	require.NotNil(t, msg.Event)
	assert.Equal(t, quest.EventSubmissionReviewed, msg.Event.Type)
	assert.Equal(t, testCandidate, msg.Event.UserID)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))

	require.Eventually(t, func() bool {
		return env.hub.Subscribers(testCandidate) == 0
	}, 2*time.Second, 10*time.Millisecond)
}
