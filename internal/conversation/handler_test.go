package conversation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChatServer(t *testing.T, replies ...string) (*httptest.Server, *agentFixture) {
	t.Helper()
	f := newAgentFixture(t, replies...)
	r := chi.NewRouter()
	r.Mount("/chat/sessions", NewHandler(f.agent, nil).Routes())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, f
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHandler_SessionLifecycle(t *testing.T) {
	srv, _ := newChatServer(t, "Hello Asha! How can I help?")

	resp, err := http.Post(srv.URL+"/chat/sessions", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sess := decode[Session](t, resp)
	require.NotEmpty(t, sess.ID)

	resp, err = http.Post(srv.URL+"/chat/sessions/"+sess.ID+"/messages", "application/json", strings.NewReader(`{"message":"hi, I'm Asha"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	reply := decode[Reply](t, resp)
	assert.Equal(t, "Hello Asha! How can I help?", reply.Message)

	resp, err = http.Get(srv.URL + "/chat/sessions/" + sess.ID)
	require.NoError(t, err)
	got := decode[Session](t, resp)
	assert.Len(t, got.Messages, 3)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/chat/sessions/"+sess.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cleared := decode[Session](t, resp)
	assert.Len(t, cleared.Messages, 1)
}

func TestHandler_QuickAction(t *testing.T) {
	srv, f := newChatServer(t, "Our fees are listed below.")
	sess := f.start(t)

	resp, err := http.Post(srv.URL+"/chat/sessions/"+sess.ID+"/quick/fees", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	last := f.llm.requests[0].Messages
	assert.Equal(t, QuickActions["fees"], last[len(last)-1].Content)

	resp, err = http.Post(srv.URL+"/chat/sessions/"+sess.ID+"/quick/refund", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_Errors(t *testing.T) {
	srv, f := newChatServer(t)
	sess := f.start(t)

	resp, err := http.Post(srv.URL+"/chat/sessions/nope/messages", "application/json", strings.NewReader(`{"message":"hi"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/chat/sessions/"+sess.ID+"/messages", "application/json", strings.NewReader(`{"message":""}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/chat/sessions/"+sess.ID+"/messages", "application/json", strings.NewReader(`{`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
