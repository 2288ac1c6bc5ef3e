package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/betbot/transferdesk/internal/session"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSession records calls and returns injected errors.
type fakeSession struct {
	mu sync.Mutex

	snap       session.Snapshot
	accessErr  error
	refreshErr error
	submitErr  error

	accessModes []session.AccessMode
	submits     int
	updates     chan session.Snapshot
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		snap: session.Snapshot{
			Account:          "0xabc",
			AccountStatus:    session.AccountConnected,
			Transfers:        []session.TransferRecord{},
			SubmissionStatus: session.SubmissionIdle,
			Notices:          []session.Notice{},
		},
		updates: make(chan session.Snapshot, 4),
	}
}

func (f *fakeSession) Snapshot() session.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSession) Subscribe() (<-chan session.Snapshot, func()) {
	f.updates <- f.Snapshot()
	return f.updates, func() {}
}

func (f *fakeSession) RequestAccess(_ context.Context, mode session.AccessMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accessModes = append(f.accessModes, mode)
	return f.accessErr
}

func (f *fakeSession) RefreshHistory(context.Context) error { return f.refreshErr }

func (f *fakeSession) UpdateDraftField(field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch field {
	case session.FieldAmount:
		f.snap.Draft.Amount = value
	case session.FieldAddressTo:
		f.snap.Draft.AddressTo = value
	default:
		return &session.Error{Kind: session.KindInvalidDraft, Op: "updateDraftField", Err: session.ErrUnknownField}
	}
	return nil
}

func (f *fakeSession) SubmitTransfer(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	return f.submitErr
}

func newTestServer(t *testing.T, sess Session) *httptest.Server {
	t.Helper()
	s := New(Config{PingInterval: time.Second}, sess)
	router, err := s.Router()
	require.NoError(t, err)
	ts := httptest.NewServer(router)
	t.Cleanup(func() {
		_ = s.Close()
		ts.Close()
	})
	return ts
}

func do(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, newFakeSession())
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetSession(t *testing.T) {
	ts := newTestServer(t, newFakeSession())
	resp, body := do(t, http.MethodGet, ts.URL+"/api/session", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0xabc", body["account"])
	assert.Equal(t, "connected", body["accountStatus"])
}

func TestConnect(t *testing.T) {
	sess := newFakeSession()
	ts := newTestServer(t, sess)

	resp, _ := do(t, http.MethodPost, ts.URL+"/api/session/connect", `{"mode":"silent"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = do(t, http.MethodPost, ts.URL+"/api/session/connect", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = do(t, http.MethodPost, ts.URL+"/api/session/connect", `{"mode":"loud"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Equal(t, []session.AccessMode{session.AccessSilent, session.AccessInteractive}, sess.accessModes)
}

func TestConnect_Rejected(t *testing.T) {
	sess := newFakeSession()
	sess.accessErr = &session.Error{Kind: session.KindProviderRejected, Op: "requestAccess"}
	ts := newTestServer(t, sess)

	resp, body := do(t, http.MethodPost, ts.URL+"/api/session/connect", `{"mode":"interactive"}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "provider_rejected", body["kind"])
}

func TestDraftUpdate(t *testing.T) {
	sess := newFakeSession()
	ts := newTestServer(t, sess)

	resp, body := do(t, http.MethodPut, ts.URL+"/api/session/draft", `{"field":"amount","value":"0.25"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0.25", body["amount"])

	resp, body = do(t, http.MethodPut, ts.URL+"/api/session/draft", `{"field":"memo","value":"x"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_draft", body["kind"])

	resp, _ = do(t, http.MethodPut, ts.URL+"/api/session/draft", `{`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmit_StatusMapping(t *testing.T) {
	cases := []struct {
		kind session.Kind
		want int
	}{
		{session.KindSubmissionInFlight, http.StatusConflict},
		{session.KindInvalidDraft, http.StatusBadRequest},
		{session.KindNotConnected, http.StatusBadRequest},
		{session.KindProviderRejected, http.StatusForbidden},
		{session.KindRPCFailure, http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			sess := newFakeSession()
			sess.submitErr = &session.Error{Kind: tc.kind, Op: "submitTransfer"}
			ts := newTestServer(t, sess)

			resp, body := do(t, http.MethodPost, ts.URL+"/api/session/submit", "")
			assert.Equal(t, tc.want, resp.StatusCode)
			assert.Equal(t, string(tc.kind), body["kind"])
		})
	}
}

func TestSubmit_Async(t *testing.T) {
	sess := newFakeSession()
	ts := newTestServer(t, sess)

	resp, _ := do(t, http.MethodPost, ts.URL+"/api/session/submit?async=true", "")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Eventually(t, func() bool {
		sess.mu.Lock()
		defer sess.mu.Unlock()
		return sess.submits == 1
	}, time.Second, time.Millisecond)
}

func TestSubmit_AsyncWhileInFlight(t *testing.T) {
	sess := newFakeSession()
	sess.snap.SubmissionStatus = session.SubmissionConfirming
	ts := newTestServer(t, sess)

	resp, _ := do(t, http.MethodPost, ts.URL+"/api/session/submit?async=true", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, 0, sess.submits)
}

func TestTransfers(t *testing.T) {
	sess := newFakeSession()
	ts := newTestServer(t, sess)

	resp, body := do(t, http.MethodGet, ts.URL+"/api/transfers", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "transfers")

	sess.refreshErr = &session.Error{Kind: session.KindMalformedRecord, Op: "refreshHistory"}
	resp, body = do(t, http.MethodPost, ts.URL+"/api/transfers/refresh", "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "malformed_record", body["kind"])
}

func TestDebugVars(t *testing.T) {
	ts := newTestServer(t, newFakeSession())
	resp, body := do(t, http.MethodGet, ts.URL+"/debug/vars", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "submissions")
}

func TestStream(t *testing.T) {
	sess := newFakeSession()
	ts := newTestServer(t, sess)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/session/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var first session.Snapshot
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "0xabc", first.Account)

	next := sess.Snapshot()
	next.Draft.Amount = "9"
	sess.updates <- next

	var second session.Snapshot
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, "9", second.Draft.Amount)
}

func TestGraphQL(t *testing.T) {
	sess := newFakeSession()
	sess.snap.Transfers = []session.TransferRecord{{AddressFrom: "0xA", AddressTo: "0xB", Amount: decimal.NewFromInt(2), Message: "hi"}}
	ts := newTestServer(t, sess)

	resp, body := do(t, http.MethodPost, ts.URL+"/api/graphql", `{"query":"{ session { account accountStatus transfers { addressFrom amount message } } }"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, body["errors"])
	data := body["data"].(map[string]any)["session"].(map[string]any)
	assert.Equal(t, "0xabc", data["account"])
	transfers := data["transfers"].([]any)
	require.Len(t, transfers, 1)
	assert.Equal(t, "2.0", transfers[0].(map[string]any)["amount"])

	resp, body = do(t, http.MethodPost, ts.URL+"/api/graphql", `{"query":"mutation { updateDraft(field: \"amount\", value: \"0.3\") { amount } }"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	draft := body["data"].(map[string]any)["updateDraft"].(map[string]any)
	assert.Equal(t, "0.3", draft["amount"])
}

func TestGraphQL_SubmitError(t *testing.T) {
	sess := newFakeSession()
	sess.submitErr = &session.Error{Kind: session.KindSubmissionInFlight, Op: "submitTransfer", Err: session.ErrSubmissionInFlight}
	ts := newTestServer(t, sess)

	_, body := do(t, http.MethodPost, ts.URL+"/api/graphql", `{"query":"mutation { submitTransfer { submissionStatus } }"}`)
	errs, ok := body["errors"].([]any)
	require.True(t, ok)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].(map[string]any)["message"], "already in flight")
}
