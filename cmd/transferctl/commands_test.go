package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	root := rootCmd()
	root.AddCommand(statusCmd(), connectCmd(), draftCmd(), sendCmd(), historyCmd())
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.ExecuteContext(context.Background()))
	return out.String()
}

func TestHistoryCommand(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/transfers", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"transfers":[{"addressFrom":"0xA","addressTo":"0xB","amount":"1","timestamp":"11/14/2023, 10:13:20 PM","keyword":"gift","message":"hi"}]}`))
	}))
	defer ts.Close()

	out := execute(t, "history", "--addr", ts.URL)
	assert.Contains(t, out, "FROM")
	assert.Contains(t, out, "1.0")
	assert.Contains(t, out, "gift")
}

func TestConnectCommand_Silent(t *testing.T) {
	var body string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(r.Body)
		body = buf.String()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"account":"0xabc","accountStatus":"connected"}`))
	}))
	defer ts.Close()

	out := execute(t, "connect", "--silent", "--addr", ts.URL)
	assert.JSONEq(t, `{"mode":"silent"}`, body)
	assert.Contains(t, out, "0xabc (connected)")
}

func TestDraftCommand_JSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"addressTo":"","amount":"0.5","keyword":"","message":""}`))
	}))
	defer ts.Close()

	out := execute(t, "draft", "amount", "0.5", "--json", "--addr", ts.URL)
	assert.Contains(t, out, `"amount": "0.5"`)
}
