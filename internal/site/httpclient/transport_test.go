package httpclient

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/hookprof/internal/hooks"
)

func TestTransport_FiresLifecycleEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	registry := hooks.NewRegistry()
	var events []string
	registry.Add(EventRequest, func(args ...any) any {
		events = append(events, "start")
		return args[0]
	})
	registry.Add(EventRequestDone, func(args ...any) any {
		resp := args[0].(*http.Response)
		events = append(events, "done:"+resp.Status[:3])
		return nil
	}, hooks.WithAcceptedArgs(3))

	client := NewClient(nil, registry)
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	assert.Equal(t, []string{"start", "done:418"}, events)
}

func TestTransport_ShortCircuit(t *testing.T) {
	registry := hooks.NewRegistry()
	registry.Add(EventRequest, func(args ...any) any {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader("mocked")),
		}
	})
	done := 0
	registry.Add(EventRequestDone, func(args ...any) any { done++; return nil })

	tr := NewTransport(failingTransport{}, registry)
	req, err := http.NewRequest(http.MethodGet, "http://unreachable.invalid", nil)
	require.NoError(t, err)

	resp, err := tr.RoundTrip(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "mocked", string(body))
	assert.Equal(t, 1, done)
}

func TestTransport_DoneFiresOnError(t *testing.T) {
	registry := hooks.NewRegistry()
	var gotErr error
	registry.Add(EventRequestDone, func(args ...any) any {
		gotErr, _ = args[1].(error)
		return nil
	}, hooks.WithAcceptedArgs(2))

	tr := NewTransport(failingTransport{}, registry)
	req, err := http.NewRequest(http.MethodGet, "http://unreachable.invalid", nil)
	require.NoError(t, err)

	_, err = tr.RoundTrip(req)
	assert.Error(t, err)
	assert.ErrorIs(t, gotErr, errDial)
}

var errDial = errors.New("dial failed")

type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) { return nil, errDial }
