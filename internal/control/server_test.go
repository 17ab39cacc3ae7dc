package control

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	downsampler "github.com/tphakala/go-audio-downsampler"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func startServer(t *testing.T) (*Server, *downsampler.RateParam, *httptest.Server) {
	t.Helper()
	param := downsampler.NewRateParam()
	srv := NewServer(param, quietLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, param, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })

	// Every connection starts with a state push.
	var initial State
	require.NoError(t, conn.ReadJSON(&initial))
	return conn
}

func send(t *testing.T, conn *websocket.Conn, payload string) State {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(payload)))
	var st State
	require.NoError(t, conn.ReadJSON(&st))
	return st
}

func TestServer_InitialState(t *testing.T) {
	_, param, ts := startServer(t)
	param.Set(6000)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	var st State
	require.NoError(t, conn.ReadJSON(&st))
	assert.Equal(t, 6000, st.TargetRate)
	assert.Equal(t, "6000 Hz", st.Display)
	assert.Empty(t, st.Error)

	assert.Equal(t, downsampler.ParamID, st.ID)
	assert.Equal(t, downsampler.ParamName, st.Name)
	assert.Equal(t, downsampler.ParamUnit, st.Unit)
	assert.Equal(t, downsampler.MinTargetRate, st.Min)
	assert.Equal(t, downsampler.MaxTargetRate, st.Max)
}

func TestServer_Requests(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantRate int
		wantErr  bool
	}{
		{"target rate", `{"target_rate": 6000}`, 6000, false},
		{"clamped high", `{"target_rate": 100000}`, downsampler.MaxTargetRate, false},
		{"clamped low", `{"target_rate": 1}`, downsampler.MinTargetRate, false},
		{"normalized min", `{"normalized": 0}`, downsampler.MinTargetRate, false},
		{"normalized max", `{"normalized": 1}`, downsampler.MaxTargetRate, false},
		{"invalid json", `{"target_rate":`, downsampler.DefaultTargetRate, true},
		{"empty request", `{}`, downsampler.DefaultTargetRate, true},
		{"both fields", `{"target_rate": 5000, "normalized": 0.5}`, downsampler.DefaultTargetRate, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, param, ts := startServer(t)
			conn := dial(t, ts)

			st := send(t, conn, tt.payload)
			assert.Equal(t, tt.wantRate, st.TargetRate)
			assert.Equal(t, tt.wantRate, param.Get())
			if tt.wantErr {
				assert.NotEmpty(t, st.Error)
			} else {
				assert.Empty(t, st.Error)
			}
		})
	}
}

func TestServer_RejectsBinaryMessages(t *testing.T) {
	_, param, ts := startServer(t)
	conn := dial(t, ts)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte(`{"target_rate": 6000}`)))
	var st State
	require.NoError(t, conn.ReadJSON(&st))
	assert.Equal(t, ErrBinaryMessage.Error(), st.Error)
	assert.Equal(t, downsampler.DefaultTargetRate, param.Get())
}

func TestServer_CountsAppliedRequests(t *testing.T) {
	srv, _, ts := startServer(t)
	conn := dial(t, ts)

	send(t, conn, `{"target_rate": 4000}`)
	send(t, conn, `{}`)
	send(t, conn, `{"normalized": 0.5}`)

	assert.Equal(t, uint64(2), srv.Applied())
	assert.Equal(t, int64(1), srv.Clients())
}

func TestServer_StateEndpoint(t *testing.T) {
	_, param, ts := startServer(t)
	param.Set(8000)

	resp, err := http.Get(ts.URL + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var st State
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, 8000, st.TargetRate)
	assert.Equal(t, "Resample", st.ID)
	assert.InDelta(t, float64(8000-downsampler.MinTargetRate)/
		float64(downsampler.MaxTargetRate-downsampler.MinTargetRate), st.Normalized, 1e-12)
}

func TestServer_StateEndpointRejectsPost(t *testing.T) {
	_, _, ts := startServer(t)

	resp, err := http.Post(ts.URL+"/state", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_PlainHTTPOnWebsocketRoute(t *testing.T) {
	_, _, ts := startServer(t)

	resp, err := http.Get(ts.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_ParameterInterface(t *testing.T) {
	var _ Parameter = downsampler.NewRateParam()
}
