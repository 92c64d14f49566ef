package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"go-cid-parser/cid"
	"go-cid-parser/models"

	"github.com/stretchr/testify/require"
)

var testConfig = ServerConfig{
	Host:           "localhost",
	Port:           8081,
	UseTls:         false,
	TlsCertPath:    "",
	TlsPrivKeyPath: "",
}

func startTestServer(t *testing.T, storage TokenStorage) *Server {
	t.Helper()

	parser, err := cid.NewParser()
	require.NoError(t, err)

	testState := &ServerState{
		parser:       parser,
		tokenStorage: storage,
		resultCache:  NewInMemoryResultCache(),
		jwtCreator:   fakeJwtCreator{jwt: "test-jwt"},
		converter:    IdentityDataConverterImpl{},
	}

	srv, err := NewServer(testState, testConfig)
	require.NoError(t, err)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("server error: %v", err)
		}
	}()

	waitUntilHealthy(t, "http://localhost:8081/api/health")
	t.Cleanup(func() {
		if err := srv.Stop(); err != nil {
			t.Logf("error shutting down server: %v", err)
		}
	})
	return srv
}

func waitUntilHealthy(t *testing.T, url string) {
	t.Helper()
	const maxAttempts = 50
	for i := 0; i < maxAttempts; i++ {
		if resp, err := http.Get(url); err == nil {
			_ = resp.Body.Close()
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("server did not start in time")
}

func postJSON[T any](t *testing.T, url string, payload any) (*http.Response, []byte, *T) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(b)
	}
	resp, err := http.Post(url, "application/json", body)
	require.NoError(t, err)

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded *T
	var v T
	_ = json.Unmarshal(respBody, &v)
	decoded = &v

	return resp, respBody, decoded
}

func decodeBody(resp *http.Response, v any) error {
	return json.NewDecoder(resp.Body).Decode(v)
}

func mustStatus(t *testing.T, resp *http.Response, want int, body []byte) {
	t.Helper()
	require.Equalf(t, want, resp.StatusCode, "body: %s", body)
}

// start-attestation bootstrap
func startAttestation(t *testing.T) (sessionID, nonce string) {
	t.Helper()
	resp, body, sr := postJSON[StartAttestationResponse](t, "http://localhost:8081/api/start-attestation", nil)
	mustStatus(t, resp, http.StatusOK, body)
	require.NotEmpty(t, sr.SessionId)
	require.NotEmpty(t, sr.Nonce)
	return sr.SessionId, sr.Nonce
}

// test doubles

type fakeJwtCreator struct{ jwt string }

func (f fakeJwtCreator) CreateAttestationJwt(_ models.IdentityData) (string, error) {
	return f.jwt, nil
}
