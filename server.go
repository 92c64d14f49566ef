package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go-cid-parser/cid"
	"go-cid-parser/metrics"
	"go-cid-parser/models"

	"github.com/gorilla/mux"
)

const ErrorInternal = "error:internal"
const ERR_MARSHAL = "failed to marshal response message"
const ERR_INVALID_IDENTIFIER = "invalid identifier"
const ERR_REGION_NOT_FOUND = "unknown region code"
const ERR_PARSE_FAILED = "failed to parse identifier"
const ERR_CHECKSUM_FAILED = "checksum validation failed"
const ERR_IDENTITY_CONVERT = "failed to convert parse result to identity data"
const ERR_JWT_CREATION = "failed to create jwt"
const ERR_TOKEN_REMOVAL = "failed to remove token from storage"
const ERR_TOKEN_RETRIEVAL = "failed to get nonce from storage"
const ERR_INVALID_NONCE_SESSION = "invalid session or nonce"

type ServerConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	UseTls         bool   `json:"use_tls,omitempty"`
	TlsPrivKeyPath string `json:"tls_priv_key_path,omitempty"`
	TlsCertPath    string `json:"tls_cert_path,omitempty"`
}

type ServerState struct {
	parser       IdentityParser
	tokenStorage TokenStorage
	resultCache  ResultCache
	jwtCreator   JwtCreator
	converter    IdentityDataConverter
}

type Server struct {
	server *http.Server
	config ServerConfig
}

func (s *Server) ListenAndServe() error {
	if s.config.UseTls {
		slog.Info("Starting server with TLS", "host", s.config.Host, "port", s.config.Port, "cert", s.config.TlsCertPath, "key", s.config.TlsPrivKeyPath)
		return s.server.ListenAndServeTLS(s.config.TlsCertPath, s.config.TlsPrivKeyPath)
	} else {
		slog.Info("Starting server without TLS", "host", s.config.Host, "port", s.config.Port)
		return s.server.ListenAndServe()
	}
}

func (s *Server) Stop() error {
	slog.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := s.server.Shutdown(ctx)
	if err != nil {
		slog.Error("Error during server shutdown", "error", err)
	} else {
		slog.Info("Server shut down successfully")
	}
	return err
}

func NewServer(state *ServerState, config ServerConfig) (*Server, error) {
	slog.Info("Creating new server", "host", config.Host, "port", config.Port, "tls", config.UseTls)
	router := mux.NewRouter()

	router.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("Health check request received")
		err := json.NewEncoder(w).Encode(map[string]bool{"ok": true})
		if err != nil {
			slog.Error("failed to write body to http response", "error", err)
		}
	})

	router.HandleFunc("/api/parse", func(w http.ResponseWriter, r *http.Request) {
		handleParse(state, w, r)
	})
	router.HandleFunc("/api/validate", func(w http.ResponseWriter, r *http.Request) {
		handleValidate(state, w, r)
	})
	router.HandleFunc("/api/region/{code}", func(w http.ResponseWriter, r *http.Request) {
		handleRegion(state, w, r)
	}).Methods(http.MethodGet)
	router.HandleFunc("/api/start-attestation", func(w http.ResponseWriter, r *http.Request) {
		handleStartAttestation(state, w, r)
	})
	router.HandleFunc("/api/attest", func(w http.ResponseWriter, r *http.Request) {
		handleAttest(state, w, r)
	})
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	slog.Debug("Registered all API routes")

	addr := fmt.Sprintf("%v:%v", config.Host, config.Port)
	srv := &http.Server{
		Handler: router,
		Addr:    addr,
		// Good practice: enforce timeouts for servers you create!
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	slog.Info("Server created successfully", "address", addr)
	return &Server{
		server: srv,
		config: config,
	}, nil
}

type ValidationResponse struct {
	Valid bool `json:"valid"`
	// Verifiable is false for legacy 15-digit identifiers, which carry no
	// check digit and are accepted unconditionally.
	Verifiable bool `json:"verifiable"`
}

type StartAttestationResponse struct {
	SessionId string `json:"session_id"`
	Nonce     string `json:"nonce"`
}

type AttestationResponse struct {
	Jwt string `json:"jwt"`
}

func handleParse(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}

	metrics.ParseRequestsTotal.Inc()
	start := time.Now()
	defer func() {
		metrics.ParseDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	}()

	slog.Info("Received request to parse an identifier")

	request, err := decodeParseRequest(r)
	if err != nil {
		respondWithErr(w, http.StatusBadRequest, "invalid request", "failed to decode parse request", err)
		return
	}

	// Identifiers are memoized under a digest, not in the clear
	cacheKey := identifierDigest(request.Identifier)
	if payload, ok := state.resultCache.RetrieveResult(cacheKey); ok {
		metrics.CacheHitsTotal.Inc()
		slog.Debug("Serving parse result from cache")
		writeRawJSON(w, payload)
		return
	}
	metrics.CacheMissesTotal.Inc()

	result, err := state.parser.Parse(request.Identifier)
	if err != nil {
		respondWithDomainErr(w, err)
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
		return
	}

	if err := state.resultCache.StoreResult(cacheKey, payload); err != nil {
		slog.Warn("failed to store parse result in cache", "error", err)
	}

	writeRawJSON(w, payload)
	slog.Info("Identifier parsed successfully")
}

func handleValidate(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}

	metrics.ValidateRequestsTotal.Inc()
	slog.Info("Received request to validate an identifier")

	request, err := decodeParseRequest(r)
	if err != nil {
		respondWithErr(w, http.StatusBadRequest, "invalid request", "failed to decode validation request", err)
		return
	}

	if err := cid.CheckIdentifier(request.Identifier); err != nil {
		respondWithErr(w, http.StatusBadRequest, ERR_INVALID_IDENTIFIER, ERR_INVALID_IDENTIFIER, err)
		return
	}

	response := ValidationResponse{
		Valid:      cid.IsValidCid(request.Identifier),
		Verifiable: len(request.Identifier) == cid.LengthModern,
	}
	if !response.Valid {
		metrics.ChecksumFailuresTotal.Inc()
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
		return
	}

	slog.Info("Identifier validated", "valid", response.Valid, "verifiable", response.Verifiable)
}

func handleRegion(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	code := mux.Vars(r)["code"]
	slog.Info("Received request to look up a region code")

	region, err := state.parser.Region(code)
	if err != nil {
		respondWithDomainErr(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, region); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
		return
	}

	slog.Info("Region code resolved successfully")
}

func handleStartAttestation(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}

	slog.Info("Received request to start an attestation session")

	slog.Debug("Generating session ID")
	sessionId := GenerateSessionId()
	if sessionId == "" {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, "failed to generate session ID", fmt.Errorf("failed to generate session ID"))
		return
	}
	slog.Debug("Session ID generated", "session_id", sessionId)

	// Generate an 8 byte nonce
	slog.Debug("Generating nonce", "session_id", sessionId)
	nonce, err := GenerateNonce(8)
	if err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, "failed to generate nonce", err)
		return
	}

	// Store the nonce, removed again when the attestation jwt is handed out
	slog.Debug("Storing nonce in token storage", "session_id", sessionId)
	err = state.tokenStorage.StoreToken(sessionId, nonce)
	if err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, "failed to store nonce", err)
		return
	}

	response := StartAttestationResponse{
		SessionId: sessionId,
		Nonce:     nonce,
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
		return
	}

	slog.Info("Attestation session started successfully", "session_id", sessionId)
}

func handleAttest(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}

	slog.Info("Received request to attest an identifier")

	request, err := decodeAttestationRequest(r)
	if err != nil {
		respondWithErr(w, http.StatusBadRequest, "invalid request", "failed to decode attestation request", err)
		return
	}

	slog.Debug("Validating session", "session_id", request.SessionId)
	if err := validateSession(state.tokenStorage, request.SessionId, request.Nonce); err != nil {
		respondWithErr(w, http.StatusBadRequest, "invalid request", ERR_INVALID_NONCE_SESSION, err)
		return
	}

	if err := cid.CheckIdentifier(request.Identifier); err != nil {
		respondWithErr(w, http.StatusBadRequest, ERR_INVALID_IDENTIFIER, ERR_INVALID_IDENTIFIER, err)
		return
	}

	// Attestations are only issued against a verified check digit
	if !cid.IsValidCid(request.Identifier) {
		metrics.ChecksumFailuresTotal.Inc()
		respondWithErr(w, http.StatusBadRequest, ERR_CHECKSUM_FAILED, ERR_CHECKSUM_FAILED, nil)
		return
	}

	result, err := state.parser.Parse(request.Identifier)
	if err != nil {
		respondWithDomainErr(w, err)
		return
	}

	slog.Debug("Converting parse result for attestation", "session_id", request.SessionId)
	identityData, err := state.converter.ToIdentityData(result)
	if err != nil {
		respondWithErr(w, http.StatusBadRequest, ERR_IDENTITY_CONVERT, ERR_IDENTITY_CONVERT, err)
		return
	}

	slog.Debug("Creating attestation JWT", "session_id", request.SessionId)
	attestationJwt, err := state.jwtCreator.CreateAttestationJwt(identityData)
	if err != nil {
		respondWithErr(w, http.StatusInternalServerError, ERR_JWT_CREATION, ERR_JWT_CREATION, err)
		return
	}

	response := AttestationResponse{
		Jwt: attestationJwt,
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
		return
	}

	metrics.AttestationsTotal.Inc()
	slog.Info("Attestation issued successfully", "session_id", request.SessionId)
	removeSessionToken(w, state.tokenStorage, request.SessionId)
}

// -----------------------------------------------------------------------------------

// validateSession validates session and nonce
func validateSession(storage TokenStorage, sessionId, nonce string) error {
	slog.Debug("Validating session and nonce", "session_id", sessionId)
	storedNonce, err := storage.RetrieveToken(sessionId)
	if err != nil {
		slog.Warn("Failed to retrieve token from storage", "session_id", sessionId, "error", err)
		return fmt.Errorf("%s: %w", ERR_TOKEN_RETRIEVAL, err)
	}

	if storedNonce == "" || storedNonce != nonce {
		slog.Warn("Invalid nonce or session", "session_id", sessionId, "nonce_empty", storedNonce == "", "nonce_match", storedNonce == nonce)
		return fmt.Errorf("%s", ERR_INVALID_NONCE_SESSION)
	}

	slog.Debug("Session validation successful", "session_id", sessionId)
	return nil
}

// removeSessionToken removes token and logs error if failed
func removeSessionToken(w http.ResponseWriter, storage TokenStorage, sessionId string) {
	slog.Debug("Removing session token", "session_id", sessionId)
	if err := storage.RemoveToken(sessionId); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_TOKEN_REMOVAL, err)
	} else {
		slog.Debug("Session token removed successfully", "session_id", sessionId)
	}
}

// decodeParseRequest decodes the request body
func decodeParseRequest(r *http.Request) (models.ParseRequest, error) {
	slog.Debug("Decoding parse request body")
	var request models.ParseRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		slog.Warn("Failed to decode parse request", "error", err)
		return request, fmt.Errorf("decode request body: %w", err)
	}
	return request, nil
}

// decodeAttestationRequest decodes the request body
func decodeAttestationRequest(r *http.Request) (models.AttestationRequest, error) {
	slog.Debug("Decoding attestation request body")
	var request models.AttestationRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		slog.Warn("Failed to decode attestation request", "error", err)
		return request, fmt.Errorf("decode request body: %w", err)
	}
	slog.Debug("Attestation request decoded successfully", "session_id", request.SessionId)
	return request, nil
}

// respondWithDomainErr maps the core parsing error kinds onto HTTP statuses
func respondWithDomainErr(w http.ResponseWriter, e error) {
	var invalidErr *cid.InvalidIdentifierError
	var notFoundErr *cid.RegionNotFoundError
	switch {
	case errors.As(e, &invalidErr):
		respondWithErr(w, http.StatusBadRequest, ERR_INVALID_IDENTIFIER, ERR_INVALID_IDENTIFIER, e)
	case errors.As(e, &notFoundErr):
		metrics.RegionMissesTotal.Inc()
		respondWithErr(w, http.StatusNotFound, ERR_REGION_NOT_FOUND, ERR_REGION_NOT_FOUND, e)
	default:
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_PARSE_FAILED, e)
	}
}

// identifierDigest keys the result cache without storing identifiers verbatim
func identifierDigest(identifier string) string {
	digest := sha256.Sum256([]byte(identifier))
	return hex.EncodeToString(digest[:])
}

func GenerateSessionId() string {
	sessionId := make([]byte, 16)
	if _, err := rand.Read(sessionId); err != nil {
		slog.Error("failed to generate session ID", "error", err)
		return ""
	}
	hexId := fmt.Sprintf("%x", sessionId)
	slog.Debug("Session ID generated successfully", "session_id", hexId)
	return hexId
}

// GenerateNonce Generates a random nonce
func GenerateNonce(i int) (string, error) {
	nonce := make([]byte, i)
	if _, err := rand.Read(nonce); err != nil {
		slog.Error("failed to generate nonce", "error", err)
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	hexString := hex.EncodeToString(nonce)
	slog.Debug("Nonce generated successfully", "length", i)
	return hexString, nil
}

func respondWithErr(w http.ResponseWriter, code int, responseBody string, logMsg string, e error) {
	slog.Error(logMsg, "error", e, "status_code", code, "response_body", responseBody)
	w.WriteHeader(code)
	if _, err := w.Write([]byte(responseBody)); err != nil {
		slog.Error("failed to write body to http response", "error", err)
	}
}

// helpers ------------

func closeRequestBody(r *http.Request) {
	if err := r.Body.Close(); err != nil {
		slog.Error("failed to close request body", "error", err)
	}

}

func requirePOST(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		slog.Debug("Non-POST request rejected", "method", r.Method, "path", r.URL.Path)
		respondWithErr(w, http.StatusMethodNotAllowed, "method not allowed", "invalid method", nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	slog.Debug("Writing JSON response", "status_code", status)
	payload, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to marshal JSON payload", "error", err)
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(payload)
	if err != nil {
		slog.Error("failed to write body to http response", "error", err)
	} else {
		slog.Debug("JSON response written successfully", "status_code", status, "payload_size", len(payload))
	}
	return nil
}

func writeRawJSON(w http.ResponseWriter, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(payload); err != nil {
		slog.Error("failed to write body to http response", "error", err)
	}
}
