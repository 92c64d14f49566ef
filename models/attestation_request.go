package models

type AttestationRequest struct {
	SessionId  string `json:"session_id"`
	Nonce      string `json:"nonce"`
	Identifier string `json:"identifier"`
}
