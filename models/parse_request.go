package models

type ParseRequest struct {
	Identifier string `json:"identifier"`
}
