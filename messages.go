package alpacastream

import (
	"encoding/json"
	"fmt"
)

const (
	actionAuthenticate = "authenticate"
	actionListen       = "listen"
)

// Request is the envelope of every frame the client sends.
type Request struct {
	Action string      `json:"action"`
	Data   interface{} `json:"data"`
}

// AuthData is the payload of an authenticate request.
type AuthData struct {
	KeyID     string `json:"key_id"`
	SecretKey string `json:"secret_key"`
}

// ListenData is the payload of a listen request.
type ListenData struct {
	Streams []string `json:"streams"`
}

// Credentials is the API key pair sent in the authenticate request.
type Credentials struct {
	KeyID     string
	SecretKey string
}

// MinuteBars returns the minute-bar aggregate stream name for symbol.
func MinuteBars(symbol string) string {
	return "AM." + symbol
}

// EncodeAuthenticate returns the authenticate frame for creds.
func EncodeAuthenticate(creds Credentials) ([]byte, error) {
	data, err := json.Marshal(Request{
		Action: actionAuthenticate,
		Data: AuthData{
			KeyID:     creds.KeyID,
			SecretKey: creds.SecretKey,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode authenticate: %w", err)
	}
	return data, nil
}

// EncodeListen returns the listen frame naming streams.
func EncodeListen(streams []string) ([]byte, error) {
	data, err := json.Marshal(Request{
		Action: actionListen,
		Data:   ListenData{Streams: streams},
	})
	if err != nil {
		return nil, fmt.Errorf("encode listen: %w", err)
	}
	return data, nil
}
