// Package envelope builds the uniform wire payloads returned at the API
// boundary: a JSON {code, message, data} body for request/response calls
// and a server-sent-event stream for streaming endpoints.
package envelope

import (
	"encoding/json"
	"net/http"
)

// Default payload-level code and message for successful responses.
const (
	CodeOK         = 200
	MessageSuccess = "success"
)

// Response is the JSON body shape shared by success and error responses.
// Code and Message are payload-level and independent from the HTTP status
// the response is written with.
type Response struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

// Success builds a success envelope with the default code and message.
func Success(data map[string]any) Response {
	return SuccessWith(data, MessageSuccess, CodeOK)
}

// SuccessWith builds a success envelope with an explicit message and code.
func SuccessWith(data map[string]any, message string, code int) Response {
	if data == nil {
		data = map[string]any{}
	}
	return Response{Code: code, Message: message, Data: data}
}

// Error builds an error envelope. Data defaults to an empty object so the
// body shape stays stable for clients.
func Error(code int, message string, data map[string]any) Response {
	if data == nil {
		data = map[string]any{}
	}
	return Response{Code: code, Message: message, Data: data}
}

// WriteJSON writes the envelope as a JSON body with the given transport
// status code.
func WriteJSON(w http.ResponseWriter, statusCode int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

// WriteSuccess writes a default success envelope with HTTP 200.
func WriteSuccess(w http.ResponseWriter, data map[string]any) {
	WriteJSON(w, http.StatusOK, Success(data))
}

// WriteError writes an error envelope. The transport status is independent
// from the payload code.
func WriteError(w http.ResponseWriter, statusCode int, code int, message string) {
	WriteJSON(w, statusCode, Error(code, message, nil))
}
