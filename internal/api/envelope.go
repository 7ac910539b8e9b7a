package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jackzampolin/lexreview/internal/errcode"
)

// Success codes carried in the envelope's code field.
const (
	CodeReviewSuccess   = "REVIEW_SUCCESS"
	CodeUploadSuccess   = "UPLOAD_SUCCESS"
	CodeDeleteSuccess   = "DELETE_SUCCESS"
	CodeNoDocumentFound = "NO_DOCUMENT_FOUND"
	CodeOK              = "OK"
)

// Envelope is the body of every API response. Data is set on success and
// Detail on failure.
type Envelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Detail  string          `json:"detail,omitempty"`
}

// WriteJSON writes v as the response body with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess wraps data in a success envelope.
func WriteSuccess(w http.ResponseWriter, status int, code, message string, data any) {
	env := Envelope{Code: code, Message: message}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			WriteError(w, errcode.New(errcode.ReviewFailed, err))
			return
		}
		env.Data = raw
	}
	WriteJSON(w, status, env)
}

// WriteError writes the error envelope for err, using the status of the code
// found in its chain.
func WriteError(w http.ResponseWriter, err error) {
	code := errcode.From(err)
	env := Envelope{Code: code.Code, Message: code.Message}
	var e *errcode.Error
	switch {
	case errors.As(err, &e):
		if e.Err != nil {
			env.Detail = e.Err.Error()
		}
	case err != nil:
		env.Detail = err.Error()
	}
	WriteJSON(w, code.Status, env)
}

// WriteCodeError writes the envelope for a bare code with a detail string.
func WriteCodeError(w http.ResponseWriter, code errcode.Code, detail string) {
	WriteJSON(w, code.Status, Envelope{Code: code.Code, Message: code.Message, Detail: detail})
}

// DecodeBody decodes a JSON request body into v. Malformed JSON is C008.
func DecodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var syntax *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &typeErr):
			return errcode.New(errcode.DataTypeNotMatch, err)
		case errors.As(err, &syntax):
			return errcode.New(errcode.InvalidJSONFormat, err)
		default:
			return errcode.New(errcode.RequestUnmatch, err)
		}
	}
	return nil
}
