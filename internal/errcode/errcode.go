// Package errcode defines the stable error codes surfaced to API callers.
//
// Packages wrap failures with New so the code survives any number of
// fmt.Errorf("...: %w") layers; the HTTP layer recovers it with From.
package errcode

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable, caller-visible failure identifier.
type Code struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c Code) String() string {
	return c.Code
}

// Global codes.
var (
	RequestUnmatch = Code{http.StatusBadRequest, "G001", "request body does not match the expected schema"}
	URLNotFound    = Code{http.StatusBadRequest, "G002", "requested url does not exist"}
)

// Reference corpus codes.
var (
	UploadFailed         = Code{http.StatusInternalServerError, "S001", "failed to store the reference document"}
	DeleteFailed         = Code{http.StatusInternalServerError, "S002", "failed to delete reference points"}
	ChunkingFailed       = Code{http.StatusInternalServerError, "S003", "no chunks were produced"}
	PromptMaxTrialFailed = Code{http.StatusInternalServerError, "S004", "prompt retries exhausted without a valid response"}
	CollectionNotFound   = Code{http.StatusBadRequest, "S005", "no collection exists for the requested category"}
	StandardReviewFailed = Code{http.StatusInternalServerError, "S006", "failed to generate reference examples"}
)

// Common codes.
var (
	DataTypeNotMatch    = Code{http.StatusBadRequest, "C001", "data type does not match"}
	FileLoadFailed      = Code{http.StatusBadRequest, "C002", "failed to load the file from storage"}
	StorageClientError  = Code{http.StatusInternalServerError, "C003", "storage client error"}
	ConvertToIOFailed   = Code{http.StatusInternalServerError, "C004", "failed to buffer the object stream"}
	InnerDataError      = Code{http.StatusInternalServerError, "C005", "document has no pages or a broken structure"}
	FileFormatInvalid   = Code{http.StatusInternalServerError, "C006", "file is corrupt or unsupported"}
	StreamReadFailed    = Code{http.StatusInternalServerError, "C007", "failed to read the object stream"}
	InvalidJSONFormat   = Code{http.StatusBadRequest, "C008", "request body is not valid JSON"}
	FieldMissing        = Code{http.StatusBadRequest, "C009", "required field is missing"}
	InvalidURLParameter = Code{http.StatusBadRequest, "C010", "required path parameter is missing"}
	CannotConvertToNum  = Code{http.StatusBadRequest, "C011", "path parameter is not a number"}
	EmbeddingFailed     = Code{http.StatusInternalServerError, "C012", "embedding failed"}
	NoPointsGenerated   = Code{http.StatusInternalServerError, "C013", "no points were generated"}
	VectorStoreTimeout  = Code{http.StatusInternalServerError, "C014", "vector store connection timed out"}
	VectorStoreDown     = Code{http.StatusNotFound, "C015", "vector store is not running"}
	NoTextsExtracted    = Code{http.StatusInternalServerError, "C016", "no text was extracted from the file"}
	PDFLoadFailed       = Code{http.StatusInternalServerError, "C017", "failed to load the PDF"}
	LLMResponseTimeout  = Code{http.StatusInternalServerError, "C018", "LLM response timed out"}
)

// Agreement review codes.
var (
	ReviewFailed        = Code{http.StatusInternalServerError, "A001", "failed to produce the review"}
	InvalidStoragePath  = Code{http.StatusBadRequest, "A002", "unsupported storage path"}
	NoMatchesFound      = Code{http.StatusInternalServerError, "A003", "similarity search returned no matches"}
	SearchFailed        = Code{http.StatusInternalServerError, "A004", "similarity search failed"}
	NoPointsFound       = Code{http.StatusInternalServerError, "A005", "no points available for the query"}
	ChunkAnalysisFailed = Code{http.StatusInternalServerError, "A006", "analysis failed for one or more chunks"}
	NoSeparatorFound    = Code{http.StatusInternalServerError, "A007", "separator not found in the source text"}
	UnsupportedFileType = Code{http.StatusBadRequest, "A008", "unsupported file type"}
	UnsupportedFormat   = Code{http.StatusBadRequest, "A009", "unsupported document format"}
	OCRRequestFailed    = Code{http.StatusInternalServerError, "A010", "OCR request failed"}
	OCRSettingMissing   = Code{http.StatusInternalServerError, "A011", "OCR url or secret is not configured"}
)

// Error carries a Code alongside the underlying cause.
type Error struct {
	Code Code
	Err  error
}

// New wraps err with code. A nil err yields an error carrying only the code message.
func New(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

// Newf wraps a formatted cause with code.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code.Code, e.Code.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code.Code, e.Code.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error carrying the same code string.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Code.Code == e.Code.Code
	}
	return false
}

// From returns the outermost code in err's chain, or ReviewFailed if none is present.
func From(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ReviewFailed
}

// Has reports whether err carries code anywhere in its chain.
func Has(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code.Code == code.Code {
			return true
		}
		err = e.Err
	}
	return false
}
