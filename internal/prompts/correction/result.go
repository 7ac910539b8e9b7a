package correction

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackzampolin/lexreview/internal/providers"
)

// Kind tags a Result.
type Kind int

const (
	// Ok means the reply carried every required field with a usable score.
	Ok Kind = iota
	// Malformed means the reply could not be trusted; Raw holds it.
	Malformed
)

func (k Kind) String() string {
	if k == Ok {
		return "ok"
	}
	return "malformed"
}

// Correction is the validated content of an Ok reply.
type Correction struct {
	CorrectedText  string  `json:"correctedText"`
	ProofText      string  `json:"proofText"`
	ViolationScore float64 `json:"violation_score"`
}

// Result is either Ok with a Correction or Malformed with the raw reply.
type Result struct {
	Kind       Kind
	Correction Correction
	Raw        string
	Reason     string
}

// OkResult builds an Ok result.
func OkResult(c Correction) Result {
	return Result{Kind: Ok, Correction: c}
}

// MalformedResult builds a Malformed result.
func MalformedResult(raw, reason string) Result {
	return Result{Kind: Malformed, Raw: raw, Reason: reason}
}

type reply struct {
	CorrectedText  string          `json:"correctedText"`
	ProofText      string          `json:"proofText"`
	ViolationScore json.RawMessage `json:"violation_score"`
}

// Parse turns raw model output into a Result. It never returns an error:
// anything unusable is Malformed.
func Parse(raw string) Result {
	parsed, err := providers.ParseStructuredJSON(raw)
	if err != nil {
		return MalformedResult(raw, err.Error())
	}
	if err := providers.ValidateStructuredJSON(outputSchemaJSON, parsed); err != nil {
		return MalformedResult(raw, err.Error())
	}

	var r reply
	if err := json.Unmarshal(parsed, &r); err != nil {
		return MalformedResult(raw, err.Error())
	}
	score, err := parseScore(r.ViolationScore)
	if err != nil {
		return MalformedResult(raw, err.Error())
	}

	return OkResult(Correction{
		CorrectedText:  strings.TrimSpace(r.CorrectedText),
		ProofText:      strings.TrimSpace(r.ProofText),
		ViolationScore: score,
	})
}

// parseScore accepts "0.913" or 0.913 and requires a value in [0, 1].
func parseScore(raw json.RawMessage) (float64, error) {
	var v float64
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("violation_score %q is not a number", s)
		}
		v = f
	} else if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("violation_score is neither string nor number")
	}
	if v < 0 || v > 1 {
		return 0, fmt.Errorf("violation_score %v out of range", v)
	}
	return v, nil
}
