// Package schema validates untrusted backup report payloads submitted
// by agents. Validation collects every offending field rather than
// stopping at the first, so an agent operator sees all problems at once.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"lookout/internal/models"
)

// FieldError describes a single invalid or missing payload field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is the set of field errors found in one payload.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "invalid report: " + strings.Join(parts, "; ")
}

// ReportPayload is a fully validated incoming backup report.
// Optional fields default to zero values, never nil placeholders.
type ReportPayload struct {
	Hostname     string
	Status       string
	Time         time.Time
	IP           string
	DeviceType   string
	Size         string
	SizeBytes    int64
	Duration     int64
	JobName      string
	ErrorMessage string
	FileCount    int64

	SourcePath       string
	DestinationPath  string
	CompressionRatio int64
	ChangedFiles     int64
	DeletedFiles     int64
	AddedFiles       int64
	ModifiedFiles    int64
	ExaminingFiles   int64

	WasVerified        bool
	VerificationResult string
	VerificationErrors string
	LastVerification   *time.Time

	Metadata map[string]any
	APIKey   string
}

// ParseReport validates a raw JSON payload. Unknown fields are ignored.
// On failure it returns every field error found and no payload.
func ParseReport(data []byte) (*ReportPayload, ValidationErrors) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, ValidationErrors{{Field: "body", Message: "not a JSON object"}}
	}

	p := &ReportPayload{Metadata: map[string]any{}}
	var errs ValidationErrors
	fail := func(field, msg string) {
		errs = append(errs, FieldError{Field: field, Message: msg})
	}

	// Required fields.
	if hostname, err := stringField(raw, "hostname"); err != nil {
		fail("hostname", err.Error())
	} else if p.Hostname = strings.TrimSpace(hostname); p.Hostname == "" {
		fail("hostname", "is required")
	}

	if status, err := stringField(raw, "status"); err != nil {
		fail("status", err.Error())
	} else if !models.ValidStatus(status) {
		fail("status", `must be one of "success", "warning", "failed"`)
	} else {
		p.Status = status
	}

	if t, ok, err := timeField(raw, "time"); err != nil {
		fail("time", err.Error())
	} else if !ok {
		fail("time", "is required")
	} else {
		p.Time = t
	}

	// Optional strings.
	optString(raw, "ip", &p.IP, fail)
	optString(raw, "deviceType", &p.DeviceType, fail)
	optString(raw, "size", &p.Size, fail)
	optString(raw, "jobName", &p.JobName, fail)
	optString(raw, "errorMessage", &p.ErrorMessage, fail)
	optString(raw, "sourcePath", &p.SourcePath, fail)
	optString(raw, "destinationPath", &p.DestinationPath, fail)
	optString(raw, "verificationErrors", &p.VerificationErrors, fail)
	optString(raw, "apiKey", &p.APIKey, fail)

	if vr, ok := raw["verificationResult"]; ok {
		var s string
		if err := json.Unmarshal(vr, &s); err != nil {
			fail("verificationResult", "must be a string")
		} else if !models.ValidStatus(s) {
			fail("verificationResult", `must be one of "success", "warning", "failed"`)
		} else {
			p.VerificationResult = s
		}
	}

	// Optional numerics. Non-numeric input is an error, never a silent zero.
	optInt(raw, "sizeBytes", &p.SizeBytes, fail)
	optInt(raw, "duration", &p.Duration, fail)
	optInt(raw, "fileCount", &p.FileCount, fail)
	optInt(raw, "compressionRatio", &p.CompressionRatio, fail)
	optInt(raw, "changedFiles", &p.ChangedFiles, fail)
	optInt(raw, "deletedFiles", &p.DeletedFiles, fail)
	optInt(raw, "addedFiles", &p.AddedFiles, fail)
	optInt(raw, "modifiedFiles", &p.ModifiedFiles, fail)
	optInt(raw, "examiningFiles", &p.ExaminingFiles, fail)

	if wv, ok := raw["wasVerified"]; ok {
		if err := json.Unmarshal(wv, &p.WasVerified); err != nil {
			fail("wasVerified", "must be a boolean")
		}
	}

	if lv, ok, err := timeField(raw, "lastVerification"); err != nil {
		fail("lastVerification", err.Error())
	} else if ok {
		p.LastVerification = &lv
	}

	if meta, ok := raw["metadata"]; ok {
		if err := json.Unmarshal(meta, &p.Metadata); err != nil {
			fail("metadata", "must be an object")
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return p, nil
}

func stringField(raw map[string]json.RawMessage, field string) (string, error) {
	val, ok := raw[field]
	if !ok {
		return "", fmt.Errorf("is required")
	}
	var s string
	if err := json.Unmarshal(val, &s); err != nil {
		return "", fmt.Errorf("must be a string")
	}
	return s, nil
}

func optString(raw map[string]json.RawMessage, field string, dst *string, fail func(string, string)) {
	val, ok := raw[field]
	if !ok {
		return
	}
	if err := json.Unmarshal(val, dst); err != nil {
		fail(field, "must be a string")
	}
}

func optInt(raw map[string]json.RawMessage, field string, dst *int64, fail func(string, string)) {
	val, ok := raw[field]
	if !ok {
		return
	}
	var f float64
	if err := json.Unmarshal(val, &f); err != nil {
		fail(field, "must be a number")
		return
	}
	*dst = int64(f)
}

// timeField accepts RFC3339 strings or Unix epoch seconds, matching
// what backup agents actually send.
func timeField(raw map[string]json.RawMessage, field string) (time.Time, bool, error) {
	val, ok := raw[field]
	if !ok {
		return time.Time{}, false, nil
	}

	var s string
	if err := json.Unmarshal(val, &s); err == nil {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.UTC(), true, nil
		}
		if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
			return t.UTC(), true, nil
		}
		return time.Time{}, false, fmt.Errorf("must be an RFC3339 timestamp")
	}

	var epoch float64
	if err := json.Unmarshal(val, &epoch); err == nil {
		return time.Unix(int64(epoch), 0).UTC(), true, nil
	}

	return time.Time{}, false, fmt.Errorf("must be a timestamp string or epoch seconds")
}
