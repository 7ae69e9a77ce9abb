// Package audit emits structured request/response records around every
// network call, gated by a caller-configurable policy.
package audit

// RecordType distinguishes the two halves of a network call.
type RecordType string

// Record types.
const (
	TypeRequest  RecordType = "Request"
	TypeResponse RecordType = "Response"
)

// Record is one audit entry. Request fields are set on TypeRequest records,
// response fields on TypeResponse records.
type Record struct {
	Name               string              `json:"name"`
	Type               RecordType          `json:"type"`
	TraceID            string              `json:"trace_id,omitempty"`
	EventName          string              `json:"event_name,omitempty"`
	RequestMethod      string              `json:"request_method,omitempty"`
	RequestURL         string              `json:"request_url,omitempty"`
	RequestBody        any                 `json:"request_body,omitempty"`
	ResponseStatusCode int                 `json:"response_status_code,omitempty"`
	ResponseHeaders    map[string][]string `json:"response_headers,omitempty"`
	ResponseBody       string              `json:"response_body,omitempty"`
}
