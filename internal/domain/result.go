package domain

// DefaultTypeTag names the downstream sniffer component.
const DefaultTypeTag = "sni5gect"

// Result is the transmissible payload of an accepted configuration.
// Params: component id, fixed type tag, and serialized YAML document.
// Returns: payload sent to the controller.
type Result struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	ConfigStr string `json:"config_str"`
}

// Response is the outcome of one validation call.
// Params: OK flag with either Result or the full ordered error list.
// Returns: envelope shared by HTTP, NATS, and CLI front doors.
type Response struct {
	OK     bool     `json:"ok"`
	Result *Result  `json:"result,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// Reject builds failed response.
// Params: accumulated error messages.
// Returns: response without any partial document.
func Reject(errs []string) Response {
	out := make([]string, len(errs))
	copy(out, errs)
	return Response{OK: false, Errors: out}
}

// Accept builds successful response.
func Accept(result Result) Response {
	return Response{OK: true, Result: &result}
}
