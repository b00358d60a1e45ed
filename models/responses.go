package models

// RelayResponse is the normalized success envelope returned by the relay.
type RelayResponse struct {
	Response string `json:"response"`
}

// RelayError is the structured error envelope. Every relay code path returns
// one of these; upstream bodies and internal messages are flattened to a
// single string, never a stack trace.
type RelayError struct {
	Error string `json:"error"`
}
