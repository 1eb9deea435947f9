package dispatcher

import (
	"bytes"
	"encoding/json"
)

// request is an incoming JSON-RPC 2.0 message. ID is a raw message so both
// numeric and string ids round-trip unchanged; a nil ID marks a
// notification, which produces no response (spec §4.1).
type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	ID      json.RawMessage `json:"id,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// response is the outgoing JSON-RPC 2.0 message. Exactly one of Result or
// Error is populated, never both (spec §4.1).
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func resultResponse(id json.RawMessage, result any) response {
	return response{JSONRPC: "2.0", ID: id, Result: result}
}

func errorResponse(id json.RawMessage, code int, message string) response {
	return response{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message}}
}

// toolCallParams is the positional-ish params shape for tools/call: a tool
// name plus an arguments object whose string-valued members become the
// context analyser's positional parameters (spec §4.4).
type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// dependencyPair is one (source, target) namespace pair an arguments
// object may carry under "dependencies", feeding the Layered composition
// strategy's violation detection (spec §4.6) with the caller's
// code-analysis dependencies.
type dependencyPair struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type toolCallDependencies struct {
	Dependencies []dependencyPair `json:"dependencies"`
}

// stringArguments extracts the string-valued members of a JSON object, in
// the object's encoded order. encoding/json's map iteration order is
// randomized per run, which would otherwise make triggerctx.FromToolCall's
// "first string parameter is the file path" rule and keyword ordering vary
// between identical runs (violating the Determinism testable property), so
// this walks the raw token stream instead of unmarshalling into a map.
func stringArguments(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return nil
	}
	var out []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return out
		}
		if _, ok := keyTok.(string); !ok {
			return out
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return out
		}
		if s, ok := value.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// dependencyArguments extracts the "dependencies" member of an arguments
// object, if present. Array order is preserved by encoding/json regardless
// of the map nondeterminism stringArguments works around.
func dependencyArguments(raw json.RawMessage) []dependencyPair {
	if len(raw) == 0 {
		return nil
	}
	var args toolCallDependencies
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil
	}
	return args.Dependencies
}
