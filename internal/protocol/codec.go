package protocol

import (
	"bytes"
	"encoding/json"
)

// recordTerminator ends every record on the wire.
const recordTerminator = '\n'

// MaxRecordSize bounds a single record; tick streams can be long.
const MaxRecordSize = 64 << 20

// EncodeRequest renders a request as one terminated record.
func EncodeRequest(req *Request) ([]byte, error) {
	return encodeRecord(req)
}

// EncodeResponse renders a response as one terminated record.
func EncodeResponse(resp *Response) ([]byte, error) {
	return encodeRecord(resp)
}

func encodeRecord(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encode appends the terminator.
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeRequest parses one record into a request.
func DecodeRequest(line []byte) (*Request, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, &ProtocolError{Reason: "empty request"}
	}
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return nil, &ProtocolError{Reason: "can't parse request", Raw: string(line), Err: err}
	}
	return &req, nil
}

// DecodeResponse parses and validates one record as a response.
func DecodeResponse(line []byte) (*Response, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, &ProtocolError{Reason: "empty response"}
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, &ProtocolError{Reason: "can't parse response", Raw: string(line), Err: err}
	}
	if err := resp.Validate(); err != nil {
		if pe, ok := err.(*ProtocolError); ok {
			pe.Raw = string(line)
		}
		return nil, err
	}
	return &resp, nil
}
