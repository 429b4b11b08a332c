package oracle

import (
	"context"

	"github.com/GoSim-25-26J-441/simtune/internal/protocol"
)

// Bridge is a protocol.Transport that calls a handler in-process.
type Bridge struct {
	Handler protocol.Handler
}

// NewBridge creates a bridge to h.
func NewBridge(h protocol.Handler) *Bridge {
	return &Bridge{Handler: h}
}

// Send hands req to the handler and checks the response shape as the network
// client would.
func (b *Bridge) Send(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	resp := b.Handler.Handle(ctx, req)
	if resp == nil {
		return nil, &protocol.ProtocolError{Reason: "handler returned no response"}
	}
	if err := resp.Validate(); err != nil {
		return nil, err
	}
	return resp, nil
}
