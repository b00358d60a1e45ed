package sessions

import (
	"context"
	"errors"

	"github.com/airelay/airelay/models"
)

// socketRequest is one inbound frame: a single user message.
type socketRequest struct {
	Message string `json:"message"`
}

// RunLoop reads send requests from the socket until the connection closes or
// the context is cancelled, running one full send cycle per frame. Every
// cycle ends with a done frame so the client can re-enable its input.
func (ss *SessionSocket) RunLoop(ctx context.Context) error {
	for {
		var req socketRequest
		if err := ss.Writer.Conn.ReadJSON(&req); err != nil {
			ss.Logger.Printf("Connection closed: %v", err)
			return err
		}

		if err := ss.handleSend(ctx, req.Message); err != nil {
			return err
		}
	}
}

// handleSend runs one send cycle and reports its outcome to the client.
// Relay failures are already folded into the conversation as error messages;
// only write failures tear the loop down.
func (ss *SessionSocket) handleSend(ctx context.Context, text string) error {
	result, err := ss.Session.Send(ctx, text)

	switch {
	case errors.Is(err, ErrEmptyMessage), errors.Is(err, ErrSendInFlight):
		if writeErr := ss.Writer.WriteError(err.Error()); writeErr != nil {
			return writeErr
		}
		return ss.Writer.WriteDone()
	case err != nil:
		if writeErr := ss.Writer.WriteError(result.Reply); writeErr != nil {
			return writeErr
		}
		return ss.Writer.WriteDone()
	}

	if writeErr := ss.Writer.WriteResponse(models.RelayResponse{Response: result.Reply}); writeErr != nil {
		return writeErr
	}
	return ss.Writer.WriteDone()
}
