package pairing

import (
	"context"
	"time"

	"air-analyzer/pkg/logger"
)

// CredentialSink stores credentials received from the app
type CredentialSink interface {
	StoreCredentials(username, password string) error
}

// CredentialSinkFunc adapts a function to CredentialSink
type CredentialSinkFunc func(username, password string) error

func (f CredentialSinkFunc) StoreCredentials(username, password string) error {
	return f(username, password)
}

// WaitForCredentials polls the socket until the app sends a credentials
// request, hands the credentials to sink and returns. The socket stays open
// with the client attached so the caller can reply.
func WaitForCredentials(ctx context.Context, socket *Socket, port int, poll time.Duration, sink CredentialSink) error {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		if !socket.IsListening() {
			if err := socket.Begin(port); err != nil {
				logger.LogDebug("📡 Pairing socket not ready: %v", err)
			}
		}
		socket.AttachClient()

		if socket.Listen() == RequestCredentials {
			username, password, err := socket.Credentials()
			if err == nil {
				if err := sink.StoreCredentials(username, password); err != nil {
					return err
				}
				logger.LogInfo("🔑 Credentials received for '%s'", username)
				return nil
			}
			logger.LogWarn("⚠️ %v", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
