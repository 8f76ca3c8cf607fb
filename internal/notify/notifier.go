// Package notify is the boundary to the conversational front end. The
// pipeline pushes plain-text status messages keyed by session identifier:
// the deposit address at orchestration start and exactly one message per
// terminal outcome (completed with explorer links, timed out, failed).
package notify

import (
	"context"
	"fmt"
	"strings"
)

// Notifier delivers a plain-text message to the user behind sessionKey.
type Notifier interface {
	Push(ctx context.Context, sessionKey, text string) error
}

// ExplorerLink builds a human-followable transaction link for notifications.
func ExplorerLink(baseURL, txHash string) string {
	return fmt.Sprintf("%s/txn/%s?network=mainnet", strings.TrimRight(baseURL, "/"), txHash)
}

// Nop is a Notifier that drops every message. Used when no front-end
// credentials are configured and in tests.
type Nop struct{}

// Push implements Notifier.
func (Nop) Push(context.Context, string, string) error { return nil }
