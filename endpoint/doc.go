// File: endpoint/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package endpoint implements the Communicator: one port on a
// protocol.Protocol, with blocking Send/Receive and a role-aware filter
// applied inline in the observer hook before anything reaches the
// component's mailbox. Endpoint plays the role of an Observer itself
// rather than composing a ConditionalObserver/ConcurrentObserver,
// since its filter needs to run before the mailbox Push, not after.

package endpoint
