package ws

import (
	"context"
	"fmt"
	"time"

	"github.com/mmuslimabdulj/pairchat/internal/domain"
)

// Handshake is the settled-once result of verifying a connection's
// credential. Done is closed after the identity (if any) is attached.
type Handshake struct {
	done     chan struct{}
	identity domain.Identity
	err      error
}

// StartHandshake verifies token in the background. An empty token settles
// immediately as unauthenticated with no error. onSuccess runs before Done
// is closed; onFailure runs after.
func StartHandshake(verifier domain.TokenVerifier, token string, timeout time.Duration,
	onSuccess func(domain.Identity), onFailure func(error)) *Handshake {

	hs := &Handshake{done: make(chan struct{})}
	if token == "" {
		close(hs.done)
		return hs
	}

	go func() {
		id, err := verifySafely(verifier, token, timeout)
		hs.identity, hs.err = id, err
		if err == nil && onSuccess != nil {
			onSuccess(id)
		}
		close(hs.done)
		if err != nil && onFailure != nil {
			onFailure(err)
		}
	}()
	return hs
}

// verifySafely turns a panicking verifier into an error
func verifySafely(verifier domain.TokenVerifier, token string, timeout time.Duration) (id domain.Identity, err error) {
	defer func() {
		if r := recover(); r != nil {
			id, err = domain.Identity{}, fmt.Errorf("verifier panic: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return verifier.Verify(ctx, token)
}

// Done is closed once verification has settled
func (hs *Handshake) Done() <-chan struct{} {
	return hs.done
}

// Wait blocks until verification has settled
func (hs *Handshake) Wait() {
	<-hs.done
}

// Result returns the verified identity and the failure, if any. Only
// meaningful after Done is closed.
func (hs *Handshake) Result() (domain.Identity, error) {
	<-hs.done
	return hs.identity, hs.err
}
