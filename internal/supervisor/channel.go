package supervisor

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/runbookgo/internal/ctxlog"
	"github.com/vk/runbookgo/internal/diagnostics"
)

// Context carries the supervision policy for one run.
type Context struct {
	// Supervised indicates a human is available to answer action items. In
	// unsupervised (batch) mode, auto-approvable requests are answered by
	// the engine and everything else fails with a diagnostic instead of
	// hanging forever.
	Supervised bool
}

// Channel is the push/pull queue mediating action items. Requests are
// published to the supervising surface; responses are routed back to the
// goroutine suspended on the matching (construct, key) pair.
type Channel struct {
	requests chan *ActionItemRequest

	mu      sync.Mutex
	waiters map[string]chan *ActionItemResponse
	closed  bool
}

// NewChannel returns a channel with enough request buffering that
// publishing never blocks the scheduler on a slow supervisor surface.
func NewChannel() *Channel {
	return &Channel{
		requests: make(chan *ActionItemRequest, 128),
		waiters:  make(map[string]chan *ActionItemResponse),
	}
}

// Requests exposes the published request stream to the supervisor surface.
func (c *Channel) Requests() <-chan *ActionItemRequest {
	return c.requests
}

// Close releases the request stream. Pending waiters are left to their
// context cancellation.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.requests)
	}
}

// Respond routes a response to the goroutine waiting on it. Responses with
// no matching waiter are dropped with an error, which covers double-answers
// from a racing UI.
func (c *Channel) Respond(resp *ActionItemResponse) error {
	key := routingKey(resp.ConstructDid, resp.Key)
	c.mu.Lock()
	waiter, ok := c.waiters[key]
	if ok {
		delete(c.waiters, key)
	}
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("no pending action item for %s", key)
	}
	waiter <- resp
	return nil
}

// publish registers a waiter and pushes the request to the supervisor
// surface.
func (c *Channel) publish(req *ActionItemRequest) (<-chan *ActionItemResponse, error) {
	key := routingKey(req.ConstructDid, req.Key)
	waiter := make(chan *ActionItemResponse, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("supervision channel closed")
	}
	if _, exists := c.waiters[key]; exists {
		c.mu.Unlock()
		return nil, fmt.Errorf("action item %s already pending", key)
	}
	c.waiters[key] = waiter
	c.mu.Unlock()

	req.Status = StatusInProgress
	c.requests <- req
	return waiter, nil
}

// Dispatch drives a batch of action items to terminal status and collects
// the responses. In unsupervised mode auto-approvable requests are answered
// immediately; a request that demands interactive approval fails the batch.
// A response with Accepted=false aborts the owning construct.
func (c *Channel) Dispatch(ctx context.Context, sup Context, reqs []*ActionItemRequest) ([]*ActionItemResponse, *diagnostics.Diagnostic) {
	logger := ctxlog.FromContext(ctx)
	responses := make([]*ActionItemResponse, 0, len(reqs))

	for _, req := range reqs {
		if !sup.Supervised {
			if !req.AutoApprovable {
				req.Status = StatusError
				req.Diagnostic = diagnostics.Errorf("action item %q requires supervision, but the run is unsupervised", req.Title)
				return nil, req.Diagnostic
			}
			logger.Debug("Auto-approving action item.", "title", req.Title, "type", req.Type.String())
			req.Status = StatusSuccess
			responses = append(responses, &ActionItemResponse{
				ConstructDid: req.ConstructDid,
				Key:          req.Key,
				Accepted:     true,
				Payload:      req.Payload,
			})
			continue
		}

		waiter, err := c.publish(req)
		if err != nil {
			return nil, diagnostics.Errorf("failed to publish action item %q: %s", req.Title, err)
		}
		logger.Debug("Awaiting action item response.", "title", req.Title, "key", req.Key)

		select {
		case <-ctx.Done():
			return nil, diagnostics.Errorf("run canceled while awaiting action item %q", req.Title)
		case resp := <-waiter:
			if !resp.Accepted {
				req.Status = StatusError
				req.Diagnostic = diagnostics.Errorf("action item %q was rejected by the supervisor", req.Title)
				return nil, req.Diagnostic
			}
			req.Status = StatusSuccess
			responses = append(responses, resp)
		}
	}
	return responses, nil
}
