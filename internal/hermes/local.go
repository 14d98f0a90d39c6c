package hermes

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
)

var ErrClientClosed = errors.New("hermes: client closed")

type localSub struct {
	pattern []string
	handler func(string, []byte)
}

// LocalClient is an in-process Client with NATS subject semantics: "*"
// matches one token and a trailing ">" matches the rest. Each delivery runs
// on its own goroutine, so handlers may publish.
type LocalClient struct {
	mu     sync.RWMutex
	subs   []localSub
	closed bool
	wg     sync.WaitGroup
}

func NewLocalClient() *LocalClient {
	return &LocalClient{}
}

func (c *LocalClient) Publish(subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	tokens := splitSubject(subject)

	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrClientClosed
	}
	var targets []func(string, []byte)
	for _, s := range c.subs {
		if matchSubject(s.pattern, tokens) {
			targets = append(targets, s.handler)
		}
	}
	c.wg.Add(len(targets))
	c.mu.RUnlock()

	for _, h := range targets {
		go func(h func(string, []byte)) {
			defer c.wg.Done()
			h(subject, payload)
		}(h)
	}
	return nil
}

func (c *LocalClient) Subscribe(subject string, handler func(string, []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	c.subs = append(c.subs, localSub{pattern: splitSubject(subject), handler: handler})
	return nil
}

// Close stops accepting publishes and waits for in-flight deliveries.
func (c *LocalClient) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.subs = nil
	c.mu.Unlock()
	c.wg.Wait()
}

func splitSubject(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ".")
}

func matchSubject(pattern, subject []string) bool {
	for i, p := range pattern {
		if p == ">" {
			return i == len(pattern)-1 && len(subject) > i
		}
		if i >= len(subject) {
			return false
		}
		if p != "*" && p != subject[i] {
			return false
		}
	}
	return len(pattern) == len(subject)
}
