package engine

import (
	"io"
	"sync"
)

// Conns tracks the writable side of every currently-owned client fd so
// a handler servicing one fd can deliver a message directly to another
// fd when its recipient is online. The dispatcher registers a
// connection when it accepts it and removes it when it closes the
// connection; an explicit DISCONNECT or UNREGISTER leaves the socket
// open and its entry in place.
type Conns struct {
	mu   sync.Mutex
	byFd map[int]io.Writer
}

// NewConns creates an empty Conns tracker.
func NewConns() *Conns {
	return &Conns{byFd: make(map[int]io.Writer)}
}

// Put registers fd's writable connection.
func (c *Conns) Put(fd int, w io.Writer) {
	c.mu.Lock()
	c.byFd[fd] = w
	c.mu.Unlock()
}

// Remove forgets fd, e.g. once it has been closed.
func (c *Conns) Remove(fd int) {
	c.mu.Lock()
	delete(c.byFd, fd)
	c.mu.Unlock()
}

// Get returns fd's writable connection, if any.
func (c *Conns) Get(fd int) (io.Writer, bool) {
	c.mu.Lock()
	w, ok := c.byFd[fd]
	c.mu.Unlock()
	return w, ok
}
