// Package dispatch implements the accept loop, readiness-demux
// dispatcher, and fixed worker pool: accept connections up to
// MaxConnections, poll every online fd for read-readiness on a short
// cycle, hand ready fds to a bounded work queue, and let a fixed pool
// of worker goroutines pull fds from that queue and run them through
// the engine.
package dispatch

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chatty/internal/engine"
	"chatty/internal/netpoll"
	"chatty/internal/queue"
	"chatty/internal/server"
	"chatty/internal/wire"
)

// pollInterval is the dispatcher's readiness-demux cycle length: a
// short poll timeout on the order of a hundred microseconds, not a
// blocking indefinite wait.
const pollInterval = 150 * time.Microsecond

// Dispatcher owns the listening socket, the live readiness set, the
// work queue, and the worker pool that drains it.
type Dispatcher struct {
	listener net.Listener
	engine   *engine.Engine
	guard    *server.AdmissionGuard
	q        *queue.Queue
	poller   *netpoll.Poller
	logger   zerolog.Logger

	mu      sync.Mutex
	readyFd map[int]net.Conn // every fd currently owned by the dispatcher
	fds     []int            // readyFd's keys, rebuilt each poll cycle

	workers   int
	wg        sync.WaitGroup
	acceptWg  sync.WaitGroup
}

// New creates a Dispatcher listening on the given Unix domain socket
// path. workers is the fixed worker-pool size and queueCap bounds the
// work queue, since a ready fd can wait in the queue for at most one
// slot per connection.
func New(unixPath string, eng *engine.Engine, guard *server.AdmissionGuard, workers, queueCap int, logger zerolog.Logger) (*Dispatcher, error) {
	ln, err := net.Listen("unix", unixPath)
	if err != nil {
		return nil, err
	}
	return &Dispatcher{
		listener: ln,
		engine:   eng,
		guard:    guard,
		q:        queue.New(queueCap),
		poller:   netpoll.New(),
		logger:   logger,
		readyFd:  make(map[int]net.Conn),
		workers:  workers,
	}, nil
}

// Addr reports the listener's address, mainly useful in tests that
// bind to an auto-chosen path.
func (d *Dispatcher) Addr() net.Addr { return d.listener.Addr() }

// Run starts the accept loop, the readiness-demux loop, and the
// worker pool, and blocks until ctx is cancelled. It always returns
// after a clean shutdown of every goroutine it started.
func (d *Dispatcher) Run(ctx context.Context) {
	d.wg.Add(d.workers)
	for i := 0; i < d.workers; i++ {
		go d.worker(ctx)
	}

	d.acceptWg.Add(1)
	go d.acceptLoop(ctx)

	d.wg.Add(1)
	go d.demuxLoop(ctx)

	<-ctx.Done()
	d.listener.Close()
	d.acceptWg.Wait()
	d.q.Close()
	d.wg.Wait()
}

// acceptLoop accepts new connections until ctx is cancelled or the
// listener is closed, applying admission control before registering
// each fd with the engine's connection tracker and readiness set.
func (d *Dispatcher) acceptLoop(ctx context.Context) {
	defer d.acceptWg.Done()

	for {
		conn, err := d.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				d.logger.Error().Err(err).Msg("accept failed")
				return
			}
		}

		if !d.guard.Allow(d.engine.OnlineCount()) {
			conn.Close()
			continue
		}

		fd := connFD(conn)
		d.logger.Debug().Int("fd", fd).Msg("accepted connection")
		d.engine.Conns().Put(fd, conn)
		d.mu.Lock()
		d.readyFd[fd] = conn
		d.mu.Unlock()
	}
}

// demuxLoop is the dispatcher's core cycle: copy the readiness set
// under the mutex, poll it with a short timeout, and push every ready
// fd onto the work queue. An fd is always in exactly one of: the
// readiness set, the work queue, or a worker's hands — never two at
// once — so it is cleared from readyFd before being enqueued, and only
// put back (by the worker, on OK) once it is safe to poll again. A
// full queue puts the fd straight back into readyFd so it is picked up
// again on the next poll.
func (d *Dispatcher) demuxLoop(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		d.mu.Lock()
		d.fds = d.fds[:0]
		for fd := range d.readyFd {
			d.fds = append(d.fds, fd)
		}
		fds := append([]int(nil), d.fds...)
		d.mu.Unlock()

		ready, err := d.poller.Wait(fds, pollInterval)
		if err != nil {
			d.logger.Error().Err(err).Msg("poll failed")
			continue
		}
		for _, fd := range ready {
			d.mu.Lock()
			conn, known := d.readyFd[fd]
			if known {
				delete(d.readyFd, fd)
			}
			d.mu.Unlock()
			if !known {
				continue
			}

			if !d.q.Enqueue(fd) {
				d.logger.Warn().Int("fd", fd).Msg("work queue full, fd deferred to next cycle")
				d.mu.Lock()
				d.readyFd[fd] = conn
				d.mu.Unlock()
			}
		}
	}
}

// worker pulls fds from the work queue and runs each through the
// engine, re-inserting fds that come back OK into the readiness set
// and closing fds that come back Failed. A dequeued fd is never also
// in readyFd (demuxLoop cleared it before enqueuing), so the
// connection is looked up through the engine's connection tracker
// instead, which stays populated for the fd's whole lifetime.
func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()

	for {
		fd, ok := d.q.Dequeue()
		if !ok || fd == queue.Shutdown {
			return
		}

		w, known := d.engine.Conns().Get(fd)
		conn, isConn := w.(net.Conn)
		if !known || !isConn {
			continue
		}

		msg, err := wire.ReadMessage(conn)
		if err != nil {
			d.closeFd(fd, conn)
			continue
		}

		if d.engine.Execute(conn, fd, msg) == engine.Failed {
			d.closeFd(fd, conn)
			continue
		}

		d.mu.Lock()
		d.readyFd[fd] = conn
		d.mu.Unlock()
	}
}

// closeFd tears down fd's connection and forgets it everywhere: the
// dispatcher's readiness set, the engine's connection tracker, the
// registry (implicit disconnect), and the per-fd send lock.
func (d *Dispatcher) closeFd(fd int, conn net.Conn) {
	d.mu.Lock()
	delete(d.readyFd, fd)
	d.mu.Unlock()

	d.engine.Disconnected(fd)
	conn.Close()
}

// connFD extracts the raw file descriptor from a net.Conn for use as
// the queue/registry key. Only *net.UnixConn is supported; the
// dispatcher never hands out any other connection type.
func connFD(conn net.Conn) int {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return -1
	}
	sc, err := uc.SyscallConn()
	if err != nil {
		return -1
	}
	var fd int
	sc.Control(func(rawFd uintptr) {
		fd = int(rawFd)
	})
	return fd
}
