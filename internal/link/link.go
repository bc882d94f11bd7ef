// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package link reads newline-delimited packets from the face-tracking
// peripheral and hands them to a single line handler.
package link

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Opener opens the underlying byte stream (serial port, mock peripheral).
type Opener func() (io.ReadWriteCloser, error)

// Config controls a Link.
type Config struct {
	Name           string
	Open           Opener
	ReconnectDelay time.Duration
}

// Link is a line-oriented connection to the peripheral.
//
// Lines are read on one goroutine. For each line the registered handler
// runs to completion before the next read, and the handler fetches the
// line with ReadUntil. Lines that arrive while no handler is registered
// are dropped.
type Link struct {
	cfg Config

	started atomic.Bool
	ready   atomic.Bool
	closed  atomic.Bool

	mu       sync.Mutex
	delim    byte
	onLine   func()
	onStatus func(connected bool)
	pending  string
	lines    uint64

	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a stopped link.
func New(cfg Config) (*Link, error) {
	if cfg.Open == nil {
		return nil, fmt.Errorf("link opener is required")
	}
	if cfg.Name == "" {
		cfg.Name = "link"
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = time.Second
	}
	return &Link{cfg: cfg, delim: '\n', done: make(chan struct{})}, nil
}

// OnLineReceived registers fn to run for each line terminated by delim.
func (l *Link) OnLineReceived(delim byte, fn func()) {
	l.mu.Lock()
	l.delim = delim
	l.onLine = fn
	l.mu.Unlock()
}

// OnStatus registers fn to run on every connect and disconnect.
func (l *Link) OnStatus(fn func(connected bool)) {
	l.mu.Lock()
	l.onStatus = fn
	l.mu.Unlock()
}

// ReadUntil returns the most recently buffered line without its
// delimiter and clears the buffer. Lines are always split on the
// delimiter given to OnLineReceived.
func (l *Link) ReadUntil(_ byte) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	line := l.pending
	l.pending = ""
	return line
}

// Ready reports whether the link has been started and not closed.
func (l *Link) Ready() bool {
	return l.started.Load() && !l.closed.Load()
}

// Connected reports whether the byte stream is currently open.
func (l *Link) Connected() bool {
	return l.ready.Load()
}

// Lines returns the number of lines received so far.
func (l *Link) Lines() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lines
}

// Start opens the stream once and begins reading in the background.
// It fails if the first open fails; later disconnects are retried
// every ReconnectDelay until ctx is done or Close is called.
func (l *Link) Start(ctx context.Context) error {
	if l.closed.Load() {
		return fmt.Errorf("%s: link is closed", l.cfg.Name)
	}
	if !l.started.CompareAndSwap(false, true) {
		return nil
	}

	rwc, err := l.cfg.Open()
	if err != nil {
		l.started.Store(false)
		return fmt.Errorf("%s: open: %w", l.cfg.Name, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	l.mu.Lock()
	if l.closed.Load() {
		l.mu.Unlock()
		cancel()
		_ = rwc.Close()
		return fmt.Errorf("%s: link is closed", l.cfg.Name)
	}
	l.cancel = cancel
	l.mu.Unlock()

	go l.run(ctx, rwc)
	return nil
}

// Close stops the read loop and waits until the stream is closed.
func (l *Link) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()

	if cancel == nil {
		close(l.done)
		return nil
	}
	cancel()
	<-l.done
	return nil
}

// Done is closed when the read loop has exited.
func (l *Link) Done() <-chan struct{} {
	return l.done
}

func (l *Link) run(ctx context.Context, rwc io.ReadWriteCloser) {
	defer close(l.done)

	for {
		l.setConnected(true)
		err := l.serve(ctx, rwc)
		l.setConnected(false)

		if ctx.Err() != nil || l.closed.Load() {
			return
		}
		log.Printf("%s: read error: %v (reconnecting in %s)", l.cfg.Name, err, l.cfg.ReconnectDelay)

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(l.cfg.ReconnectDelay):
			}
			rwc, err = l.cfg.Open()
			if err == nil {
				break
			}
			log.Printf("%s: reopen failed: %v", l.cfg.Name, err)
		}
	}
}

// serve reads lines from rwc until it fails or ctx is done, and always
// closes rwc. A blocked read only returns once the stream is closed, so
// a watcher closes it when ctx is cancelled.
func (l *Link) serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	stop := make(chan struct{})
	watcher := make(chan struct{})
	go func() {
		defer close(watcher)
		select {
		case <-ctx.Done():
		case <-stop:
		}
		_ = rwc.Close()
	}()

	err := l.readLines(ctx, rwc)
	close(stop)
	<-watcher
	return err
}

// setConnected fires the status callback when the state changes.
func (l *Link) setConnected(connected bool) {
	l.mu.Lock()
	fn := l.onStatus
	l.mu.Unlock()

	if l.ready.Swap(connected) == connected {
		return
	}
	if connected {
		log.Printf("%s: connected", l.cfg.Name)
	} else {
		log.Printf("%s: disconnected", l.cfg.Name)
	}
	if fn != nil {
		fn(connected)
	}
}

func (l *Link) readLines(ctx context.Context, r io.Reader) error {
	l.mu.Lock()
	delim := l.delim
	l.mu.Unlock()

	br := bufio.NewReader(r)
	for {
		raw, err := br.ReadString(delim)
		if err != nil {
			// a partial line at EOF is not a packet
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := strings.TrimSuffix(raw, string(delim))
		line = strings.TrimSuffix(line, "\r")

		l.mu.Lock()
		l.pending = line
		l.lines++
		fn := l.onLine
		l.mu.Unlock()

		if fn != nil {
			fn()
		}
	}
}
