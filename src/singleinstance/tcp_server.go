package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"screen-ocr-hotkey/src/messages"
)

// Server owns the TCP endpoint and turns CAPTURE requests into events.
type Server struct {
	out messages.Poster

	mu   sync.Mutex
	lis  net.Listener
	port int
	done chan struct{}
}

func NewServer(out messages.Poster) *Server { return &Server{out: out} }

// Start binds ONLY the start port of the configured range. If occupied, fail.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis != nil {
		return nil
	}
	start, _ := getPortRange()
	addr := fmt.Sprintf("%s:%d", residentHost, start)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("singleinstance: failed to bind %s: %v", addr, err)
		return err
	}
	s.lis = lis
	s.port = start
	s.done = make(chan struct{})
	log.Printf("singleinstance: listening on %s", addr)
	go s.acceptLoop(ctx, lis, s.done)
	return nil
}

// Port returns the bound port (0 if not started).
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

func (s *Server) acceptLoop(ctx context.Context, lis net.Listener, done chan struct{}) {
	defer close(done)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = lis.Close()
		case <-stop:
		}
	}()
	for {
		c, err := lis.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.Printf("singleinstance: accept: %v", err)
			}
			return
		}
		s.handle(c)
	}
}

func (s *Server) handle(c net.Conn) {
	defer c.Close()
	remote := c.RemoteAddr().String()
	_ = c.SetDeadline(time.Now().Add(requestTimeout))

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		log.Printf("singleinstance: read from %s: %v", remote, err)
		return
	}
	bw := bufio.NewWriter(c)
	switch line {
	case pingRequest:
		log.Printf("singleinstance: PING from %s -> PONG", remote)
		_, _ = bw.WriteString(pongResponse)
	case captureRequest:
		log.Printf("singleinstance: CAPTURE from %s", remote)
		s.out.Post(messages.Capture{Source: captureSource})
		_, _ = bw.WriteString(okResponse)
	default:
		log.Printf("singleinstance: unknown request %q from %s", line, remote)
		_, _ = bw.WriteString(errorResponse)
	}
	_ = bw.Flush()
}

// Close releases ownership and stops accepting clients.
func (s *Server) Close() error {
	s.mu.Lock()
	lis, done := s.lis, s.done
	s.lis = nil
	s.port = 0
	s.mu.Unlock()
	if lis == nil {
		return nil
	}
	err := lis.Close()
	<-done
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
