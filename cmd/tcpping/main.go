// Command tcpping is a minimal ping/pong service: it exists to show that
// the same handler function drives a real net.Listener connection and a
// mocksocket.Facade identically, proving the mock has full interface
// parity with a real socket.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"revivio/mocksocket"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:9999", "address to listen on")
	demo := flag.Bool("demo", false, "run a single round against a mock socket instead of listening")
	flag.Parse()

	if *demo {
		runDemo()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("interrupt received, shutting down")
		cancel()
	}()

	if err := serve(ctx, *addr); err != nil {
		fmt.Fprintf(os.Stderr, "tcpping: %v\n", err)
		os.Exit(1)
	}
}

// serve accepts connections until ctx is cancelled, handling each on its
// own goroutine tracked by an errgroup so shutdown can wait for in-flight
// handlers to finish before returning.
func serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	group, _ := errgroup.WithContext(ctx)

	fmt.Printf("tcpping listening on %s\n", addr)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return group.Wait()
			}
			return fmt.Errorf("accept: %w", err)
		}
		group.Go(func() error {
			defer conn.Close()
			if err := handlePings(conn, conn); err != nil && err != io.EOF {
				return fmt.Errorf("connection %s: %w", conn.RemoteAddr(), err)
			}
			return nil
		})
	}
}

// handlePings reads newline-delimited lines from r and writes "pong" for
// every line it reads, until r reaches EOF or a read/write fails. It is
// deliberately ignorant of whether r/w are backed by a real socket or a
// mocksocket.Facade's streams.
func handlePings(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if _, err := fmt.Fprintln(w, "pong"); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// runDemo drives handlePings against a mock socket instead of a real
// listener: a goroutine plays the server by calling the exact same handler
// used by serve above on the facade's streams, while the main goroutine
// plays the client through the surrogate's test-side streams, writing
// "ping" and reading back "pong".
func runDemo() {
	svc := mocksocket.NewService(256)
	facade := svc.ConnectSocket("demo-client", 0)
	sur, err := svc.GetTheOnlyConnectedSocketMock()
	if err != nil {
		fmt.Fprintf(os.Stderr, "tcpping demo: %v\n", err)
		os.Exit(1)
	}
	defer sur.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = handlePings(facade.InputStream(), facade.OutputStream())
	}()

	fmt.Fprintln(sur.OutputStream, "ping")
	sur.OutputStream.Flush()

	reply, err := bufio.NewReader(sur.InputStream).ReadString('\n')
	if err != nil {
		fmt.Fprintf(os.Stderr, "tcpping demo: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("received: %q\n", reply)

	facade.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
	}
}
