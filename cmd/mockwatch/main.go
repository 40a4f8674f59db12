// Command mockwatch is a development aid: it polls a mocksocket.Service's
// registry and renders each connected surrogate live, so a test author
// can watch mock socket traffic while iterating on a failing test.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"revivio/mocksocket"
)

func main() {
	bufferSize := flag.Int("buffer", 4096, "pipe buffer size for demo connections")
	seed := flag.Int("seed-connections", 0, "connect this many demo sockets on startup")
	flag.Parse()

	svc := mocksocket.NewService(*bufferSize)
	for i := 0; i < *seed; i++ {
		svc.ConnectSocket(fmt.Sprintf("demo-%d", i), 10000+i)
	}

	p := tea.NewProgram(newModel(svc))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "mockwatch: %v\n", err)
		os.Exit(1)
	}
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
