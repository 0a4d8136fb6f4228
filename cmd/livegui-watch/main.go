// Command livegui-watch is a terminal client for a livegui server. It shows
// what the server announces and pushes, and sends raw protocol lines.
package main

import (
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"github.com/livefir/livegui"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	url := flag.String("url", "", "websocket URL, derived from the config when empty")
	flag.Parse()

	if *url == "" {
		config, err := livegui.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		*url = livegui.SocketURL(config)
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to %s: %v\n", *url, err)
		os.Exit(1)
	}
	defer conn.Close()

	var mu sync.Mutex
	send := func(line string) error {
		mu.Lock()
		defer mu.Unlock()
		return conn.WriteMessage(websocket.TextMessage, []byte(line))
	}

	p := tea.NewProgram(newModel(*url, send), tea.WithAltScreen())
	go readLoop(conn, p)

	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func readLoop(conn *websocket.Conn, p *tea.Program) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			p.Send(closedMsg{err: err})
			return
		}
		p.Send(serverMsg{raw: string(data), at: time.Now()})
	}
}
