package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/docopt/docopt-go"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-client/internal/config"
	"github.com/fathima-sithara/chat-client/internal/engine"
	"github.com/fathima-sithara/chat-client/internal/session"
	"github.com/fathima-sithara/chat-client/internal/transport"
)

const usage = `Terminal chat client.

Usage:
  chat-client [--url=<url>] [--config=<path>] [--session=<path>]
  chat-client -h | --help

Options:
  --url=<url>       Server websocket url (overrides config).
  --config=<path>   Optional YAML config file.
  --session=<path>  Session flag file (overrides config).
  -h --help         Show this help.`

func main() {
	_ = godotenv.Load()

	args, err := docopt.ParseDoc(usage)
	if err != nil {
		log.Fatalf("parse args: %v", err)
	}
	configPath, _ := args.String("--config")

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	if url, err := args.String("--url"); err == nil && url != "" {
		cfg.Server.URL = url
	}
	if path, err := args.String("--session"); err == nil && path != "" {
		cfg.Session.FlagPath = path
	}

	logger, err := newLogger(cfg.LogDev)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	sugar := logger.Sugar()

	flag := session.NewFileFlag(cfg.Session.FlagPath)
	if flag.Get() {
		fmt.Println("previous session was logged in; log in again to continue")
	}

	client, err := transport.Dial(context.Background(), cfg.Server.URL, transport.Settings{
		HandshakeTimeout: cfg.HandshakeTimeout,
		WriteTimeout:     cfg.WriteTimeout,
		ReadTimeout:      cfg.ReadTimeout,
		PingInterval:     cfg.PingInterval,
		SendBuffer:       cfg.WS.SendBuffer,
	}, sugar)
	if err != nil {
		sugar.Fatalw("connect failed", "url", cfg.Server.URL, "err", err)
	}
	defer func() { _ = client.Close() }()

	eng := engine.New(client, flag, sugar)
	fmt.Printf("connected to %s, type /help for commands\n", cfg.Server.URL)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	// Single event loop: transport frames and user input are handled on
	// one goroutine, so nothing else ever mutates session state.
	for {
		select {
		case data, ok := <-client.Frames():
			if !ok {
				fmt.Println("connection lost")
				return
			}
			render(eng, eng.HandleInbound(data))
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := command(eng, sugar, line); quit {
				return
			}
		}
	}
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// command parses one input line and drives the matching engine entry
// point. Returns true when the client should exit.
func command(eng *engine.Engine, log *zap.SugaredLogger, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	var err error
	switch fields[0] {
	case "/help":
		fmt.Println(`commands:
  /login <user> <password>   authenticate
  /logout                    log out
  /users                     list known users
  /open <login>              open a dialog
  /close                     leave the dialog
  /send <text>               message the open dialog
  /read                      mark the open dialog read
  /edit <id> <text>          edit one of your messages
  /delete <id>               delete one of your messages
  /quit                      exit`)
	case "/login":
		if len(fields) != 3 {
			fmt.Println("usage: /login <user> <password>")
			return false
		}
		err = eng.Login(protocolCredentials(fields[1], fields[2]))
	case "/logout":
		err = eng.Logout()
	case "/users":
		for _, u := range eng.Roster().All() {
			fmt.Printf("  %s %s (%d unread)\n", presenceMark(u.Online), u.Login, eng.History().UnreadCount(u.Login))
		}
	case "/open":
		if len(fields) != 2 {
			fmt.Println("usage: /open <login>")
			return false
		}
		msgs := eng.OpenDialog(fields[1])
		if len(msgs) == 0 {
			fmt.Printf("-- start of your dialog with %s --\n", fields[1])
		}
		for _, m := range msgs {
			printMessage(eng, m)
		}
	case "/close":
		eng.CloseDialog()
	case "/send":
		if len(fields) < 2 {
			fmt.Println("usage: /send <text>")
			return false
		}
		if err = eng.Send(strings.Join(fields[1:], " ")); err == nil {
			err = eng.MarkDialogRead()
		}
	case "/read":
		err = eng.MarkDialogRead()
	case "/edit":
		if len(fields) < 3 {
			fmt.Println("usage: /edit <id> <text>")
			return false
		}
		err = eng.Edit(fields[1], strings.Join(fields[2:], " "))
	case "/delete":
		if len(fields) != 2 {
			fmt.Println("usage: /delete <id>")
			return false
		}
		err = eng.Delete(fields[1])
	case "/quit":
		return true
	default:
		fmt.Println("unknown command, try /help")
	}

	if err != nil {
		log.Warnw("command failed", "command", fields[0], "err", err)
		fmt.Printf("! %v\n", err)
	}
	return false
}
