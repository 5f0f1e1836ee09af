package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"roomchat/internal/config"
	"roomchat/internal/console"
	"roomchat/internal/session"
)

func run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	flags := flag.NewFlagSet("roomchat", flag.ContinueOnError)
	room := flags.String("room", "", "Room to join (overrides ROOMCHAT_ROOM)")
	verbose := flags.Bool("v", false, "Log connection details to stderr")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *room != "" {
		cfg.Room = *room
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	header := http.Header{}
	if cfg.Token != "" {
		header.Set("Authorization", "Token "+cfg.Token)
	}

	printer := console.New(out)
	sess, err := session.New(session.Config{
		Scheme:         cfg.Scheme,
		Host:           cfg.Host,
		PathPrefix:     cfg.PathPrefix,
		Room:           cfg.Room,
		Header:         header,
		ReconnectDelay: cfg.ReconnectDelay,
		RosterPolicy:   cfg.RosterPolicy,
		Logger:         logger,
	}, printer)
	if err != nil {
		return err
	}

	printer.Notice("joining %s", sess.URL())
	if err := sess.Connect(); err != nil {
		return err
	}
	defer func() { _ = sess.Disconnect() }()

	// Reading stdin cannot be interrupted, so it gets its own goroutine
	// that simply dies with the process.
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := handleLine(sess, printer, line); quit {
				return nil
			}
		}
	}
}

// handleLine interprets local commands and sends everything else.
func handleLine(sess *session.Session, printer *console.Printer, line string) bool {
	line = strings.TrimRight(line, "\r\n")

	switch strings.TrimSpace(line) {
	case "":
		return false
	case "/quit":
		return true
	case "/who":
		printer.Roster(sess.Roster())
		return false
	}

	if err := sess.Send(line); err != nil {
		if errors.Is(err, session.ErrNotConnected) {
			printer.Notice("not connected (%s), message dropped", sess.State())
			return false
		}
		printer.Notice("send failed: %v", err)
	}
	return false
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "usage: roomchat [-room name] [-v]")
		log.Fatalf("Application error: %v", err)
	}
}
