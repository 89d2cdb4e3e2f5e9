package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/oldiegoldie/chatrelay/internal/clientfsm"
	"github.com/oldiegoldie/chatrelay/internal/protocol"
	"github.com/oldiegoldie/chatrelay/internal/transport/ws"
)

var (
	flagServerURL string
	flagToken     string
	flagUsername  string
)

const registerTimeout = 10 * time.Second

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Register with the relay and start an interactive session",
	RunE:  runConnect,
}

func init() {
	rootCmd.AddCommand(connectCmd)

	connectCmd.Flags().StringVar(&flagServerURL, "server", "ws://127.0.0.1:8765", "chat relay WebSocket URL")
	connectCmd.Flags().StringVar(&flagToken, "token", "", "invite token, if the relay requires one")
	connectCmd.Flags().StringVar(&flagUsername, "username", "", "username to register (required)")
	_ = connectCmd.MarkFlagRequired("username")
}

func runConnect(cmd *cobra.Command, args []string) error {
	conn, err := ws.Dial(flagServerURL, flagToken)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	if err := register(conn, flagUsername); err != nil {
		return err
	}
	fmt.Printf("registered as %s\n", flagUsername)

	client := clientfsm.New(flagUsername, conn)
	defer client.Close()
	client.OnNotify = func(msg string) { fmt.Println(msg) }

	session := &cliSession{client: client}
	client.OnInputRequest = session.handleInputRequest

	go func() {
		for {
			env, err := conn.ReadEnvelope(context.Background())
			if err != nil {
				fmt.Println("connection closed:", err)
				os.Exit(0)
			}
			client.Dispatch(env)
		}
	}()

	session.runInputLoop()
	return nil
}

// register sends the register envelope and blocks for the server's
// register (success) or register_error reply.
func register(conn *ws.Conn, username string) error {
	env := protocol.New(protocol.TypeRegister, username)
	env.Username = username
	if err := conn.Send(env); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), registerTimeout)
	defer cancel()

	for {
		reply, err := conn.ReadEnvelope(ctx)
		if err != nil {
			return fmt.Errorf("register: %w", err)
		}
		switch reply.Type {
		case protocol.TypeRegister:
			return nil
		case protocol.TypeRegisterError:
			return fmt.Errorf("register: %s: %s", reply.Reason, reply.Message)
		}
	}
}

// cliSession bridges the line-based terminal to clientfsm's
// InputRequest/SubmitInput contract: a pending PSK request diverts the
// next typed line away from the ordinary command dispatch.
type cliSession struct {
	client       *clientfsm.Client
	awaitingKind clientfsm.InputKind
	awaitingPSK  bool
}

func (s *cliSession) handleInputRequest(req clientfsm.InputRequest) {
	switch req.Kind {
	case clientfsm.InputPSK:
		fmt.Printf("enter the shared secret agreed with %s: ", req.Peer)
		s.awaitingPSK = true
	case clientfsm.InputAcceptDeny:
		fmt.Printf("%s wants to connect — type /accept or /deny\n", req.Peer)
	}
}

func (s *cliSession) runInputLoop() {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if s.awaitingPSK {
			s.awaitingPSK = false
			if err := s.client.SubmitInput(clientfsm.InputResult{Kind: clientfsm.InputPSK, Value: line}); err != nil {
				fmt.Println("error:", err)
			}
			continue
		}

		if err := s.dispatchCommand(line); err != nil {
			fmt.Println("error:", err)
		}
	}
}

func (s *cliSession) dispatchCommand(line string) error {
	switch {
	case line == "/quit":
		os.Exit(0)
		return nil
	case line == "/accept":
		return s.client.Accept()
	case line == "/deny":
		return s.client.Deny()
	case line == "/exit_tunnel":
		return s.client.ExitTunnel()
	case line == "/list_users":
		return s.client.ListUsers()
	case line == "/pending":
		status, peer := s.client.Pending()
		if peer == "" {
			fmt.Println(status)
		} else {
			fmt.Printf("%s with %s\n", status, peer)
		}
		return nil
	case strings.HasPrefix(line, "/connect "):
		peer := strings.TrimSpace(strings.TrimPrefix(line, "/connect "))
		return s.client.Connect(peer)
	default:
		return s.client.SendMessage(line)
	}
}
