// maarifa - command line client for the MaarifaHub messages API
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/nassor22/maarifaHub/clients/go/maarifa"
	"github.com/nassor22/maarifaHub/internal/models"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	_ = godotenv.Load()
	client := maarifa.NewClient(os.Getenv("MAARIFA_URL"), os.Getenv("MAARIFA_TOKEN"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := os.Args[1]

	switch cmd {
	case "health":
		resp, err := client.Health(ctx)
		exitOnError(err)
		printJSON(resp)

	case "conversations", "ls":
		resp, err := client.Conversations(ctx)
		exitOnError(err)
		for _, c := range resp.Conversations {
			marker := " "
			if c.ID == resp.Active {
				marker = "*"
			}
			fmt.Printf("%s %-12s %-22s %-8s %s\n", marker, c.ID, c.CounterpartName, c.LastActivityLabel, unreadBadge(c.UnreadCount))
		}

	case "read":
		requireArgs(3, "read <conversation_id>")
		resp, err := client.Messages(ctx, os.Args[2])
		exitOnError(err)
		for _, m := range resp.Messages {
			printMessage(m, resp.Conversation.CounterpartName)
		}

	case "select":
		requireArgs(3, "select <conversation_id>")
		resp, err := client.Select(ctx, os.Args[2])
		exitOnError(err)
		fmt.Printf("Now chatting with %s\n", resp.CounterpartName)

	case "send":
		requireArgs(4, "send <conversation_id> <message>")
		msg, err := client.SendMessage(ctx, os.Args[2], strings.Join(os.Args[3:], " "))
		exitOnError(err)
		if msg == nil {
			fmt.Println("Nothing sent (empty message)")
			return
		}
		fmt.Printf("Sent #%d at %s\n", msg.ID, msg.SentAtLabel)

	case "start":
		requireArgs(3, "start <participant name>")
		resp, err := client.StartConversation(ctx, strings.Join(os.Args[2:], " "))
		exitOnError(err)
		fmt.Printf("Started conversation %s with %s\n", resp.ID, resp.CounterpartName)

	case "notifications":
		resp, err := client.Notifications(ctx)
		exitOnError(err)
		for _, n := range resp.Notifications {
			dot := " "
			if n.Unread {
				dot = "•"
			}
			fmt.Printf("%s [%-7s] %s (%s)\n", dot, n.Category, n.Text, n.TimeLabel)
		}

	case "events":
		limit := 20
		if len(os.Args) > 2 {
			n, err := strconv.Atoi(os.Args[2])
			if err != nil {
				fmt.Fprintln(os.Stderr, "Usage: maarifa events [limit]")
				os.Exit(1)
			}
			limit = n
		}
		events, err := client.Events(ctx, limit)
		exitOnError(err)
		for _, ev := range events {
			at := time.UnixMilli(ev.Timestamp).Format("15:04:05")
			fmt.Printf("%s %-8s %s\n", at, ev.Kind, ev.ConversationID)
		}

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`maarifa - MaarifaHub messages client

Usage: maarifa <command> [options]

Commands:
  conversations              List conversations (* marks the active one)
  read <id>                  Show a conversation
  select <id>                Make a conversation active
  send <id> <message>        Send a message
  start <name>               Start a conversation
  notifications              List notifications
  events [limit]             Show recent session activity (needs Redis)
  health                     Check server health

Environment:
  MAARIFA_URL     Server URL (default: http://localhost:8080)
  MAARIFA_TOKEN   Bearer token for mutating commands`)
}

func requireArgs(n int, form string) {
	if len(os.Args) < n {
		fmt.Fprintln(os.Stderr, "Usage: maarifa "+form)
		os.Exit(1)
	}
}

func unreadBadge(n int) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("(%d unread)", n)
}

func printMessage(m models.Message, counterpart string) {
	fmt.Printf("[%s] %s: %s\n", m.SentAtLabel, m.SenderLabel(counterpart), m.Body)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
