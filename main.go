// Command pai is a terminal client for the assistant: it drives a chat
// session directly, revealing replies word by word in the console. Useful for
// trying a model endpoint without standing up the HTTP server.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pai-labs/pai/internal/chat"
	"github.com/pai-labs/pai/internal/config"
	"github.com/pai-labs/pai/internal/llm"
	"github.com/pai-labs/pai/internal/models"
)

type consoleNotifier struct{}

func (consoleNotifier) Success(msg string) { fmt.Printf("[ok] %s\n", msg) }
func (consoleNotifier) Error(msg string)   { fmt.Printf("[error] %s\n", msg) }

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	gateway, err := llm.New(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize gateway: %v\n", err)
		os.Exit(1)
	}
	gateway.SetWindow(cfg.HistoryWindow)

	notifier := consoleNotifier{}
	session := chat.NewSession(gateway, notifier, zap.NewNop(), cfg.ChatConfig())

	updates, unsubscribe := session.Subscribe()
	defer unsubscribe()

	for _, msg := range session.Messages() {
		fmt.Println(msg.Content)
	}
	fmt.Println("Commands: /stop  /copy  /quit")
	fmt.Print("> ")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	printed := make(map[string]int)
	var lastReply string

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return
			}
			switch strings.TrimSpace(line) {
			case "/quit", "/exit":
				return
			case "/stop":
				session.Cancel()
			case "/copy":
				if lastReply == "" {
					fmt.Println("Nothing to copy yet")
				} else {
					chat.CopyToClipboard(lastReply, notifier)
				}
				fmt.Print("> ")
			default:
				if !session.Submit(line) {
					if session.Busy() {
						fmt.Println("Still responding; /stop to interrupt")
					}
					fmt.Print("> ")
				}
			}
		case msg := <-updates:
			if msg.Author != models.AuthorAssistant {
				continue
			}
			render(msg, printed, &lastReply)
		}
	}
}

// render prints only the unseen tail of the assistant message, so successive
// snapshots of the same reveal appear as a typing stream.
func render(msg models.Message, printed map[string]int, lastReply *string) {
	seen := printed[msg.ID]
	if seen > len(msg.Content) {
		// Content was replaced, not extended: the error fallback.
		fmt.Println()
		fmt.Print(msg.Content)
	} else {
		fmt.Print(msg.Content[seen:])
	}
	printed[msg.ID] = len(msg.Content)

	if msg.State.Terminal() {
		*lastReply = msg.Content
		delete(printed, msg.ID)
		fmt.Println()
		fmt.Print("> ")
	}
}
