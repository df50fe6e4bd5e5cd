package cmd

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/cosmicworks/ragchat/internal/app"
	"github.com/cosmicworks/ragchat/internal/session"
	"github.com/cosmicworks/ragchat/internal/source"
)

// runChat starts the interactive loop. Without --session a new session is
// created and named from the first exchange.
func runChat(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	sessionFlag := fs.String("session", "", "resume an existing session by id")
	sourceFlag := fs.String("source", "", "retrieval source: auto, none, or a collection name")
	cacheFlag := fs.Bool("cache", a.Config.Cache.Enabled, "serve and store answers in the response cache")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cacheEnabled := *cacheFlag

	src, err := source.ParseRequest(*sourceFlag)
	if err != nil {
		return fmt.Errorf("invalid --source: %w", err)
	}

	var sess *session.Session
	fresh := false
	if *sessionFlag != "" {
		id, err := uuid.Parse(*sessionFlag)
		if err != nil {
			return fmt.Errorf("invalid --session: %w", err)
		}
		snap, err := a.Sessions.Get(ctx, id)
		if err != nil {
			return err
		}
		sess = snap.Session
	} else {
		sess, err = a.Sessions.Create(ctx, "")
		if err != nil {
			return err
		}
		fresh = true
	}

	fmt.Printf("Session %s. Type /help for commands, /exit to leave.\n", sess.ID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			done, err := handleChatCommand(ctx, a, line, &src, &cacheEnabled)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
			if done {
				return nil
			}
			continue
		}

		answer, err := a.Chat.Answer(ctx, sess.ID, line, src, cacheEnabled)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				return err
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}

		fmt.Println(answer.Text)
		if answer.CacheHit {
			fmt.Fprintln(os.Stderr, "(served from cache)")
		}

		if fresh {
			fresh = false
			if name, err := a.Chat.SummarizeSessionName(ctx, sess.ID, line); err == nil {
				fmt.Fprintf(os.Stderr, "(session named %q)\n", name)
			}
		}
	}
	return scanner.Err()
}

// handleChatCommand processes slash commands. Returns true when the loop
// should exit.
func handleChatCommand(ctx context.Context, a *app.App, line string, src *source.Request, cacheEnabled *bool) (bool, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/exit", "/quit":
		return true, nil
	case "/help":
		fmt.Println("  /source <value>  Change the retrieval source (auto, none, or a collection)")
		fmt.Println("  /cache on|off    Toggle the response cache for following prompts")
		fmt.Println("  /cache clear     Empty the response cache")
		fmt.Println("  /exit, /quit     Leave the chat")
		return false, nil
	case "/source":
		if len(fields) != 2 {
			return false, fmt.Errorf("usage: /source <auto|none|collection>")
		}
		parsed, err := source.ParseRequest(fields[1])
		if err != nil {
			return false, err
		}
		*src = parsed
		fmt.Printf("source set to %s\n", parsed)
		return false, nil
	case "/cache":
		if len(fields) != 2 {
			return false, fmt.Errorf("usage: /cache <on|off|clear>")
		}
		switch fields[1] {
		case "on":
			*cacheEnabled = true
			fmt.Println("cache on")
		case "off":
			*cacheEnabled = false
			fmt.Println("cache off")
		case "clear":
			if err := a.Chat.ClearCache(ctx); err != nil {
				return false, err
			}
			fmt.Println("cache cleared")
		default:
			return false, fmt.Errorf("usage: /cache <on|off|clear>")
		}
		return false, nil
	default:
		return false, fmt.Errorf("unknown command %s", fields[0])
	}
}
