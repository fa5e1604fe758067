// Command chat is a terminal client for the conversation API.
//
//	chat -url http://localhost:3000/api -token $TOKEN
//	chat -user dev-user   # mints a token with JWT_SECRET, development only
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"genius-be/internal/config"
	"genius-be/pkg/clientstate"
	"genius-be/pkg/clientstate/httpapi"

	"github.com/fatih/color"
	"github.com/golang-jwt/jwt/v5"
)

var (
	userColor      = color.New(color.FgCyan, color.Bold)
	assistantColor = color.New(color.FgGreen)
	noticeColor    = color.New(color.FgYellow)
	errorColor     = color.New(color.FgRed)
	dimColor       = color.New(color.Faint)
)

func main() {
	cfg := config.Load()

	baseURL := flag.String("url", cfg.App.BaseURL+"/api", "API base URL")
	token := flag.String("token", os.Getenv("GENIUS_TOKEN"), "bearer token")
	devUser := flag.String("user", "", "mint a development token for this user id using JWT_SECRET")
	timeout := flag.Duration("timeout", cfg.Ai.Timeout+10*time.Second, "per-request timeout")
	flag.Parse()

	if *devUser != "" {
		minted, err := mintToken(cfg.App.JwtSecret, *devUser)
		if err != nil {
			log.Fatalf("mint token: %v", err)
		}
		*token = minted
	}
	if *token == "" {
		log.Fatal("no token: pass -token, set GENIUS_TOKEN, or use -user with JWT_SECRET")
	}

	st := clientstate.New(httpapi.NewClient(*baseURL, *token, *timeout))
	ctx := context.Background()

	if err := st.Mount(ctx); err != nil {
		errorColor.Printf("Could not load conversations: %v\n", err)
	}
	render(st.Snapshot())
	printHelp()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit":
			return
		case line == "/help":
			printHelp()
		case line == "/new":
			st.NewChat()
			render(st.Snapshot())
		case line == "/list":
			if err := st.RefreshSessions(ctx); err != nil {
				errorColor.Printf("Could not load conversations: %v\n", err)
			}
			listSessions(st.Snapshot())
		case strings.HasPrefix(line, "/open "):
			openSession(ctx, st, strings.TrimSpace(strings.TrimPrefix(line, "/open ")))
		default:
			submit(ctx, st, line)
		}
	}
}

func submit(ctx context.Context, st *clientstate.State, prompt string) {
	dimColor.Println("thinking...")
	err := st.Submit(ctx, prompt)
	snap := st.Snapshot()

	switch {
	case err == nil:
		if n := len(snap.Messages); n > 0 {
			printMessage(snap.Messages[n-1])
		}
	case snap.Notice == clientstate.NoticeUpgrade:
		noticeColor.Println("Free trial has expired. Run a checkout to upgrade to pro.")
	case errors.Is(err, clientstate.ErrStale):
	default:
		errorColor.Printf("Something went wrong, your prompt is kept: %q\n", snap.Draft)
	}
}

func openSession(ctx context.Context, st *clientstate.State, arg string) {
	snap := st.Snapshot()
	idx, err := strconv.Atoi(arg)
	if err != nil || idx < 1 || idx > len(snap.Sessions) {
		errorColor.Println("usage: /open <number from /list>")
		return
	}

	if err := st.Select(ctx, snap.Sessions[idx-1].Id); err != nil {
		errorColor.Printf("Could not load conversation: %v\n", err)
		return
	}
	render(st.Snapshot())
}

func render(snap clientstate.Snapshot) {
	if snap.ActiveSessionId == "" {
		dimColor.Println("(new conversation)")
		return
	}
	for _, s := range snap.Sessions {
		if s.Id == snap.ActiveSessionId {
			noticeColor.Printf("== %s ==\n", s.Title)
		}
	}
	for _, m := range snap.Messages {
		printMessage(m)
	}
}

func listSessions(snap clientstate.Snapshot) {
	if len(snap.Sessions) == 0 {
		dimColor.Println("(no conversations yet)")
		return
	}
	for i, s := range snap.Sessions {
		marker := " "
		if s.Id == snap.ActiveSessionId {
			marker = "*"
		}
		fmt.Printf("%s %2d. %s ", marker, i+1, s.Title)
		dimColor.Printf("(%d messages, %s)\n", s.MessageCount, s.UpdatedAt.Local().Format("Jan 2 15:04"))
	}
}

func printMessage(m clientstate.Message) {
	if m.Role == "user" {
		userColor.Print("you: ")
		fmt.Println(m.Content)
		return
	}
	assistantColor.Print("genius: ")
	fmt.Println(m.Content)
}

func printHelp() {
	dimColor.Println("commands: /list  /open <n>  /new  /help  /quit  (anything else is sent)")
}

func mintToken(secret, userId string) (string, error) {
	if secret == "" {
		return "", errors.New("JWT_SECRET is not set")
	}
	claims := jwt.MapClaims{
		"user_id": userId,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
