package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/adityapw/wallet-tracker/internal/api"
	"github.com/adityapw/wallet-tracker/internal/app"
	"github.com/adityapw/wallet-tracker/internal/config"
	"github.com/adityapw/wallet-tracker/internal/poll"
	"github.com/adityapw/wallet-tracker/internal/session"
	"github.com/adityapw/wallet-tracker/internal/state"
	"github.com/adityapw/wallet-tracker/internal/view"
	"github.com/adityapw/wallet-tracker/pkg/types"
)

func main() {
	_ = godotenv.Load()

	configPath := "wallettrack.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg = config.FromEnv(cfg)
	if cfg.TokenPath == "" {
		cfg.TokenPath = config.DefaultTokenPath()
	}

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client := api.New(cfg.BackendURL, cfg.RequestTimeout, log)
	sessions := session.NewStore(cfg.TokenPath, client, log)
	a := app.New(ctx, cfg, client, sessions, log)
	defer a.Shutdown()

	a.Start(ctx)

	if cfg.EnableAnnouncements {
		poller := poll.New(cfg.PollInterval,
			client.Announcements,
			func(items []types.Announcement) {
				a.Store().Inbox() <- state.SetAnnouncements{Items: items}
			},
			log)
		go poller.Run(ctx)
	}

	runPrompt(ctx, a, view.Renderer{
		EnableChat:          cfg.EnableChat,
		EnableAnnouncements: cfg.EnableAnnouncements,
	})
}

// runPrompt is the terminal front end: one command per line, state
// rendered on demand with "show".
func runPrompt(ctx context.Context, a *app.App, render view.Renderer) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println(`wallet tracker - "help" lists commands`)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "help":
			printHelp()

		case "show":
			render.Render(os.Stdout, a.Snapshot().Snapshot)

		case "login":
			if len(args) != 1 {
				fmt.Println("usage: login <username>")
				continue
			}
			if err := a.Login(ctx, args[0]); err != nil {
				fmt.Println("login failed:", err)
			}

		case "logout":
			a.Logout(ctx)

		case "wallets":
			a.RefreshWallets()

		case "add":
			if len(args) != 3 {
				fmt.Println("usage: add <address> <balance> <currency>")
				continue
			}
			balance, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				fmt.Println("bad balance:", args[1])
				continue
			}
			if err := a.CreateWallet(ctx, args[0], balance, args[2]); err != nil {
				fmt.Println("create failed:", err)
			}

		case "edit":
			if len(args) != 4 {
				fmt.Println("usage: edit <id> <address> <balance> <currency>")
				continue
			}
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				fmt.Println("bad wallet id:", args[0])
				continue
			}
			balance, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				fmt.Println("bad balance:", args[2])
				continue
			}
			wallet := types.Wallet{ID: id, Address: args[1], Balance: balance, Currency: args[3]}
			if err := a.UpdateWallet(ctx, wallet); err != nil {
				fmt.Println("update failed:", err)
			}

		case "rm":
			if len(args) != 1 {
				fmt.Println("usage: rm <id>")
				continue
			}
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				fmt.Println("bad wallet id:", args[0])
				continue
			}
			err = a.DeleteWallet(ctx, id, stdinConfirm(scanner))
			switch {
			case errors.Is(err, app.ErrNotConfirmed):
				fmt.Println("kept the wallet")
			case err != nil:
				fmt.Println("delete failed:", err)
			}

		case "post":
			if err := a.PostAnnouncement(ctx, strings.Join(args, " ")); err != nil {
				fmt.Println("post failed:", err)
			}

		case "say":
			draft := strings.Join(args, " ")
			if err := a.SendChat(ctx, draft); err != nil {
				// The draft survives a failed send; hand it back.
				fmt.Printf("not sent (%v), draft kept: %q\n", err, draft)
			}

		case "history":
			a.FetchChatHistory(ctx)

		case "quit", "exit":
			return

		default:
			fmt.Println("unknown command; try \"help\"")
		}
	}
}

// stdinConfirm asks the destructive-action question on the same prompt
// stream the commands come from.
func stdinConfirm(scanner *bufio.Scanner) app.Confirm {
	return func(prompt string) bool {
		fmt.Printf("%s [y/N] ", prompt)
		if !scanner.Scan() {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		return answer == "y" || answer == "yes"
	}
}

func printHelp() {
	fmt.Print(`commands:
  show                               render current state
  login <username>                   log in and validate the session
  logout                             drop the session
  wallets                            refetch the wallet list
  add <address> <balance> <currency> create a wallet
  edit <id> <address> <balance> <currency>
  rm <id>                            delete a wallet (asks first)
  post <text>                        publish an announcement
  say <text>                         send a chat message
  history                            refetch chat history over REST
  quit
`)
}
