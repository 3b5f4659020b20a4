package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oggyb/rotrade-sync/internal/app"
	"github.com/oggyb/rotrade-sync/internal/bridge"
	"github.com/oggyb/rotrade-sync/internal/config"
	"github.com/oggyb/rotrade-sync/internal/logger"
	"github.com/oggyb/rotrade-sync/internal/model"
	"github.com/oggyb/rotrade-sync/internal/service/changefeed"
	"github.com/oggyb/rotrade-sync/internal/service/gateway"
	"github.com/oggyb/rotrade-sync/internal/service/marketplace"
	"github.com/oggyb/rotrade-sync/internal/session"
	"github.com/oggyb/rotrade-sync/internal/store"
)

var (
	username string
	password string
	register bool
	feedAddr string
	chatWith int64
)

// rootCmd runs one client session and logs every view update.
var rootCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run a client session and print marketplace updates",
	Long: `Run one client session against the configured store and remote
endpoint, keeping its view fresh with the polling/event bridge.

Changes arrive from the store's own subscription, or from a gRPC change
feed when --feed is set. Send SIGUSR1 to force a full refresh.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&username, "username", "u", "", "log in as this user (default: restore the saved session)")
	rootCmd.Flags().StringVarP(&password, "password", "p", "", "password for --username")
	rootCmd.Flags().BoolVar(&register, "register", false, "create the account instead of logging in")
	rootCmd.Flags().StringVar(&feedAddr, "feed", "", "gRPC change feed address (host:port)")
	rootCmd.Flags().Int64Var(&chatWith, "chat", 0, "open the conversation with this user id")
}

func run(cmd *cobra.Command, _ []string) error {
	cfg := config.New()
	logger.InitFromConfig(cfg)
	log := logger.Named("watch")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	svc := marketplace.NewService(app.New(cfg, s, log))
	gw := gateway.NewFromConfig(cfg, svc, log)
	sess := session.New(gw, svc, log)

	if err := login(ctx, sess); err != nil {
		return err
	}
	if sess.User() == nil {
		return fmt.Errorf("no saved session, pass --username")
	}

	var source store.Subscriber = s
	if feedAddr != "" {
		client, conn, err := changefeed.Dial(feedAddr, log)
		if err != nil {
			return err
		}
		defer conn.Close()
		source = client
	}

	b := bridge.New(sess, gw, svc, bridge.Options{
		Periods: bridge.Periods{
			Listings: cfg.Poll.Listings,
			Chats:    cfg.Poll.Chats,
			Messages: cfg.Poll.Messages,
			Reviews:  cfg.Poll.Reviews,
		},
		Source:   source,
		Notifier: bell{},
	}, log)

	off := b.OnEvent(func(ev bridge.Event) { printEvent(cmd, ev) })
	defer off()

	if chatWith != 0 {
		if err := sess.OpenChat(ctx, chatWith, 0); err != nil {
			return err
		}
	}

	if err := b.Start(ctx); err != nil {
		return err
	}
	defer b.Stop()

	focus := make(chan os.Signal, 1)
	signal.Notify(focus, syscall.SIGUSR1)
	defer signal.Stop(focus)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-focus:
			b.Focus(ctx)
		}
	}
}

func login(ctx context.Context, sess *session.Session) error {
	if username == "" {
		return sess.Restore(ctx)
	}
	creds := model.Credentials{Username: username, Password: password}
	if register {
		_, err := sess.Register(ctx, creds)
		return err
	}
	_, err := sess.Login(ctx, creds)
	return err
}

func printEvent(cmd *cobra.Command, ev bridge.Event) {
	v := ev.View
	switch ev.Concern {
	case bridge.ConcernListings:
		cmd.Printf("listings: %d active\n", len(v.Listings))
	case bridge.ConcernChats:
		for _, c := range v.Chats {
			cmd.Printf("chat %s: %s\n", c.Username, c.LastMessage)
		}
	case bridge.ConcernMessages:
		for _, m := range ev.NewMessages {
			cmd.Printf("new message from %d: %s\n", m.FromUserID, m.Content)
		}
	case bridge.ConcernConversation:
		cmd.Printf("conversation with %d: %d messages\n", v.ChatWith, len(v.Conversation))
	case bridge.ConcernReviews:
		cmd.Printf("rating: %.1f (%d reviews)\n", v.Rating.Rating, v.Rating.Count)
	case bridge.ConcernReports:
		cmd.Printf("reports: %d open\n", len(v.Reports))
	}
}

// bell rings the terminal bell.
type bell struct{}

func (bell) Notify(model.Message) { fmt.Fprint(os.Stdout, "\a") }

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
