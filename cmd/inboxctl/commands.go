package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/mbeoliero/inbox/pkg/chatsync"
	"github.com/mbeoliero/inbox/pkg/constant"
	"github.com/mbeoliero/inbox/pkg/jwt"
	"github.com/spf13/cobra"
)

func init() {
	tokenCmd.Flags().Int("platform", constant.PlatformIdCLI, "platform id, 7 issues a producer token")
	tokenCmd.Flags().Int("hours", 24, "token lifetime in hours")
	tokenCmd.Flags().Bool("save", false, "store the token in the config file")
	startCmd.Flags().String("tag", "", "context tag, e.g. an order or listing id")
	notificationsCmd.Flags().Bool("mark-all", false, "mark every notification read")
	notificationsCmd.Flags().Bool("clear", false, "delete all notifications")

	rootCmd.AddCommand(tokenCmd, conversationsCmd, messagesCmd, startCmd, sendCmd, readCmd, notificationsCmd, watchCmd)
}

func withEngine(cmd *cobra.Command, push bool, fn func(ctx context.Context, e *chatsync.Engine) error) error {
	cfg, err := loadConfig(flagConfig)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := openSession(ctx, cfg, push)
	if err != nil {
		return err
	}
	defer e.Close()
	return fn(ctx, e)
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign a token with the configured jwt secret",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(flagConfig)
		if err != nil {
			return err
		}
		if cfg.UserId == "" || cfg.JWTSecret == "" {
			return fmt.Errorf("user id and jwt secret are required")
		}
		platform, _ := cmd.Flags().GetInt("platform")
		hours, _ := cmd.Flags().GetInt("hours")

		token, err := jwt.GenerateToken(cfg.UserId, platform, cfg.JWTSecret, hours)
		if err != nil {
			return err
		}

		if save, _ := cmd.Flags().GetBool("save"); save {
			path := flagConfig
			if path == "" {
				if path, err = defaultConfigPath(); err != nil {
					return err
				}
			}
			cfg.Token, cfg.PlatformId = token, platform
			if err := saveConfig(path, cfg); err != nil {
				return err
			}
		}
		fmt.Println(token)
		return nil
	},
}

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"ls"},
	Short:   "List conversations with unread counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, false, func(ctx context.Context, e *chatsync.Engine) error {
			snap, err := e.Snapshot(ctx)
			if err != nil {
				return err
			}
			printSnapshot(snap)
			return nil
		})
	},
}

var messagesCmd = &cobra.Command{
	Use:   "messages <conversation-id>",
	Short: "Print the recent messages of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, false, func(ctx context.Context, e *chatsync.Engine) error {
			if err := e.OpenConversation(ctx, args[0]); err != nil {
				return err
			}
			msgs, err := e.Messages(ctx, args[0])
			if err != nil {
				return err
			}
			for _, m := range msgs {
				fmt.Printf("%s  %-12s %s\n", formatTime(m.CreatedAt), m.SenderId, m.Content)
			}
			return nil
		})
	},
}

var startCmd = &cobra.Command{
	Use:   "start <participant>...",
	Short: "Find or create the conversation with the given participants",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag, _ := cmd.Flags().GetString("tag")
		return withEngine(cmd, false, func(ctx context.Context, e *chatsync.Engine) error {
			id, err := e.StartConversation(ctx, args, tag)
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		})
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <conversation-id> <text>...",
	Short: "Send a message",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, false, func(ctx context.Context, e *chatsync.Engine) error {
			msg, err := e.SendMessage(ctx, args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Printf("sent %s at %s\n", msg.Id, formatTime(msg.CreatedAt))
			return nil
		})
	},
}

var readCmd = &cobra.Command{
	Use:   "read <conversation-id>",
	Short: "Mark a conversation read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, false, func(ctx context.Context, e *chatsync.Engine) error {
			return e.MarkRead(ctx, args[0])
		})
	},
}

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "List, mark read or clear notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		markAll, _ := cmd.Flags().GetBool("mark-all")
		clearAll, _ := cmd.Flags().GetBool("clear")
		return withEngine(cmd, false, func(ctx context.Context, e *chatsync.Engine) error {
			switch {
			case clearAll:
				return e.ClearNotifications(ctx)
			case markAll:
				if err := e.MarkAllNotificationsRead(ctx); err != nil {
					return err
				}
			}
			list, err := e.Notifications(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for _, n := range list {
				state := "unread"
				if n.Read {
					state = "read"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", n.Id, formatTime(n.CreatedAt), n.Type, state, n.Title)
			}
			return w.Flush()
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stay connected and print state changes until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, true, func(ctx context.Context, e *chatsync.Engine) error {
			unsubscribe := e.Subscribe(func(ch chatsync.Change) {
				fmt.Printf("%s  %-13s conv=%s unread=%d connected=%t\n",
					time.Now().Format(time.TimeOnly), ch.Kind, ch.ConversationId, ch.TotalUnread, ch.Connected)
			})
			defer unsubscribe()
			<-ctx.Done()
			return nil
		})
	},
}

func printSnapshot(snap *chatsync.Snapshot) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tPARTICIPANTS\tTAG\tUNREAD\tLAST ACTIVITY\tPREVIEW\n")
	for _, c := range snap.Conversations {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n", c.Id, strings.Join(c.Participants, ","), c.ContextTag,
			c.Unread, formatTime(c.LastActivity), c.Preview)
	}
	_ = w.Flush()
	fmt.Printf("\nunread messages: %d, unread notifications: %d\n", snap.UnreadMessages, snap.UnreadNotifications)
}

func formatTime(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Format("2006-01-02 15:04")
}
