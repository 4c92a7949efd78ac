package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"matchgogo/backend/internal/localization"
	"matchgogo/backend/internal/logger"
	"matchgogo/backend/internal/models"
	"matchgogo/backend/internal/moderation"
	"matchgogo/backend/internal/storage"
	"matchgogo/backend/internal/telegram"
	"matchgogo/backend/internal/transport"

	"github.com/joho/godotenv"
)

const usage = `Usage: admin <command> [args]

Commands:
  ban <chat_id> [reason]                  ban a user and tell them
  unban <chat_id>                         lift a ban
  banned                                  list banned users
  reports [hours]                         list reports filed in the last hours (default 24)
  add-group <name> <invite_link> [desc]   advertise a community
  del-group <id>                          remove a community
  groups                                  list communities`

func main() {
	_ = godotenv.Load()
	logger.Init(&logger.Config{Level: os.Getenv("LOG_LEVEL"), Format: logger.FormatText, Component: "admin"})
	log := logger.L()

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	dsn := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dsn == "" {
		fmt.Println("DATABASE_URL is not set")
		os.Exit(1)
	}
	db, err := storage.Open(dsn, nil)
	if err != nil {
		log.Error("failed to connect database", "err", err)
		os.Exit(1)
	}
	if err := storage.Reconcile(db, log); err != nil {
		log.Error("failed to reconcile schema", "err", err)
		os.Exit(1)
	}
	store := storage.NewStorageService(db)
	mod := moderation.NewService(store, newNotifier(store, log), log)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := runCommand(ctx, store, mod, os.Args[1], os.Args[2:]); err != nil {
		log.Error("command failed", "command", os.Args[1], "err", err)
		os.Exit(1)
	}
}

func runCommand(ctx context.Context, store storage.Storage, mod *moderation.Service, command string, args []string) error {
	switch command {
	case "ban":
		if len(args) < 1 {
			return fmt.Errorf("usage: admin ban <chat_id> [reason]")
		}
		chatID, err := parseChatID(args[0])
		if err != nil {
			return err
		}
		reason := "manual"
		if len(args) > 1 {
			reason = strings.Join(args[1:], " ")
		}
		inserted, err := mod.Ban(ctx, chatID, reason)
		if err != nil {
			return err
		}
		if inserted {
			fmt.Printf("User %d has been banned.\n", chatID)
		} else {
			fmt.Printf("User %d was already banned.\n", chatID)
		}
	case "unban":
		if len(args) != 1 {
			return fmt.Errorf("usage: admin unban <chat_id>")
		}
		chatID, err := parseChatID(args[0])
		if err != nil {
			return err
		}
		if err := mod.Unban(ctx, chatID); err != nil {
			return err
		}
		fmt.Printf("User %d has been unbanned.\n", chatID)
	case "banned":
		users, err := mod.Banned(ctx)
		if err != nil {
			return err
		}
		printBanned(users)
	case "reports":
		hours := 24
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid hours %q", args[0])
			}
			hours = n
		}
		reports, err := mod.Recent(ctx, time.Duration(hours)*time.Hour, 500)
		if err != nil {
			return err
		}
		totals, err := reportTotals(ctx, store, reports)
		if err != nil {
			return err
		}
		printReports(os.Stdout, reports, totals)
	case "add-group":
		if len(args) < 2 {
			return fmt.Errorf("usage: admin add-group <name> <invite_link> [description]")
		}
		g := &models.Group{Name: args[0], InviteLink: args[1]}
		if len(args) > 2 {
			g.Description = strings.Join(args[2:], " ")
		}
		if err := store.CreateGroup(ctx, g); err != nil {
			return err
		}
		fmt.Printf("Group %s created with id %s.\n", g.Name, g.ID)
	case "del-group":
		if len(args) != 1 {
			return fmt.Errorf("usage: admin del-group <id>")
		}
		if err := store.DeleteGroup(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Group %s deleted.\n", args[0])
	case "groups":
		groups, err := store.ListGroups(ctx)
		if err != nil {
			return err
		}
		printGroups(groups)
	default:
		fmt.Println(usage)
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}

func parseChatID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id %q", s)
	}
	return id, nil
}

func printBanned(users []models.BannedUser) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CHAT_ID\tBANNED_AT\tREASON")
	for _, u := range users {
		fmt.Fprintf(w, "%d\t%s\t%s\n", u.ChatID, u.BannedAt.Format(time.DateTime), u.Reason)
	}
	_ = w.Flush()
}

// reportTotals counts every report ever filed against each user in reports,
// not only those inside the listed window.
func reportTotals(ctx context.Context, store storage.Storage, reports []models.Report) (map[int64]int64, error) {
	totals := make(map[int64]int64)
	for _, r := range reports {
		if _, ok := totals[r.ReportedID]; ok {
			continue
		}
		n, err := store.CountReportsAgainst(ctx, r.ReportedID)
		if err != nil {
			return nil, fmt.Errorf("count reports against %d: %w", r.ReportedID, err)
		}
		totals[r.ReportedID] = n
	}
	return totals, nil
}

func printReports(out io.Writer, reports []models.Report, totals map[int64]int64) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tREPORTER\tREPORTED\tTOTAL\tTAG\tCREATED_AT")
	for _, r := range reports {
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%s\t%s\n",
			r.ID, r.ReporterID, r.ReportedID, totals[r.ReportedID], r.Tag, r.CreatedAt.Format(time.DateTime))
	}
	_ = w.Flush()
}

func printGroups(groups []models.Group) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tINVITE_LINK")
	for _, g := range groups {
		fmt.Fprintf(w, "%s\t%s\t%s\n", g.ID, g.Name, g.InviteLink)
	}
	_ = w.Flush()
}

// notifier tells banned users about the ban when BOT_TOKEN is available.
// A running bot drops them from random chat on their next event.
type notifier struct {
	store  storage.Storage
	sender transport.Sender
	loc    *localization.Localizer
	log    *slog.Logger
}

func newNotifier(store storage.Storage, log *slog.Logger) *notifier {
	n := &notifier{store: store, log: log}
	token := strings.TrimSpace(os.Getenv("BOT_TOKEN"))
	if token == "" {
		return n
	}
	api, err := telegram.NewBotAPI(token)
	if err != nil {
		log.Warn("telegram unavailable, users will not be notified", "err", err)
		return n
	}
	loc, err := localization.NewBundled()
	if err != nil {
		log.Warn("load translations", "err", err)
		return n
	}
	n.sender = telegram.NewSender(api, log)
	n.loc = loc
	return n
}

func (n *notifier) NotifyWarning(ctx context.Context, chatID int64) {
	n.send(ctx, chatID, "report_warning")
}

func (n *notifier) NotifyBan(ctx context.Context, chatID int64) {
	n.send(ctx, chatID, "banned_notice")
}

func (n *notifier) send(ctx context.Context, chatID int64, key string) {
	if n.sender == nil {
		return
	}
	lang := localization.DefaultLanguage
	if u, err := n.store.GetUser(ctx, chatID); err == nil && u.Language != "" {
		lang = u.Language
	}
	if _, err := n.sender.SendText(ctx, chatID, n.loc.GetString(lang, key), &transport.Keyboard{Remove: true}); err != nil {
		n.log.Warn("notify user", "chat_id", chatID, "key", key, "err", err)
	}
}
