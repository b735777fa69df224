// ABOUTME: Messaging CLI commands
// ABOUTME: Contacts, history, send and file upload for scripted use
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/harperreed/telemsg/api"
	"github.com/harperreed/telemsg/models"
	"github.com/harperreed/telemsg/session"
)

// ContactsCommand lists the roster.
func ContactsCommand(client *api.Client, args []string) error {
	fs := flag.NewFlagSet("chat contacts", flag.ExitOnError)
	query := fs.String("q", "", "Filter by name")
	online := fs.Bool("online", false, "Only show online contacts")
	_ = fs.Parse(args)

	contacts, err := client.Contacts(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list contacts: %w", err)
	}

	var shown []models.Contact
	for _, c := range models.FilterContacts(contacts, *query) {
		if *online && c.Status != models.ContactOnline {
			continue
		}
		shown = append(shown, c)
	}

	if len(shown) == 0 {
		fmt.Println("No contacts found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tSTATUS\tUNREAD\tLAST MESSAGE\tID")
	_, _ = fmt.Fprintln(w, "----\t------\t------\t------------\t--")
	for _, c := range shown {
		last := c.LastMessage
		if last == "" {
			last = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", c.Name, c.Status, c.UnreadCount, truncate(last, 40), c.ID)
	}
	_ = w.Flush()

	fmt.Printf("\nTotal: %d contact(s)\n", len(shown))
	return nil
}

// HistoryCommand prints the conversation with a contact.
func HistoryCommand(client *api.Client, args []string) error {
	fs := flag.NewFlagSet("chat history", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Most recent messages to show")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("contact ID is required")
	}
	contactID := fs.Arg(0)

	msgs, err := client.Messages(context.Background(), contactID)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if *limit > 0 && len(msgs) > *limit {
		msgs = msgs[len(msgs)-*limit:]
	}

	if len(msgs) == 0 {
		fmt.Println("No messages yet")
		return nil
	}

	for _, m := range msgs {
		who := "them"
		if m.SenderID != contactID {
			who = "me"
		}
		fmt.Printf("%s  %-4s  %s\n", m.Timestamp.Local().Format("2006-01-02 15:04"), who, session.Preview(m))
	}
	return nil
}

// SendCommand sends a text message.
func SendCommand(client *api.Client, args []string) error {
	fs := flag.NewFlagSet("chat send", flag.ExitOnError)
	_ = fs.Parse(args)

	if fs.NArg() < 2 {
		return fmt.Errorf("usage: chat send <contact-id> <text>")
	}
	text := strings.TrimSpace(strings.Join(fs.Args()[1:], " "))
	if text == "" {
		return fmt.Errorf("message text is empty")
	}

	msg, err := client.SendMessage(context.Background(), fs.Arg(0), text, models.MessageText)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	fmt.Printf("✓ Sent (ID: %s, status: %s)\n", msg.ID, msg.Status)
	return nil
}

// UploadCommand uploads a file to a conversation. Images are downscaled first.
func UploadCommand(client *api.Client, args []string) error {
	fs := flag.NewFlagSet("chat upload", flag.ExitOnError)
	_ = fs.Parse(args)

	if fs.NArg() < 2 {
		return fmt.Errorf("usage: chat upload <contact-id> <path>")
	}

	info, err := client.UploadFile(context.Background(), fs.Arg(0), fs.Arg(1))
	if err != nil {
		return err
	}

	fmt.Printf("✓ Uploaded %s (%s)\n", info.FileName, info.FileSize)
	fmt.Printf("  URL: %s\n", info.FileURL)
	return nil
}

// NotificationsCommand lists notifications, newest first.
func NotificationsCommand(client *api.Client, args []string) error {
	fs := flag.NewFlagSet("notify list", flag.ExitOnError)
	unread := fs.Bool("unread", false, "Only show unread notifications")
	_ = fs.Parse(args)

	list, err := client.Notifications(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list notifications: %w", err)
	}

	now := time.Now()
	count := 0
	for _, n := range list {
		if *unread && n.Read {
			continue
		}
		mark := " "
		if !n.Read {
			mark = "●"
		}
		fmt.Printf("%s %-14s %-24s %s\n", mark, models.FormatRelative(n.Timestamp, now), n.Title, n.Content)
		fmt.Printf("  ID: %s\n", n.ID)
		count++
	}

	if count == 0 {
		fmt.Println("No notifications")
	}
	return nil
}

func ReadNotificationCommand(client *api.Client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("notification ID is required")
	}
	if err := client.MarkNotificationRead(context.Background(), args[0]); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	fmt.Println("✓ Marked read")
	return nil
}

func ReadAllNotificationsCommand(client *api.Client, _ []string) error {
	if err := client.MarkAllNotificationsRead(context.Background()); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	fmt.Println("✓ All notifications marked read")
	return nil
}

func DeleteNotificationCommand(client *api.Client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("notification ID is required")
	}
	if err := client.DeleteNotification(context.Background(), args[0]); err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	fmt.Println("✓ Notification deleted")
	return nil
}

// CallStartCommand places the signalling request and prints the call id.
func CallStartCommand(client *api.Client, args []string) error {
	fs := flag.NewFlagSet("call start", flag.ExitOnError)
	voice := fs.Bool("voice", false, "Voice only")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("contact ID is required")
	}

	call, err := client.InitiateCall(context.Background(), fs.Arg(0), *voice)
	if err != nil {
		return fmt.Errorf("failed to start call: %w", err)
	}

	kind := "Video"
	if *voice {
		kind = "Voice"
	}
	fmt.Printf("✓ %s call started (ID: %s)\n", kind, call.CallID)
	return nil
}

func CallEndCommand(client *api.Client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("call ID is required")
	}
	if err := client.EndCall(context.Background(), args[0]); err != nil {
		return fmt.Errorf("failed to end call: %w", err)
	}
	fmt.Println("✓ Call ended")
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
