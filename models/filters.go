// ABOUTME: Search filters and display formatting shared by views and CLI
// ABOUTME: Case-insensitive substring matching, relative times and call durations
package models

import (
	"fmt"
	"strings"
	"time"
)

func containsFold(s, q string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(q))
}

// FilterUsers matches on name, username or department.
func FilterUsers(users []User, query string) []User {
	query = strings.TrimSpace(query)
	if query == "" {
		return users
	}
	var out []User
	for _, u := range users {
		if containsFold(u.Name, query) || containsFold(u.Username, query) || containsFold(u.Department, query) {
			out = append(out, u)
		}
	}
	return out
}

// FilterMembers matches role or department members on name, username, role or department.
func FilterMembers(members []User, query string) []User {
	query = strings.TrimSpace(query)
	if query == "" {
		return members
	}
	var out []User
	for _, m := range members {
		if containsFold(m.Name, query) || containsFold(m.Username, query) ||
			containsFold(m.Role, query) || containsFold(m.Department, query) {
			out = append(out, m)
		}
	}
	return out
}

func FilterContacts(contacts []Contact, query string) []Contact {
	query = strings.TrimSpace(query)
	if query == "" {
		return contacts
	}
	var out []Contact
	for _, c := range contacts {
		if containsFold(c.Name, query) {
			out = append(out, c)
		}
	}
	return out
}

func FilterDepartments(depts []Department, query string) []Department {
	query = strings.TrimSpace(query)
	if query == "" {
		return depts
	}
	var out []Department
	for _, d := range depts {
		if containsFold(d.Name, query) || containsFold(d.Manager, query) {
			out = append(out, d)
		}
	}
	return out
}

// FormatRelative renders t relative to now the way the notification list shows it.
func FormatRelative(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	minutes := int(now.Sub(t).Minutes())
	if minutes < 1 {
		return "just now"
	}
	if minutes < 60 {
		return fmt.Sprintf("%d minutes ago", minutes)
	}
	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%d hours ago", hours)
	}
	days := hours / 24
	if days == 1 {
		return "yesterday"
	}
	if days < 7 {
		return fmt.Sprintf("%d days ago", days)
	}
	return t.Local().Format("2006-01-02")
}

// FormatDuration renders elapsed seconds as mm:ss.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// AvatarURL returns the generated avatar for a username.
func AvatarURL(username string) string {
	return "https://api.dicebear.com/7.x/avataaars/svg?seed=" + username
}

// Initials returns up to two leading runes of name for avatar placeholders.
func Initials(name string) string {
	r := []rune(strings.TrimSpace(name))
	if len(r) > 2 {
		r = r[:2]
	}
	return strings.ToUpper(string(r))
}
