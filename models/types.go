// ABOUTME: Data models for TeleMsg entities
// ABOUTME: Defines users, contacts, messages, notifications and admin records
package models

import (
	"errors"
	"fmt"
	"time"
)

type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserInactive  UserStatus = "inactive"
	UserSuspended UserStatus = "suspended"
)

type User struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Username   string     `json:"username"`
	Avatar     string     `json:"avatar,omitempty"`
	Role       string     `json:"role,omitempty"`
	Department string     `json:"department,omitempty"`
	Status     UserStatus `json:"status,omitempty"`
	IsAdmin    bool       `json:"isAdmin,omitempty"`
	LastActive string     `json:"lastActive,omitempty"`
	CreatedAt  string     `json:"createdAt,omitempty"`
}

type ContactStatus string

const (
	ContactOnline  ContactStatus = "online"
	ContactOffline ContactStatus = "offline"
	ContactBusy    ContactStatus = "busy"
)

// Contact is a user as seen from the current user's roster.
type Contact struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Avatar      string        `json:"avatar,omitempty"`
	Status      ContactStatus `json:"status"`
	LastMessage string        `json:"lastMessage,omitempty"`
	UnreadCount int           `json:"unreadCount,omitempty"`
	LastSeen    string        `json:"lastSeen,omitempty"`
}

// BumpUnread increments the unread counter by one.
func (c *Contact) BumpUnread() {
	if c.UnreadCount < 0 {
		c.UnreadCount = 0
	}
	c.UnreadCount++
}

func (c *Contact) ResetUnread() {
	c.UnreadCount = 0
}

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageFile  MessageType = "file"
	MessageImage MessageType = "image"
)

type MessageStatus string

const (
	StatusSending MessageStatus = "sending"
	StatusSent    MessageStatus = "sent"
	StatusRead    MessageStatus = "read"
)

// ErrStatusRegression is returned when a message status would move backwards.
var ErrStatusRegression = errors.New("message status cannot move backwards")

func (s MessageStatus) rank() int {
	switch s {
	case StatusSending:
		return 0
	case StatusSent:
		return 1
	case StatusRead:
		return 2
	}
	return -1
}

func (s MessageStatus) Valid() bool {
	return s.rank() >= 0
}

type Message struct {
	ID        string        `json:"id"`
	SenderID  string        `json:"senderId"`
	Content   string        `json:"content"`
	Timestamp time.Time     `json:"timestamp"`
	Type      MessageType   `json:"type"`
	FileURL   string        `json:"fileUrl,omitempty"`
	FileName  string        `json:"fileName,omitempty"`
	FileSize  string        `json:"fileSize,omitempty"`
	Status    MessageStatus `json:"status"`
}

// Promote moves the message forward through sending -> sent -> read.
// Promoting to the current status is a no-op.
func (m *Message) Promote(next MessageStatus) error {
	if !next.Valid() {
		return fmt.Errorf("unknown message status %q", next)
	}
	if next.rank() < m.Status.rank() {
		return fmt.Errorf("%w: %s -> %s", ErrStatusRegression, m.Status, next)
	}
	m.Status = next
	return nil
}

// FileInfo is the backend's answer to a file upload.
type FileInfo struct {
	ID       string `json:"id"`
	FileURL  string `json:"fileUrl"`
	FileName string `json:"fileName"`
	FileSize string `json:"fileSize"`
}

type NotificationType string

const (
	NotifyMessage       NotificationType = "message"
	NotifyFriendRequest NotificationType = "friend_request"
	NotifyFile          NotificationType = "file"
	NotifyCall          NotificationType = "call"
	NotifySystem        NotificationType = "system"
)

// NormalizeNotificationType maps server notification kinds onto the
// categories the client renders. Approval and warning notices are system notices.
func NormalizeNotificationType(kind string) NotificationType {
	switch NotificationType(kind) {
	case NotifyMessage, NotifyFriendRequest, NotifyFile, NotifyCall:
		return NotificationType(kind)
	}
	return NotifySystem
}

type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Content   string           `json:"content"`
	Timestamp time.Time        `json:"timestamp"`
	Read      bool             `json:"read"`
	Avatar    string           `json:"avatar,omitempty"`
}

type Department struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Parent      string `json:"parent,omitempty"`
	Manager     string `json:"manager"`
	MemberCount int    `json:"memberCount"`
	Description string `json:"description,omitempty"`
}

type Role struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	UserCount   int      `json:"userCount"`
	Permissions []string `json:"permissions"`
}

type SystemStats struct {
	TotalUsers       int     `json:"totalUsers"`
	OnlineUsers      int     `json:"onlineUsers"`
	TotalMessages    int     `json:"totalMessages"`
	StorageUsed      float64 `json:"storageUsed"`
	TotalDepartments int     `json:"totalDepartments,omitempty"`
	TotalRoles       int     `json:"totalRoles,omitempty"`
}

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// ErrApprovalDecided is returned when a non-pending request is decided again.
var ErrApprovalDecided = errors.New("approval request already decided")

type ApprovalRequest struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	RequesterID   string         `json:"requesterId"`
	RequesterName string         `json:"requesterName"`
	Status        ApprovalStatus `json:"status"`
	CreatedAt     string         `json:"createdAt"`
	Data          map[string]any `json:"data,omitempty"`
	Comment       string         `json:"comment,omitempty"`
	Reason        string         `json:"reason,omitempty"`
}

// Decide moves a pending request into a terminal state.
func (a *ApprovalRequest) Decide(approve bool, note string) error {
	if a.Status != ApprovalPending {
		return fmt.Errorf("%w: %s is %s", ErrApprovalDecided, a.ID, a.Status)
	}
	if approve {
		a.Status = ApprovalApproved
		a.Comment = note
	} else {
		a.Status = ApprovalRejected
		a.Reason = note
	}
	return nil
}

type OperationLog struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	Action    string `json:"action"`
	Details   string `json:"details"`
	Timestamp string `json:"timestamp"`
	IPAddress string `json:"ipAddress,omitempty"`
}

// LogFilter narrows the operation log query. Empty fields are not sent.
type LogFilter struct {
	UserID    string
	Action    string
	StartDate string
	EndDate   string
}

// CallSession is what the backend returns when a call is initiated.
type CallSession struct {
	CallID     string         `json:"callId"`
	SignalData map[string]any `json:"signalData,omitempty"`
}

// Preferences are the user-facing settings that sync across devices.
type Preferences struct {
	Notifications bool   `json:"notifications"`
	Sound         bool   `json:"sound"`
	Desktop       bool   `json:"desktop"`
	Theme         string `json:"theme"`
	Language      string `json:"language"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		Notifications: true,
		Sound:         true,
		Desktop:       true,
		Theme:         "light",
		Language:      "en",
	}
}
