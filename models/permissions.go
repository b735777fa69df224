// ABOUTME: Fixed permission catalog grouped by category
// ABOUTME: Role permission sets are plain id collections checked against this catalog
package models

import (
	"sort"
	"strings"
)

type Permission struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type PermissionCategory struct {
	Category    string
	Permissions []Permission
}

func perms(category string, entries ...[3]string) PermissionCategory {
	pc := PermissionCategory{Category: category}
	for _, e := range entries {
		pc.Permissions = append(pc.Permissions, Permission{ID: e[0], Name: e[1], Description: e[2], Category: category})
	}
	return pc
}

// PermissionCatalog is every permission an administrator can grant to a role.
// The id "group.join" is listed under two categories; both rows share one membership bit.
var PermissionCatalog = []PermissionCategory{
	perms("Approvals",
		[3]string{"approve.all", "Approve any request system-wide", "Cross-department and global approvals, final decision"},
		[3]string{"approve.dept", "Approve department requests", "Approval rules, department data export"},
		[3]string{"approve.cross", "File cross-department requests", "Cross-department group chats, data access"},
		[3]string{"approve.sensitive", "File sensitive operation requests", "Large transfers, cross-department chat"},
		[3]string{"approve.view", "View own request progress", "Track personal request status"},
	),
	perms("User management",
		[3]string{"user.manage.all", "Add or unfreeze any member with any role", "Assign and unfreeze any role"},
		[3]string{"user.manage.dept", "Adjust department member permissions", "Temporary duty assignments"},
	),
	perms("Data management",
		[3]string{"data.export.all", "View and export all system data", "Requires self approval"},
		[3]string{"data.export.dept", "View and export department data", "Requires administrator approval"},
		[3]string{"data.clean", "Clean up non-compliant data", "Delete offending content"},
		[3]string{"data.apply", "Request export of own or department data", "Exports run only after approval"},
	),
	perms("Group chat management",
		[3]string{"group.manage.all", "Create and manage any group chat", "Approve cross-department group chats"},
		[3]string{"group.manage.dept", "Create and manage department group chats", "Approve team group chats"},
		[3]string{"group.cross.apply", "Request a cross-department group chat", "Administrator gives final approval"},
		[3]string{"group.apply", "Request a team group chat", "Department manager approves"},
		[3]string{"group.join", "Request to join a team group chat", "Both managers approve"},
	),
	perms("Basic communication",
		[3]string{"message.send", "Send messages", "Send text messages"},
		[3]string{"message.recall", "Recall messages", "Recall sent messages"},
		[3]string{"message.forward", "Forward messages", "Forward other people's messages"},
		[3]string{"message.history", "View history", "Browse chat history"},
		[3]string{"file.send", "Send files", "Upload and send files"},
		[3]string{"file.receive", "Receive files", "Receive and download files"},
		[3]string{"file.manage", "Manage files", "Manage shared files"},
		[3]string{"file.export", "Export data", "Export chat and file data"},
		[3]string{"call.voice", "Voice calls", "Start voice calls"},
		[3]string{"call.video", "Video calls", "Start video calls"},
		[3]string{"call.screen", "Screen sharing", "Share screen content"},
		[3]string{"call.record", "Call recording", "Record calls"},
	),
	perms("Group features",
		[3]string{"group.create", "Create groups", "Create new groups"},
		[3]string{"group.join", "Join groups", "Join existing groups"},
		[3]string{"group.manage", "Manage groups", "Manage group settings and members"},
		[3]string{"group.dissolve", "Dissolve groups", "Dissolve a group"},
	),
	perms("System",
		[3]string{"system.settings", "System settings", "Change system configuration"},
		[3]string{"report.view", "View reports", "View statistics reports"},
		[3]string{"audit.view", "Audit log", "View operation logs"},
		[3]string{"role.manage", "Role management", "Manage role permissions"},
	),
	perms("Data access",
		[3]string{"data.access.all", "View system overview", "Access system-level statistics"},
		[3]string{"data.access.public", "View public announcements", "Access public information and notices"},
	),
}

// CatalogIDs returns every distinct permission id in catalog order.
func CatalogIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, cat := range PermissionCatalog {
		for _, p := range cat.Permissions {
			if !seen[p.ID] {
				seen[p.ID] = true
				ids = append(ids, p.ID)
			}
		}
	}
	return ids
}

// LookupPermission finds a catalog entry by id.
func LookupPermission(id string) (Permission, bool) {
	for _, cat := range PermissionCatalog {
		for _, p := range cat.Permissions {
			if p.ID == id {
				return p, true
			}
		}
	}
	return Permission{}, false
}

// PermissionFromID returns the catalog entry for id, or a synthesized
// permission named after the id with its first segment as category.
func PermissionFromID(id string) Permission {
	if p, ok := LookupPermission(id); ok {
		return p
	}
	category := id
	if i := strings.Index(id, "."); i > 0 {
		category = id[:i]
	}
	return Permission{ID: id, Name: id, Category: category}
}

// PermissionSet is an unordered collection of permission ids.
type PermissionSet map[string]bool

func NewPermissionSet(ids []string) PermissionSet {
	s := make(PermissionSet, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = true
		}
	}
	return s
}

// Toggle flips membership of id.
func (s PermissionSet) Toggle(id string) {
	if s[id] {
		delete(s, id)
		return
	}
	s[id] = true
}

func (s PermissionSet) Has(id string) bool {
	return s[id]
}

// IDs returns the members sorted, which is the full set sent on save.
func (s PermissionSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
