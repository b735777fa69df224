// ABOUTME: Notification center endpoints
// ABOUTME: Lists, marks read and deletes the signed-in user's notifications
package api

import (
	"context"

	"github.com/harperreed/telemsg/models"
)

// Notifications lists the current user's notifications with categories normalized.
func (c *Client) Notifications(ctx context.Context) ([]models.Notification, error) {
	var raw []struct {
		models.Notification
		Data struct {
			Avatar string `json:"avatar"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/notifications", &raw); err != nil {
		return nil, err
	}
	out := make([]models.Notification, 0, len(raw))
	for _, r := range raw {
		n := r.Notification
		n.Type = models.NormalizeNotificationType(string(n.Type))
		if n.Avatar == "" {
			n.Avatar = r.Data.Avatar
		}
		out = append(out, n)
	}
	return out, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.put(ctx, "/notifications/"+escape(id)+"/read", nil, nil)
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.put(ctx, "/notifications/read-all", nil, nil)
}

func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	return c.del(ctx, "/notifications/"+escape(id))
}
