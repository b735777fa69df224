// ABOUTME: Contact, message, file and call endpoints
// ABOUTME: File upload bypasses JSON and sends multipart form data
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/harperreed/telemsg/media"
	"github.com/harperreed/telemsg/models"
)

func (c *Client) Contacts(ctx context.Context) ([]models.Contact, error) {
	var out []models.Contact
	if err := c.get(ctx, "/contacts", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AddContact(ctx context.Context, userID string) (*models.Contact, error) {
	var out models.Contact
	if err := c.post(ctx, "/contacts", map[string]string{"userId": userID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteContact(ctx context.Context, contactID string) error {
	return c.del(ctx, "/contacts/"+escape(contactID))
}

func (c *Client) Messages(ctx context.Context, contactID string) ([]models.Message, error) {
	var out []models.Message
	if err := c.get(ctx, "/messages/"+escape(contactID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SendMessage(ctx context.Context, recipientID, content string, kind models.MessageType) (*models.Message, error) {
	if kind == "" {
		kind = models.MessageText
	}
	body := map[string]string{"recipientId": recipientID, "content": content, "type": string(kind)}
	var out models.Message
	if err := c.post(ctx, "/messages", body, &out); err != nil {
		return nil, err
	}
	if out.Status == "" {
		out.Status = models.StatusSent
	}
	return &out, nil
}

func (c *Client) MarkMessageRead(ctx context.Context, messageID string) error {
	return c.put(ctx, "/messages/"+escape(messageID)+"/read", nil, nil)
}

// UploadFile sends path as multipart form data addressed to contactID.
// Images are downscaled before sending.
func (c *Client) UploadFile(ctx context.Context, contactID, path string) (*models.FileInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	name := filepath.Base(path)
	data, err = media.Prepare(name, data)
	if err != nil {
		return nil, err
	}
	return c.Upload(ctx, contactID, name, bytes.NewReader(data))
}

// Upload streams r as the "file" part of a multipart form.
func (c *Client) Upload(ctx context.Context, contactID, fileName string, r io.Reader) (*models.FileInfo, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}
	if err := mw.WriteField("contactId", contactID); err != nil {
		return nil, fmt.Errorf("failed to write form field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/files/upload", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, networkError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &Error{
			Kind:    KindUpload,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("upload failed: status %d", resp.StatusCode),
		}
	}

	var info models.FileInfo
	if err := decodeBody(resp.Body, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) InitiateCall(ctx context.Context, contactID string, voiceOnly bool) (*models.CallSession, error) {
	body := map[string]any{"contactId": contactID, "isVoiceOnly": voiceOnly}
	var out models.CallSession
	if err := c.post(ctx, "/calls/initiate", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AnswerCall(ctx context.Context, callID string, signal map[string]any) error {
	return c.post(ctx, "/calls/answer", map[string]any{"callId": callID, "signalData": signal}, nil)
}

func (c *Client) EndCall(ctx context.Context, callID string) error {
	return c.post(ctx, "/calls/end", map[string]string{"callId": callID}, nil)
}
