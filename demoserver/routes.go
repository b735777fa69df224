// ABOUTME: REST routes of the demo backend
// ABOUTME: Auth, roster, messages, files, calls and notifications
package demoserver

import (
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/harperreed/telemsg/media"
	"github.com/harperreed/telemsg/models"
)

func (s *Server) registerRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.POST("/auth/login", s.login)
	api.POST("/auth/register", s.register)
	api.GET("/ws", s.websocket)

	authed := api.Group("")
	authed.Use(s.authRequired)
	{
		authed.POST("/auth/logout", s.logout)
		authed.GET("/users/me", s.me)
		authed.PUT("/users/profile", s.updateProfile)

		authed.GET("/contacts", s.listContacts)
		authed.POST("/contacts", s.addContact)
		authed.DELETE("/contacts/:id", s.deleteContact)

		authed.GET("/messages/:contactId", s.listMessages)
		authed.POST("/messages", s.sendMessage)
		authed.PUT("/messages/:id/read", s.markMessageRead)

		authed.POST("/files/upload", s.uploadFile)
		authed.GET("/files/:id", s.downloadFile)

		authed.POST("/calls/initiate", s.initiateCall)
		authed.POST("/calls/answer", s.answerCall)
		authed.POST("/calls/end", s.endCall)

		authed.GET("/notifications", s.listNotifications)
		authed.PUT("/notifications/read-all", s.markAllNotificationsRead)
		authed.PUT("/notifications/:id/read", s.markNotificationRead)
		authed.DELETE("/notifications/:id", s.deleteNotification)

		admin := authed.Group("/admin")
		admin.Use(s.adminRequired)
		s.registerAdminRoutes(admin)
	}
}

func (s *Server) login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	s.mu.Lock()
	acct := s.findByUsername(req.Username)
	if acct == nil {
		s.mu.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(req.Password)) != nil {
		s.mu.Unlock()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if acct.user.Status == models.UserSuspended {
		s.mu.Unlock()
		c.JSON(http.StatusForbidden, gin.H{"error": "account disabled"})
		return
	}
	user := s.userView(acct)
	s.appendLog(acct.user.ID, "login", "Signed in", c.ClientIP())
	s.mu.Unlock()

	token, err := s.IssueToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (s *Server) register(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" || len(req.Username) < 3 || len(req.Password) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, username (3+) and password (6+) are required"})
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	if s.findByUsername(req.Username) != nil {
		s.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"error": "username already registered"})
		return
	}
	id := s.newID()
	acct := &account{
		user: models.User{
			ID:        id,
			Name:      req.Name,
			Username:  req.Username,
			Avatar:    models.AvatarURL(req.Username),
			Status:    models.UserActive,
			CreatedAt: s.now().Format("2006-01-02"),
		},
		passwordHash: hash,
		roleID:       "3",
	}
	s.accounts[id] = acct
	s.order = append(s.order, id)
	for _, other := range s.order {
		if other != id {
			s.rosters[id] = append(s.rosters[id], other)
			s.rosters[other] = append(s.rosters[other], id)
		}
	}
	user := s.userView(acct)
	s.appendLog(id, "register", "Created account", c.ClientIP())
	s.mu.Unlock()

	token, err := s.IssueToken(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (s *Server) logout(c *gin.Context) {
	s.mu.Lock()
	s.revoked[c.GetString("token")] = true
	s.appendLog(c.GetString("userID"), "logout", "Signed out", c.ClientIP())
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"message": "signed out"})
}

func (s *Server) me(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.userView(s.accounts[c.GetString("userID")]))
}

func (s *Server) updateProfile(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Username string `json:"username"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Username) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and username are required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.accounts[c.GetString("userID")]
	if other := s.findByUsername(req.Username); other != nil && other != acct {
		c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
		return
	}
	acct.user.Name = req.Name
	acct.user.Username = req.Username
	s.appendLog(acct.user.ID, "update_profile", "Updated profile", c.ClientIP())
	c.JSON(http.StatusOK, s.userView(acct))
}

func (s *Server) listContacts(c *gin.Context) {
	me := c.GetString("userID")
	s.mu.Lock()
	ids := append([]string(nil), s.rosters[me]...)
	s.mu.Unlock()

	contacts := make([]models.Contact, 0, len(ids))
	for _, id := range ids {
		if contact, ok := s.contactView(me, id); ok {
			contacts = append(contacts, contact)
		}
	}
	c.JSON(http.StatusOK, contacts)
}

func (s *Server) addContact(c *gin.Context) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}
	me := c.GetString("userID")
	s.mu.Lock()
	if s.accounts[req.UserID] == nil || req.UserID == me {
		s.mu.Unlock()
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown user"})
		return
	}
	if !contains(s.rosters[me], req.UserID) {
		s.rosters[me] = append(s.rosters[me], req.UserID)
	}
	s.mu.Unlock()

	contact, _ := s.contactView(me, req.UserID)
	c.JSON(http.StatusOK, contact)
}

func (s *Server) deleteContact(c *gin.Context) {
	me := c.GetString("userID")
	s.mu.Lock()
	s.rosters[me] = remove(s.rosters[me], c.Param("id"))
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (s *Server) listMessages(c *gin.Context) {
	me, other := c.GetString("userID"), c.Param("contactId")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Message{}
	for _, m := range s.messages {
		if (m.SenderID == me && m.RecipientID == other) || (m.SenderID == other && m.RecipientID == me) {
			out = append(out, m.Message)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) sendMessage(c *gin.Context) {
	var req struct {
		RecipientID string             `json:"recipientId"`
		Content     string             `json:"content"`
		Type        models.MessageType `json:"type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RecipientID == "" || req.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recipientId and content are required"})
		return
	}
	if req.Type == "" {
		req.Type = models.MessageText
	}
	msg, ok := s.storeMessage(c.GetString("userID"), req.RecipientID, models.Message{Content: req.Content, Type: req.Type})
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown recipient"})
		return
	}
	c.JSON(http.StatusOK, msg)
}

// storeMessage records a message and pushes it to the recipient.
func (s *Server) storeMessage(from, to string, m models.Message) (models.Message, bool) {
	s.mu.Lock()
	if s.accounts[to] == nil {
		s.mu.Unlock()
		return models.Message{}, false
	}
	m.ID = s.newID()
	m.SenderID = from
	m.Timestamp = s.now()
	m.Status = models.StatusSent
	s.messages = append(s.messages, storedMessage{Message: m, RecipientID: to})
	s.mu.Unlock()

	s.hub.push(to, gin.H{"type": "message", "message": m})
	return m, true
}

func (s *Server) markMessageRead(c *gin.Context) {
	me, id := c.GetString("userID"), c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		m := &s.messages[i]
		if m.ID == id && m.RecipientID == me {
			_ = m.Promote(models.StatusRead)
			c.JSON(http.StatusOK, m.Message)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
}

func (s *Server) uploadFile(c *gin.Context) {
	contactID := c.PostForm("contactId")
	fh, err := c.FormFile("file")
	if err != nil || contactID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file and contactId are required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fileID := uuid.NewString()
	stored := storedFile{name: fh.Filename, data: data}
	kind := models.MessageFile
	if media.IsImage(fh.Filename) {
		kind = models.MessageImage
		if thumb, err := media.Thumbnail(data, 320); err == nil {
			stored.thumbnail = thumb
		}
	}
	s.mu.Lock()
	s.files[fileID] = stored
	s.mu.Unlock()

	size := media.HumanSize(int64(len(data)))
	url := "/api/files/" + fileID
	msg, ok := s.storeMessage(c.GetString("userID"), contactID, models.Message{
		Content:  fh.Filename,
		Type:     kind,
		FileURL:  url,
		FileName: fh.Filename,
		FileSize: size,
	})
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown contact"})
		return
	}
	c.JSON(http.StatusOK, models.FileInfo{ID: msg.ID, FileURL: url, FileName: fh.Filename, FileSize: size})
}

func (s *Server) downloadFile(c *gin.Context) {
	s.mu.Lock()
	f, ok := s.files[c.Param("id")]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	data := f.data
	if c.Query("thumb") == "1" && f.thumbnail != nil {
		data = f.thumbnail
	}
	c.Header("Content-Disposition", "attachment; filename=\""+f.name+"\"")
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}

func (s *Server) initiateCall(c *gin.Context) {
	var req struct {
		ContactID   string `json:"contactId"`
		IsVoiceOnly bool   `json:"isVoiceOnly"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ContactID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "contactId is required"})
		return
	}
	me := c.GetString("userID")
	callID := uuid.NewString()

	s.mu.Lock()
	caller := s.accounts[me].user.Name
	n := models.Notification{
		ID:        s.newID(),
		Type:      models.NotifyCall,
		Title:     "Incoming call",
		Content:   caller + " is calling you",
		Timestamp: s.now(),
	}
	s.notifications[req.ContactID] = append(s.notifications[req.ContactID], n)
	s.mu.Unlock()

	s.hub.push(req.ContactID, gin.H{"type": "notification", "notification": n})
	c.JSON(http.StatusOK, models.CallSession{CallID: callID, SignalData: map[string]any{"voiceOnly": req.IsVoiceOnly}})
}

func (s *Server) answerCall(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "answered"})
}

func (s *Server) endCall(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "ended"})
}

func (s *Server) listNotifications(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]models.Notification{}, s.notifications[c.GetString("userID")]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	c.JSON(http.StatusOK, out)
}

func (s *Server) markNotificationRead(c *gin.Context) {
	me, id := c.GetString("userID"), c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications[me] {
		if s.notifications[me][i].ID == id {
			s.notifications[me][i].Read = true
			c.JSON(http.StatusOK, gin.H{"message": "ok"})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
}

func (s *Server) markAllNotificationsRead(c *gin.Context) {
	me := c.GetString("userID")
	s.mu.Lock()
	for i := range s.notifications[me] {
		s.notifications[me][i].Read = true
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (s *Server) deleteNotification(c *gin.Context) {
	me, id := c.GetString("userID"), c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.notifications[me]
	for i := range list {
		if list[i].ID == id {
			s.notifications[me] = append(list[:i], list[i+1:]...)
			c.JSON(http.StatusOK, gin.H{"message": "deleted"})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
}

// websocket upgrades /api/ws?token=...&userId=...
func (s *Server) websocket(c *gin.Context) {
	userID, err := s.parseToken(c.Query("token"))
	if err != nil || userID != c.Query("userId") {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid socket credentials"})
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("socket upgrade failed", "err", err)
		return
	}
	s.hub.serve(userID, conn)
}

// onInboundFrame relays chat frames sent over the socket to their recipient.
func (s *Server) onInboundFrame(userID string, frame []byte) {
	var in struct {
		Type        string          `json:"type"`
		Message     json.RawMessage `json:"message"`
		RecipientID string          `json:"recipientId"`
	}
	if err := json.Unmarshal(frame, &in); err != nil {
		s.logger.Debug("ignoring undecodable frame", "user", userID, "err", err)
		return
	}
	if in.Type != "message" || in.RecipientID == "" {
		return
	}
	var m models.Message
	if err := json.Unmarshal(in.Message, &m); err != nil || m.SenderID != userID {
		return
	}
	s.hub.push(in.RecipientID, gin.H{"type": "message", "message": m})
}

// onPresence tells everyone who lists userID as a contact about the change.
func (s *Server) onPresence(userID string, online bool) {
	status := models.ContactOffline
	if online {
		status = models.ContactOnline
	}
	s.mu.Lock()
	var watchers []string
	for owner, roster := range s.rosters {
		if contains(roster, userID) {
			watchers = append(watchers, owner)
		}
	}
	s.mu.Unlock()
	for _, w := range watchers {
		s.hub.push(w, gin.H{"type": "contact_status", "contactId": userID, "status": status})
	}
}

// Caller holds s.mu.
func (s *Server) findByUsername(username string) *account {
	for _, a := range s.accounts {
		if strings.EqualFold(a.user.Username, username) {
			return a
		}
	}
	return nil
}

// userView renders an account with its role and department names. Caller holds s.mu.
func (s *Server) userView(a *account) models.User {
	u := a.user
	for _, r := range s.roles {
		if r.ID == a.roleID {
			u.Role = r.Name
		}
	}
	for _, d := range s.departments {
		if d.ID == a.deptID {
			u.Department = d.Name
		}
	}
	return u
}

func (s *Server) contactView(me, id string) (models.Contact, bool) {
	s.mu.Lock()
	a := s.accounts[id]
	if a == nil {
		s.mu.Unlock()
		return models.Contact{}, false
	}
	contact := models.Contact{ID: id, Name: a.user.Name, Avatar: a.user.Avatar, Status: models.ContactOffline, LastSeen: "a while ago"}
	for _, m := range s.messages {
		between := (m.SenderID == me && m.RecipientID == id) || (m.SenderID == id && m.RecipientID == me)
		if !between {
			continue
		}
		contact.LastMessage = m.Content
		if m.SenderID == id && m.Status != models.StatusRead {
			contact.UnreadCount++
		}
	}
	s.mu.Unlock()

	if s.hub.online(id) {
		contact.Status = models.ContactOnline
		contact.LastSeen = ""
	}
	return contact, true
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func remove(list []string, v string) []string {
	out := list[:0]
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
