// ABOUTME: User-facing text for login and registration failures
// ABOUTME: Maps transport failures onto messages and validates the auth forms
package api

import (
	"errors"
	"strconv"
	"strings"

	"github.com/harperreed/telemsg/models"
)

const (
	MsgWrongCredentials = "Incorrect username or password"
	MsgAccountDisabled  = "Account disabled, contact your administrator"
	MsgUserNotFound     = "User does not exist"
	MsgNetworkFailed    = "Network connection failed, check your network"
	MsgLoginFailed      = "Login failed, please try again later"

	MsgRegisterIncomplete = "Registration details are incomplete"
	MsgUsernameTaken      = "That username is already taken"
	MsgRegisterFailed     = "Registration failed, please try again later"
)

// failureStatus returns the HTTP status of err and whether it was a network failure.
// Untyped errors fall back to matching the status code in their text.
func failureStatus(err error) (int, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status, apiErr.Kind == KindNetwork
	}
	text := err.Error()
	for _, code := range []int{400, 401, 403, 404, 409} {
		if strings.Contains(text, strconv.Itoa(code)) {
			return code, false
		}
	}
	return 0, strings.Contains(strings.ToLower(text), "network")
}

// DescribeLoginError turns a login failure into the message shown on the form.
func DescribeLoginError(err error) string {
	if err == nil {
		return ""
	}
	status, network := failureStatus(err)
	switch {
	case status == 401:
		return MsgWrongCredentials
	case status == 403:
		return MsgAccountDisabled
	case status == 404:
		return MsgUserNotFound
	case network:
		return MsgNetworkFailed
	}
	return MsgLoginFailed
}

// DescribeRegisterError turns a registration failure into the message shown on the form.
func DescribeRegisterError(err error) string {
	if err == nil {
		return ""
	}
	status, network := failureStatus(err)
	switch {
	case status == 400:
		return MsgRegisterIncomplete
	case status == 409:
		return MsgUsernameTaken
	case network:
		return MsgNetworkFailed
	}
	return MsgRegisterFailed
}

// ValidateLogin checks the login form before any request is made.
// It returns the problem to show, or "" when the form is complete.
func ValidateLogin(username, password string) string {
	if strings.TrimSpace(username) == "" {
		return "Please enter your username"
	}
	if password == "" {
		return "Please enter your password"
	}
	return ""
}

// ValidateRegistration checks the registration form before any request is made.
func ValidateRegistration(name, username, password, confirm string) string {
	switch {
	case strings.TrimSpace(name) == "":
		return "Please enter your name"
	case strings.TrimSpace(username) == "":
		return "Please enter a username"
	case len([]rune(username)) < 3:
		return "Username must be at least 3 characters"
	case password == "":
		return "Please enter a password"
	case len([]rune(password)) < 6:
		return "Password must be at least 6 characters"
	case password != confirm:
		return "The two passwords do not match"
	}
	return ""
}

// NormalizeUser fills display defaults the backend may omit.
func NormalizeUser(u *models.User, fallbackName string) {
	if u.Name == "" {
		if fallbackName != "" {
			u.Name = fallbackName
		} else {
			u.Name = u.Username
		}
	}
	if u.Avatar == "" {
		u.Avatar = models.AvatarURL(u.Username)
	}
}
