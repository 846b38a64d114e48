package mailer

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	"strings"
	texttemplate "text/template"
	"time"
)

const dateLayout = "Jan 2, 2006 15:04 MST"

var funcs = map[string]any{
	"date": func(t time.Time) string { return t.Format(dateLayout) },
}

var requestHTML = htmltemplate.Must(htmltemplate.New("request").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>New Access Request</title></head>
<body style="font-family: sans-serif; background-color: #f9fafb; color: #111827;">
<div style="max-width: 600px; margin: 0 auto; padding: 20px; background-color: #ffffff; border: 1px solid #e5e7eb; border-radius: 12px;">
  <h2>New Access Request</h2>
  <p><strong>Project:</strong> {{.ProjectTitle}}</p>
  <p><strong>From:</strong> {{.Email}}</p>
  <p><strong>Date:</strong> {{date .Date}}</p>
  <p><strong>Message:</strong></p>
  <p style="white-space: pre-wrap;">{{.Message}}</p>
  <p><a href="{{.AdminURL}}" style="padding: 10px 15px; background-color: #4F46E5; color: white; text-decoration: none; border-radius: 5px; display: inline-block;">Go to Admin Panel</a></p>
</div>
</body>
</html>
`))

var requestText = texttemplate.Must(texttemplate.New("request").Funcs(funcs).Parse(`New Access Request

Project: {{.ProjectTitle}}
From: {{.Email}}
Date: {{date .Date}}

Message:
{{.Message}}

Admin panel: {{.AdminURL}}
`))

var approvalHTML = htmltemplate.Must(htmltemplate.New("approval").Funcs(funcs).Parse(`<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #4F46E5;">Access Granted</h2>
  <p>You've been granted access to <strong>{{.ProjectTitle}}</strong>.</p>
  <p>Click the button below to view the project:</p>
  <div style="margin: 30px 0;">
    <a href="{{.AccessURL}}" style="padding: 10px 15px; background-color: #4F46E5; color: white; text-decoration: none; border-radius: 5px; display: inline-block;">View Project</a>
  </div>
  <p style="color: #666; font-size: 14px;">This access link will expire on {{date .Expires}}.</p>
  <p style="color: #666; font-size: 14px;">If the button doesn't work, copy and paste this URL into your browser:</p>
  <p style="word-break: break-all; font-size: 14px;">{{.AccessURL}}</p>
</div>
`))

var approvalText = texttemplate.Must(texttemplate.New("approval").Funcs(funcs).Parse(`Access Granted

You've been granted access to {{.ProjectTitle}}.

View the project: {{.AccessURL}}

This access link will expire on {{date .Expires}}.
`))

// RequestData fills the access request email sent to the administrator.
type RequestData struct {
	ProjectID    string
	ProjectTitle string
	Email        string
	Message      string
	Date         time.Time
	AdminURL     string
}

// ApprovalData fills the approval email sent to the requester.
type ApprovalData struct {
	ProjectID    string
	ProjectTitle string
	Email        string
	Token        string
	Expires      time.Time
	AccessURL    string
}

// Composer builds the two notification emails.
type Composer struct {
	From       string
	AdminEmail string
	SiteURL    string
	Location   *time.Location
}

// AccessRequest builds the administrator notification for a new request.
func (c Composer) AccessRequest(d RequestData) (Message, error) {
	if d.ProjectTitle == "" {
		d.ProjectTitle = d.ProjectID
	}
	if strings.TrimSpace(d.Message) == "" {
		d.Message = "No message provided"
	}
	if d.AdminURL == "" {
		d.AdminURL = strings.TrimRight(c.SiteURL, "/") + "/admin"
	}
	d.Date = c.local(d.Date)

	html, text, err := render(requestHTML, requestText, d)
	if err != nil {
		return Message{}, fmt.Errorf("render request email: %w", err)
	}
	return Message{
		From:    c.from(),
		To:      c.AdminEmail,
		ReplyTo: d.Email,
		Subject: "New Access Request: " + d.ProjectTitle,
		HTML:    html,
		Text:    text,
	}, nil
}

// AccessApproved builds the requester notification carrying the access link.
func (c Composer) AccessApproved(d ApprovalData) (Message, error) {
	if d.ProjectTitle == "" {
		d.ProjectTitle = d.ProjectID
	}
	if d.AccessURL == "" {
		d.AccessURL = AccessLink(c.SiteURL, d.ProjectID, d.Token)
	}
	d.Expires = c.local(d.Expires)

	html, text, err := render(approvalHTML, approvalText, d)
	if err != nil {
		return Message{}, fmt.Errorf("render approval email: %w", err)
	}
	return Message{
		From:    c.from(),
		To:      d.Email,
		Subject: "Access Granted: " + d.ProjectTitle,
		HTML:    html,
		Text:    text,
	}, nil
}

func (c Composer) from() string {
	if c.From == "" {
		return DefaultFrom
	}
	return c.From
}

func (c Composer) local(t time.Time) time.Time {
	if c.Location != nil {
		return t.In(c.Location)
	}
	return t
}

// AccessLink returns the link that unlocks projectID with token.
func AccessLink(siteURL, projectID, token string) string {
	q := url.Values{"access_token": {token}}
	return strings.TrimRight(siteURL, "/") + "/work/" + url.PathEscape(projectID) + "?" + q.Encode()
}

func render(h *htmltemplate.Template, t *texttemplate.Template, data any) (string, string, error) {
	var hb, tb bytes.Buffer
	if err := h.Execute(&hb, data); err != nil {
		return "", "", err
	}
	if err := t.Execute(&tb, data); err != nil {
		return "", "", err
	}
	return hb.String(), tb.String(), nil
}
