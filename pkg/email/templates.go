package email

import (
	"bytes"
	"fmt"
	"html/template"
)

// PhonePlaceholder stands in for a phone number the submitter left out.
const PhonePlaceholder = "-"

// AcknowledgmentSubject is the fixed subject of the reply sent to the submitter.
const AcknowledgmentSubject = "We received your request"

// ContactEmailData holds the data for the owner notification
type ContactEmailData struct {
	Name    string
	Email   string
	Phone   string
	Service string
	Message string
}

// AcknowledgmentData holds the data for the submitter acknowledgment
type AcknowledgmentData struct {
	Name       string
	SenderName string
}

// ownerNotificationTemplate is the HTML sent to the site owner
const ownerNotificationTemplate = `<h3>New Contact Request</h3>
<p><b>Name:</b> {{.Name}}</p>
<p><b>Email:</b> {{.Email}}</p>
<p><b>Phone:</b> {{.Phone}}</p>
<p><b>Service:</b> {{.Service}}</p>
<p><b>Message:</b> {{.Message}}</p>
`

// acknowledgmentTemplate is the HTML sent back to the submitter
const acknowledgmentTemplate = `<p>Hi {{.Name}},</p>
<p>Thanks for contacting us. We'll get back to you soon.</p>
<p>&mdash; {{.SenderName}}</p>
`

var (
	ownerTmpl = template.Must(template.New("owner").Parse(ownerNotificationTemplate))
	ackTmpl   = template.Must(template.New("acknowledgment").Parse(acknowledgmentTemplate))
)

// OwnerSubject builds the subject line of the owner notification.
func OwnerSubject(name string) string {
	return "New Contact: " + name
}

// RenderOwnerNotification renders the owner notification body. Submitted
// values are HTML-escaped.
func RenderOwnerNotification(data ContactEmailData) (string, error) {
	if data.Phone == "" {
		data.Phone = PhonePlaceholder
	}
	return render(ownerTmpl, data)
}

// RenderAcknowledgment renders the body of the reply to the submitter.
func RenderAcknowledgment(data AcknowledgmentData) (string, error) {
	return render(ackTmpl, data)
}

func render(tmpl *template.Template, data any) (string, error) {
	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return "", fmt.Errorf("failed to execute %s template: %w", tmpl.Name(), err)
	}
	return body.String(), nil
}
