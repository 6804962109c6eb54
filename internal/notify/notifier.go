package notify

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/esiqveland/notify"
	"github.com/godbus/dbus/v5"

	"calsched/internal/event"
	"calsched/internal/timeutil"
)

// defaultBodyTemplate renders the notification body for an upcoming event.
const defaultBodyTemplate = `Starts at {{.Start}}{{if .Location}} ({{.Location}}){{end}}{{if .Description}}
{{.Description}}{{end}}`

// templateData is the data available to the body template.
type templateData struct {
	Subject     string
	Description string
	Location    string
	Start       string
	End         string
	Lead        string
}

// Notifier announces upcoming events to the user.
type Notifier interface {
	Announce(e event.Event, lead time.Duration) error
	Close() error
}

// DBusNotifier implements Notifier over the desktop notification D-Bus
// service.
type DBusNotifier struct {
	conn     *dbus.Conn
	notifier notify.Notifier
	tmpl     *template.Template
	timeout  time.Duration
}

// NewDBusNotifier connects to the session bus and prepares the default
// body template. durationMS controls how long notifications stay visible.
func NewDBusNotifier(durationMS int) (*DBusNotifier, error) {
	conn, err := dbus.SessionBusPrivate()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	if err = conn.Auth(nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to authenticate on session bus: %w", err)
	}
	if err = conn.Hello(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to greet session bus: %w", err)
	}

	notifier, err := notify.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create notifier: %w", err)
	}

	tmpl, err := template.New("notification").Parse(defaultBodyTemplate)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to parse notification template: %w", err)
	}

	return &DBusNotifier{
		conn:     conn,
		notifier: notifier,
		tmpl:     tmpl,
		timeout:  time.Duration(durationMS) * time.Millisecond,
	}, nil
}

// Announce sends a desktop notification for an event starting within the
// lead window.
func (n *DBusNotifier) Announce(e event.Event, lead time.Duration) error {
	body, err := n.renderBody(e, lead)
	if err != nil {
		return err
	}

	_, err = n.notifier.SendNotification(notify.Notification{
		AppName:       "calsched",
		Summary:       e.Subject,
		Body:          body,
		ExpireTimeout: n.timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to send notification for %q: %w", e.Subject, err)
	}
	return nil
}

// renderBody fills the body template from the event.
func (n *DBusNotifier) renderBody(e event.Event, lead time.Duration) (string, error) {
	data := templateData{
		Subject:     e.Subject,
		Description: e.Description,
		Location:    e.Location,
		Start:       e.Start.Format(timeutil.DateTimeLayout),
		End:         e.End.Format(timeutil.DateTimeLayout),
		Lead:        lead.String(),
	}

	var buf bytes.Buffer
	if err := n.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render notification body: %w", err)
	}
	return buf.String(), nil
}

// Close releases the D-Bus connection.
func (n *DBusNotifier) Close() error {
	n.notifier.Close()
	return n.conn.Close()
}
