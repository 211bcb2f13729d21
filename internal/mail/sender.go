package mail

import (
	"io"

	gomail "gopkg.in/gomail.v2"
)

// Sender delivers composed messages over SMTP.
type Sender struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// Send delivers one plain-text message, attaching the ticket PNG when
// present.  The caller records the outcome in mail_status; Send itself does
// not retry.
func (s *Sender) Send(to, subject, body string, ticketPNG []byte) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	if len(ticketPNG) > 0 {
		m.Attach("ticket.png", gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(ticketPNG)
			return err
		}))
	}
	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	return d.DialAndSend(m)
}
