// Package queue defines message payloads exchanged over the message broker.
package queue

// MailQueueName is the durable queue carrying outgoing notification jobs.
const MailQueueName = "mail.jobs"

// MailJob is published whenever a booking operation wants a notification
// sent. It carries identifiers rather than the composed message so the
// consumer reads the freshest record state before sending. TicketPNG
// optionally holds a base64-encoded PNG supplied by the manual resend path.
type MailJob struct {
	BookingID   string `json:"booking_id"`
	Kind        string `json:"kind"` // book | modify | cancel
	Lang        string `json:"lang"`
	TicketPNG   string `json:"ticket_png,omitempty"`
	RequestedAt string `json:"requested_at"`
}
