// Package mailer delivers export artifacts by email over an authenticated
// SMTP relay.
//
// The Agent composes a multipart message with an HTML confirmation body and
// the spreadsheet as a base64 attachment, then hands it to the relay. Port
// 465 uses implicit TLS; any other port requires STARTTLS.
//
// Delivery failures never escape the Agent. Send reports acceptance as a
// bool and logs the cause, so a mail outage cannot turn a finished export
// into a failed one.
package mailer
