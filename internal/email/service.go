package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/Aerzsu/render-dental-clinic-sub000/internal/model"
)

// Service sends patient-facing booking notifications.
type Service interface {
	SendBookingReceived(ctx context.Context, event model.BookingEvent) error
	SendBookingConfirmed(ctx context.Context, event model.BookingEvent) error
	SendBookingRejected(ctx context.Context, event model.BookingEvent) error
	SendBookingCancelled(ctx context.Context, event model.BookingEvent) error
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// CancelURLBase prefixes self-service cancellation links, e.g.
	// "https://clinic.example.com/appointments".
	CancelURLBase string
}

type smtpService struct {
	dialer *gomail.Dialer
	cfg    Config
}

func NewService(cfg Config) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		cfg:    cfg,
	}
}

func (s *smtpService) SendBookingReceived(ctx context.Context, event model.BookingEvent) error {
	subject := "We received your appointment request"
	body := fmt.Sprintf(
		"Hi %s,<br><br>We received your request for %s, %s to %s. "+
			"Our staff will review it and you will get a confirmation shortly.",
		event.PatientName, event.Date.Display(), event.StartTime.Clock12(), event.EndTime.Clock12())
	return s.send(ctx, event.ContactEmail, subject, body)
}

func (s *smtpService) SendBookingConfirmed(ctx context.Context, event model.BookingEvent) error {
	subject := "Your appointment is confirmed"
	body := fmt.Sprintf(
		"Hi %s,<br><br>Your appointment on %s, %s to %s is confirmed.",
		event.PatientName, event.Date.Display(), event.StartTime.Clock12(), event.EndTime.Clock12())
	if event.RescheduleToken != "" && s.cfg.CancelURLBase != "" {
		body += fmt.Sprintf(
			"<br><br>Need to cancel? Use this link: %s/%s/cancel?token=%s",
			s.cfg.CancelURLBase, event.AppointmentID, event.RescheduleToken)
	}
	return s.send(ctx, event.ContactEmail, subject, body)
}

func (s *smtpService) SendBookingRejected(ctx context.Context, event model.BookingEvent) error {
	subject := "About your appointment request"
	body := fmt.Sprintf(
		"Hi %s,<br><br>Unfortunately we could not accommodate your request for %s, %s. "+
			"Please book another timeslot.",
		event.PatientName, event.Date.Display(), event.StartTime.Clock12())
	return s.send(ctx, event.ContactEmail, subject, body)
}

func (s *smtpService) SendBookingCancelled(ctx context.Context, event model.BookingEvent) error {
	subject := "Your appointment was cancelled"
	body := fmt.Sprintf(
		"Hi %s,<br><br>Your appointment on %s, %s has been cancelled.",
		event.PatientName, event.Date.Display(), event.StartTime.Clock12())
	return s.send(ctx, event.ContactEmail, subject, body)
}

func (s *smtpService) send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		// Registered patients without a contact email on the event are
		// notified through other channels.
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
