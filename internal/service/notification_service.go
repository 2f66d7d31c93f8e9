package service

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/certification-service/internal/domain"
	"github.com/spec-kit/certification-service/internal/events"
	"github.com/spec-kit/certification-service/internal/notify"
	"github.com/spec-kit/certification-service/internal/repository"
)

const recipientLimit = 500

// NotificationService turns domain events into emails.
type NotificationService struct {
	store       repository.Store
	sender      notify.Sender
	logger      *zap.Logger
	frontendURL string
}

// NewNotificationService creates the service.
func NewNotificationService(store repository.Store, sender notify.Sender, logger *zap.Logger, frontendURL string) *NotificationService {
	return &NotificationService{
		store:       store,
		sender:      sender,
		logger:      logger,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// Handlers maps every event that sends mail to its handler.
func (n *NotificationService) Handlers() map[events.EventType]events.EventHandler {
	return map[events.EventType]events.EventHandler{
		events.EventInvitationIssued:           n.handleInvitationIssued,
		events.EventInvitationAccepted:         n.handleInvitationAccepted,
		events.EventInvitationRevoked:          n.handleInvitationRevoked,
		events.EventCreationRequestSubmitted:   n.handleCreationRequestSubmitted,
		events.EventCreationRequestDecided:     n.handleCreationRequestDecided,
		events.EventAuditRequested:             n.handleAuditRequested,
		events.EventAuditRequestDecided:        n.handleAuditRequestDecided,
		events.EventAuditCreated:               n.handleAuditCreated,
		events.EventAuditStatusChanged:         n.handleAuditStatusChanged,
		events.EventCertificationIssued:        n.handleCertificationIssued,
		events.EventCertificationRevoked:       n.handleCertificationRevoked,
		events.EventEmailConfirmationRequested: n.handleEmailConfirmation,
		events.EventPasswordResetRequested:     n.handlePasswordReset,
	}
}

func (n *NotificationService) handleInvitationIssued(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.InvitationIssuedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	role := string(p.Role)
	if p.ExistingUser {
		return n.send(ctx, []string{p.Email}, "Invitation to join "+p.ScopeName,
			htmlPage("You have been invited",
				fmt.Sprintf("You have been invited to join %s as %s.", p.ScopeName, role),
				link(n.link("/invitations/accept", "token", p.Token), "Accept the invitation"),
				"This invitation expires on "+p.ExpiresAt.Format("2006-01-02")+"."))
	}
	return n.send(ctx, []string{p.Email}, "Invitation to join "+p.ScopeName,
		htmlPage("You have been invited",
			fmt.Sprintf("You have been invited to join %s as %s. Create your account to accept.", p.ScopeName, role),
			link(n.link("/register", "invitation_token", p.Token), "Create your account"),
			"This invitation expires on "+p.ExpiresAt.Format("2006-01-02")+"."))
}

func (n *NotificationService) handleInvitationAccepted(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.InvitationAcceptedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	return n.send(ctx, []string{p.Email}, "Welcome to "+p.ScopeName,
		htmlPage("Welcome", fmt.Sprintf("You are now a %s of %s.", p.Role, p.ScopeName)))
}

func (n *NotificationService) handleInvitationRevoked(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.InvitationRevokedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	return n.send(ctx, []string{p.Email}, "Invitation revoked",
		htmlPage("Invitation revoked", fmt.Sprintf("Your invitation to join %s has been revoked.", p.ScopeName)))
}

func (n *NotificationService) handleCreationRequestSubmitted(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.CreationRequestSubmittedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	admins, err := n.recipients(ctx, repository.UserFilter{Roles: []domain.Role{domain.RoleAdmin}})
	if err != nil {
		return err
	}
	kind := kindLabel(p.Kind)
	return n.send(ctx, admins, "New "+kind+" creation request",
		htmlPage("New creation request", fmt.Sprintf("%s asked to create the %s %q.", p.GuestEmail, kind, p.Name)))
}

func (n *NotificationService) handleCreationRequestDecided(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.CreationRequestDecidedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	guest, err := n.store.Users().GetByID(ctx, p.GuestID)
	if err != nil {
		return fmt.Errorf("load requester: %w", err)
	}
	kind := kindLabel(p.Kind)
	paragraphs := []string{fmt.Sprintf("Your request to create the %s %q has been %s.", kind, p.Name, p.Status)}
	if p.Status == domain.RequestApproved {
		paragraphs = append(paragraphs, "You are now its manager and can invite your team.")
	}
	if p.Comment != "" {
		paragraphs = append(paragraphs, "Comment: "+p.Comment)
	}
	return n.send(ctx, []string{guest.Email}, "Your "+kind+" request was "+string(p.Status),
		htmlPage("Creation request "+string(p.Status), paragraphs...))
}

func (n *NotificationService) handleAuditRequested(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.AuditRequestedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	managers, err := n.members(ctx, domain.OfCertificationBody(p.CertificationBodyID), domain.RoleManager)
	if err != nil {
		return err
	}
	return n.send(ctx, managers, "New audit request: "+p.Name,
		htmlPage("New audit request",
			fmt.Sprintf("An organization requested the audit %q scheduled for %s.", p.Name, p.ScheduledDate.Format("2006-01-02"))))
}

func (n *NotificationService) handleAuditRequestDecided(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.AuditRequestDecidedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	managers, err := n.members(ctx, domain.OfOrganization(p.OrganizationID), domain.RoleManager)
	if err != nil {
		return err
	}
	paragraphs := []string{fmt.Sprintf("Your audit request %q has been %s.", p.Name, p.Status)}
	if p.Comment != "" {
		paragraphs = append(paragraphs, "Comment: "+p.Comment)
	}
	return n.send(ctx, managers, "Audit request "+string(p.Status)+": "+p.Name,
		htmlPage("Audit request "+string(p.Status), paragraphs...))
}

func (n *NotificationService) handleAuditCreated(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.AuditCreatedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	members, err := n.members(ctx, domain.OfOrganization(p.OrganizationID))
	if err != nil {
		return err
	}
	return n.send(ctx, members, "Audit scheduled: "+p.Name,
		htmlPage("Audit scheduled", fmt.Sprintf("The audit %q is scheduled for %s.", p.Name, p.ScheduledDate.Format("2006-01-02"))))
}

func (n *NotificationService) handleAuditStatusChanged(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.AuditStatusChangedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	managers, err := n.members(ctx, domain.OfOrganization(p.OrganizationID), domain.RoleManager)
	if err != nil {
		return err
	}
	return n.send(ctx, managers, "Audit "+p.Name+" is now "+string(p.NewStatus),
		htmlPage("Audit status changed", fmt.Sprintf("The audit %q moved from %s to %s.", p.Name, p.OldStatus, p.NewStatus)))
}

func (n *NotificationService) handleCertificationIssued(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.CertificationIssuedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	members, err := n.members(ctx, domain.OfOrganization(p.OrganizationID))
	if err != nil {
		return err
	}
	return n.send(ctx, members, "Certificate issued: "+p.CertificateNumber,
		htmlPage("Certificate issued",
			"Your organization has been certified. Certificate number "+p.CertificateNumber+".",
			link(p.DownloadPath, "Download the certificate")))
}

func (n *NotificationService) handleCertificationRevoked(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.CertificationRevokedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	members, err := n.members(ctx, domain.OfOrganization(p.OrganizationID))
	if err != nil {
		return err
	}
	return n.send(ctx, members, "Certificate revoked: "+p.CertificateNumber,
		htmlPage("Certificate revoked", "Certificate "+p.CertificateNumber+" has been revoked by its certification body."))
}

func (n *NotificationService) handleEmailConfirmation(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.AccountTokenPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	return n.send(ctx, []string{p.Email}, "Confirm your email",
		htmlPage("Welcome "+p.FullName,
			"Please confirm your email address to activate your account.",
			link(n.link("/confirm-email", "token", p.Token), "Confirm email")))
}

func (n *NotificationService) handlePasswordReset(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.AccountTokenPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	return n.send(ctx, []string{p.Email}, "Reset your password",
		htmlPage("Password reset",
			"We received a request to reset your password. The link is valid for one hour.",
			link(n.link("/reset-password", "token", p.Token), "Reset password"),
			"If you did not ask for this you can ignore this email."))
}

func (n *NotificationService) send(ctx context.Context, to []string, subject, body string) error {
	if len(to) == 0 {
		n.logger.Debug("notification without recipients", zap.String("subject", subject))
		return nil
	}
	return n.sender.Send(ctx, notify.Message{To: to, Subject: subject, HTMLBody: body})
}

// members returns the emails of users in scope, optionally limited to roles.
func (n *NotificationService) members(ctx context.Context, scope domain.Affiliation, roles ...domain.Role) ([]string, error) {
	return n.recipients(ctx, repository.UserFilter{Affiliation: &scope, Roles: roles})
}

func (n *NotificationService) recipients(ctx context.Context, filter repository.UserFilter) ([]string, error) {
	filter.Limit = recipientLimit
	users, err := n.store.Users().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("load recipients: %w", err)
	}
	emails := make([]string, 0, len(users))
	for _, u := range users {
		emails = append(emails, u.Email)
	}
	return emails, nil
}

func (n *NotificationService) link(path, param, token string) string {
	return n.frontendURL + path + "?" + param + "=" + url.QueryEscape(token)
}

func unexpectedPayload(event events.Event) error {
	return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
}

func kindLabel(kind domain.EntityKind) string {
	if kind == domain.EntityCertificationBody {
		return "certification body"
	}
	return "organization"
}

func htmlPage(title string, paragraphs ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><h2>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</h2>")
	for _, p := range paragraphs {
		if strings.HasPrefix(p, "<a ") {
			b.WriteString("<p>" + p + "</p>")
			continue
		}
		b.WriteString("<p>" + html.EscapeString(p) + "</p>")
	}
	b.WriteString("</body></html>")
	return b.String()
}

func link(href, label string) string {
	return `<a href="` + html.EscapeString(href) + `">` + html.EscapeString(label) + `</a>`
}
