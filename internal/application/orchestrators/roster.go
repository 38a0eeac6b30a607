package orchestrators

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	emailAdapter "activityboard/internal/adapters/email"
	"activityboard/internal/domain/activity"
	"activityboard/internal/observability"
)

// RosterStore defines the store interface needed by the roster orchestrators.
type RosterStore interface {
	Enroll(ctx context.Context, name, email string, at time.Time) (activity.Activity, error)
	Withdraw(ctx context.Context, name, email string) (activity.Activity, error)
}

// RosterInput names one participant of one activity.
type RosterInput struct {
	Activity string
	Email    string
}

// --- Enroll Participant ---

// EnrollParticipantDeps holds dependencies for EnrollParticipant.
type EnrollParticipantDeps struct {
	Store RosterStore
	// Sender is optional; without it no confirmation is sent.
	Sender emailAdapter.Sender
	Now    func() time.Time
}

// ExecuteEnrollParticipant signs input.Email up for input.Activity and sends
// a best-effort confirmation.
// PRE: none; the store enforces existence, uniqueness and capacity
// POST: on success the participant is stored and the message text is returned;
// a failed confirmation never fails the signup
func ExecuteEnrollParticipant(ctx context.Context, input RosterInput, deps EnrollParticipantDeps) (string, error) {
	updated, err := deps.Store.Enroll(ctx, input.Activity, input.Email, deps.Now())
	if err != nil {
		observability.RecordRosterChange("signup", observability.OutcomeRejected)
		return "", err
	}
	observability.RecordRosterChange("signup", observability.OutcomeOK)
	slog.Info("participant_enrolled", "activity", input.Activity, "spots_left", updated.SpotsLeft())

	if deps.Sender != nil {
		sendConfirmation(ctx, deps.Sender, updated, input.Email)
	}
	return fmt.Sprintf("Signed up %s for %s", input.Email, input.Activity), nil
}

var confirmationTemplate = template.Must(template.New("confirmation").Parse(
	`<p>You are signed up for <strong>{{.Name}}</strong>.</p>
<p>{{.Description}}</p>
<p>Schedule: {{.Schedule}}</p>
<p>{{.SpotsLeft}} spots left.</p>`))

func sendConfirmation(ctx context.Context, sender emailAdapter.Sender, a activity.Activity, to string) {
	var buf bytes.Buffer
	if err := confirmationTemplate.Execute(&buf, a); err != nil {
		slog.Error("confirmation_render_failed", "activity", a.Name, "error", err)
		observability.RecordConfirmationEmail(false)
		return
	}
	_, err := sender.Send(ctx, emailAdapter.Message{
		To:      to,
		Subject: "Signed up for " + a.Name,
		HTML:    buf.String(),
	})
	if err != nil {
		slog.Warn("confirmation_send_failed", "activity", a.Name, "error", err)
	}
	observability.RecordConfirmationEmail(err == nil)
}

// --- Withdraw Participant ---

// WithdrawParticipantDeps holds dependencies for WithdrawParticipant.
type WithdrawParticipantDeps struct {
	Store RosterStore
}

// ExecuteWithdrawParticipant removes input.Email from input.Activity.
// POST: on success the participant is gone and the message text is returned
func ExecuteWithdrawParticipant(ctx context.Context, input RosterInput, deps WithdrawParticipantDeps) (string, error) {
	updated, err := deps.Store.Withdraw(ctx, input.Activity, input.Email)
	if err != nil {
		observability.RecordRosterChange("remove", observability.OutcomeRejected)
		return "", err
	}
	observability.RecordRosterChange("remove", observability.OutcomeOK)
	slog.Info("participant_withdrawn", "activity", input.Activity, "spots_left", updated.SpotsLeft())
	return fmt.Sprintf("Removed %s from %s", input.Email, input.Activity), nil
}
