// Package pipeline drives one inbound message end to end: tenant routing,
// locking, persistence, extraction, funnel classification, matching, reply
// generation and outbound dispatch.
package pipeline

import (
	"context"
	"time"

	"imobzap_backend/internal/conversation"
	"imobzap_backend/internal/delivery"
	"imobzap_backend/internal/funnel"
	"imobzap_backend/internal/matching"
	"imobzap_backend/internal/properties"
	"imobzap_backend/internal/reply"
	"imobzap_backend/internal/scheduler"
	"imobzap_backend/internal/tenant"
	"imobzap_backend/internal/transcription"
	"imobzap_backend/internal/webhook"
	"imobzap_backend/platform/config"
	"imobzap_backend/platform/logger"

	"github.com/google/uuid"
)

// Narrow collaborator interfaces so tests can fake each seam.

type Locker interface {
	Acquire(ctx context.Context, tenantID uuid.UUID, phone string) (func(), error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, creds tenant.Credentials, tenantID, mediaURL, contentType string) transcription.Result
}

type ReplyGenerator interface {
	Generate(ctx context.Context, in reply.Input) []string
}

type MessageDispatcher interface {
	Dispatch(ctx context.Context, t tenant.Tenant, to, body string) (delivery.SendResult, error)
}

type HandoffNotifier interface {
	NotifyHandoff(ctx context.Context, t tenant.Tenant, lead conversation.Lead, lastMessage string) error
}

// Orchestrator implements webhook.Pipeline and scheduler.Nudger.
type Orchestrator struct {
	tenants       tenant.Store
	conversations conversation.ConversationStore
	leads         conversation.LeadStore
	messages      conversation.MessageStore
	propertyStore properties.Store

	lock        Locker
	classifier  *funnel.Classifier
	engine      *matching.Engine
	transcriber Transcriber
	generator   ReplyGenerator
	dispatcher  MessageDispatcher
	notifier    HandoffNotifier
	nudges      scheduler.NudgeScheduler

	defaultCreds      config.Credentials
	presentationPause time.Duration
	followUpDelay     time.Duration
	log               *logger.Logger
	now               func() time.Time
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Tenants       tenant.Store
	Conversations conversation.ConversationStore
	Leads         conversation.LeadStore
	Messages      conversation.MessageStore
	Properties    properties.Store
	Lock          Locker
	Classifier    *funnel.Classifier
	Engine        *matching.Engine
	Transcriber   Transcriber
	Generator     ReplyGenerator
	Dispatcher    MessageDispatcher
	Notifier      HandoffNotifier
	Nudges        scheduler.NudgeScheduler
	DefaultCreds  config.Credentials
	Funnel        config.FunnelConfig
	Logger        *logger.Logger
}

func NewOrchestrator(deps Deps) *Orchestrator {
	return &Orchestrator{
		tenants:           deps.Tenants,
		conversations:     deps.Conversations,
		leads:             deps.Leads,
		messages:          deps.Messages,
		propertyStore:     deps.Properties,
		lock:              deps.Lock,
		classifier:        deps.Classifier,
		engine:            deps.Engine,
		transcriber:       deps.Transcriber,
		generator:         deps.Generator,
		dispatcher:        deps.Dispatcher,
		notifier:          deps.Notifier,
		nudges:            deps.Nudges,
		defaultCreds:      deps.DefaultCreds,
		presentationPause: deps.Funnel.GetPresentationPause(),
		followUpDelay:     deps.Funnel.GetFollowUpDelay(),
		log:               deps.Logger,
		now:               time.Now,
	}
}

// HandleInbound runs the whole pipeline for one normalized event. The
// inbound message is persisted before any reply is attempted, so a downstream
// failure never loses what the lead said.
func (o *Orchestrator) HandleInbound(ctx context.Context, ev webhook.InboundEvent) error {
	tn, err := o.tenants.GetByInboxNumber(ctx, ev.To)
	if err != nil {
		return err
	}
	tn.Credentials = tn.Credentials.WithDefaults(o.defaultCreds)

	release, err := o.lock.Acquire(ctx, tn.ID, ev.From)
	if err != nil {
		return err
	}
	defer release()

	conv, lead, isNew, err := o.conversations.ResolveOrCreate(ctx, tn.ID, ev.From, ev.SenderName)
	if err != nil {
		return err
	}

	// Audio always flows on as text: the transcript when transcription worked,
	// the placeholder when it did not. Extraction and classification run over
	// whichever it is.
	text := ev.Text
	transcript := ""
	if ev.Kind == webhook.KindAudio && ev.MediaURL != "" {
		result := o.transcriber.Transcribe(ctx, tn.Credentials, tn.ID.String(), ev.MediaURL, ev.MediaContentType)
		transcript = result.Text
		text = result.Text
	}

	now := o.now()
	inbound := conversation.Message{
		ID:                uuid.New(),
		ConversationID:    conv.ID,
		TenantID:          tn.ID,
		Direction:         conversation.DirectionInbound,
		Kind:              conversation.Kind(ev.Kind),
		Content:           text,
		Transcript:        transcript,
		ProviderMessageID: ev.ExternalID,
		Status:            conversation.StatusReceived,
		CreatedAt:         now,
	}
	if err := o.messages.Create(ctx, inbound); err != nil {
		return err
	}

	// After a handoff the assistant only records; humans own the thread.
	if funnel.IsTerminal(conv.Stage) {
		return o.conversations.UpdateAfterExchange(ctx, conv.ID, conv.Stage, text, now)
	}

	if lead.ApplyExtraction(text) {
		if err := o.leads.Update(ctx, lead); err != nil {
			return err
		}
	}

	next := o.classifier.Next(conv.Stage, text, lead.Facts())

	if next == funnel.StageHumanHandoff {
		if o.notifier != nil {
			if err := o.notifier.NotifyHandoff(ctx, tn, lead, text); err != nil {
				o.log.ProviderFailure("smtp", "handoff alert", err)
			}
		}
		return o.conversations.UpdateAfterExchange(ctx, conv.ID, next, text, now)
	}

	// Rank on the transition into matching and again on every turn that stays
	// in presentation, so the lead always hears about current inventory.
	var matches []matching.Match
	if next == funnel.StageMatching || next == funnel.StagePresentation {
		inventory, err := o.propertyStore.ListByTenant(ctx, tn.ID)
		if err != nil {
			return err
		}
		matches = o.engine.Rank(lead, inventory)
		if len(matches) == 0 {
			next = funnel.StageNoMatch
		} else {
			next = funnel.StagePresentation
		}
	}

	messages := o.generator.Generate(ctx, reply.Input{
		ConversationID: conv.ID,
		Tenant:         tn,
		Lead:           lead,
		Stage:          next,
		IsNewContact:   isNew,
		InboundText:    text,
		Matches:        matches,
	})

	o.send(ctx, tn, conv, ev.From, messages)

	if err := o.conversations.UpdateAfterExchange(ctx, conv.ID, next, text, now); err != nil {
		return err
	}

	o.scheduleNudge(ctx, tn.ID, conv.ID, next, now)
	return nil
}

// send dispatches the reply sequence in order, pausing between messages so
// multi-part replies arrive readably. A failed send is recorded and stops
// the rest of the sequence.
func (o *Orchestrator) send(ctx context.Context, tn tenant.Tenant, conv conversation.Conversation, to string, messages []string) {
	for i, body := range messages {
		if i > 0 && o.presentationPause > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(o.presentationPause):
			}
		}

		outbound := conversation.Message{
			ID:             uuid.New(),
			ConversationID: conv.ID,
			TenantID:       tn.ID,
			Direction:      conversation.DirectionOutbound,
			Kind:           conversation.KindText,
			Content:        body,
			CreatedAt:      o.now(),
		}

		result, err := o.dispatcher.Dispatch(ctx, tn, to, body)
		if err != nil {
			outbound.Status = conversation.StatusFailed
			if createErr := o.messages.Create(ctx, outbound); createErr != nil {
				o.log.DatabaseError("persist failed outbound", createErr)
			}
			return
		}

		outbound.ProviderMessageID = result.ProviderMessageID
		outbound.Status = conversation.StatusQueued
		if err := o.messages.Create(ctx, outbound); err != nil {
			o.log.DatabaseError("persist outbound", err)
		}
	}
}

// isCollectionStage reports whether silence in this stage means the lead
// stalled and a nudge is worth scheduling.
func isCollectionStage(stage funnel.Stage) bool {
	return stage == funnel.StageDataCollection || stage == funnel.StageAwaitingInfo
}

func (o *Orchestrator) scheduleNudge(ctx context.Context, tenantID, conversationID uuid.UUID, stage funnel.Stage, activityAt time.Time) {
	if o.nudges == nil || o.followUpDelay <= 0 || !isCollectionStage(stage) {
		return
	}

	err := o.nudges.ScheduleFollowUpNudge(ctx, scheduler.FollowUpNudgePayload{
		ConversationID: conversationID.String(),
		TenantID:       tenantID.String(),
		ScheduledAfter: activityAt.Unix(),
	}, activityAt.Add(o.followUpDelay))
	if err != nil {
		o.log.Error("schedule follow-up nudge failed", "error", err, "conversationId", conversationID)
	}
}

// UpdateStatus advances a message's delivery status from provider receipts.
func (o *Orchestrator) UpdateStatus(ctx context.Context, providerMessageID, status string) error {
	return o.messages.UpdateStatusByProviderID(ctx, providerMessageID, status)
}

// SendFollowUpNudge re-engages a lead who went silent mid collection. The
// nudge is skipped when the conversation moved on or the lead answered after
// the nudge was scheduled.
func (o *Orchestrator) SendFollowUpNudge(ctx context.Context, conversationID uuid.UUID, scheduledAfterUnix int64) error {
	conv, lead, err := o.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}

	if conv.Archived || !isCollectionStage(conv.Stage) {
		return nil
	}
	if conv.LastActivityAt.Unix() > scheduledAfterUnix {
		return nil
	}

	tn, err := o.tenants.GetByID(ctx, conv.TenantID)
	if err != nil {
		return err
	}
	tn.Credentials = tn.Credentials.WithDefaults(o.defaultCreds)

	release, err := o.lock.Acquire(ctx, tn.ID, conv.Phone)
	if err != nil {
		return err
	}
	defer release()

	o.send(ctx, tn, conv, conv.Phone, []string{reply.FollowUpScript(lead.FirstName())})
	return nil
}

var _ webhook.Pipeline = (*Orchestrator)(nil)
var _ webhook.StatusUpdater = (*Orchestrator)(nil)
var _ scheduler.Nudger = (*Orchestrator)(nil)
