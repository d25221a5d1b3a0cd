package pipeline

import (
	"context"
	"strings"
	"testing"
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
	"imobzap_backend/platform/apperr"
	"imobzap_backend/platform/config"
	"imobzap_backend/platform/logger"

	"github.com/google/uuid"
)

// In-memory fakes for every store and collaborator.

type fakeTenantStore struct {
	tenant tenant.Tenant
}

func (f *fakeTenantStore) GetByInboxNumber(_ context.Context, number string) (tenant.Tenant, error) {
	return f.tenant, nil
}

func (f *fakeTenantStore) GetByID(_ context.Context, _ uuid.UUID) (tenant.Tenant, error) {
	return f.tenant, nil
}

type convKey struct {
	tenantID uuid.UUID
	phone    string
}

type fakeConvStore struct {
	conversations map[convKey]*conversation.Conversation
	leads         map[uuid.UUID]*conversation.Lead
	updates       []funnel.Stage
}

func newFakeConvStore() *fakeConvStore {
	return &fakeConvStore{
		conversations: make(map[convKey]*conversation.Conversation),
		leads:         make(map[uuid.UUID]*conversation.Lead),
	}
}

func (f *fakeConvStore) seed(conv conversation.Conversation, lead conversation.Lead) {
	f.conversations[convKey{conv.TenantID, conv.Phone}] = &conv
	f.leads[lead.ID] = &lead
}

func (f *fakeConvStore) ResolveOrCreate(_ context.Context, tenantID uuid.UUID, phone, displayName string) (conversation.Conversation, conversation.Lead, bool, error) {
	key := convKey{tenantID, phone}
	if conv, ok := f.conversations[key]; ok {
		return *conv, *f.leads[conv.LeadID], false, nil
	}

	lead := conversation.Lead{ID: uuid.New(), TenantID: tenantID, Name: displayName, Phone: phone, Status: "new"}
	conv := conversation.Conversation{
		ID:             uuid.New(),
		TenantID:       tenantID,
		Phone:          phone,
		DisplayName:    displayName,
		Stage:          funnel.StageWelcome,
		LeadID:         lead.ID,
		LastActivityAt: time.Now(),
	}
	f.conversations[key] = &conv
	f.leads[lead.ID] = &lead
	return conv, lead, true, nil
}

func (f *fakeConvStore) UpdateAfterExchange(_ context.Context, conversationID uuid.UUID, stage funnel.Stage, lastMessageText string, at time.Time) error {
	for _, conv := range f.conversations {
		if conv.ID == conversationID {
			conv.Stage = stage
			conv.LastMessageText = lastMessageText
			conv.LastActivityAt = at
		}
	}
	f.updates = append(f.updates, stage)
	return nil
}

func (f *fakeConvStore) GetByID(_ context.Context, conversationID uuid.UUID) (conversation.Conversation, conversation.Lead, error) {
	for _, conv := range f.conversations {
		if conv.ID == conversationID {
			return *conv, *f.leads[conv.LeadID], nil
		}
	}
	return conversation.Conversation{}, conversation.Lead{}, apperr.NotFound("conversation not found")
}

func (f *fakeConvStore) Update(_ context.Context, lead conversation.Lead) error {
	f.leads[lead.ID] = &lead
	return nil
}

type fakeMessageStore struct {
	messages []conversation.Message
}

func (f *fakeMessageStore) Create(_ context.Context, msg conversation.Message) error {
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeMessageStore) UpdateStatusByProviderID(_ context.Context, providerMessageID, status string) error {
	for i := range f.messages {
		if f.messages[i].ProviderMessageID == providerMessageID {
			f.messages[i].Status = status
		}
	}
	return nil
}

type fakePropertyStore struct {
	inventory []properties.Property
}

func (f *fakePropertyStore) ListByTenant(_ context.Context, _ uuid.UUID) ([]properties.Property, error) {
	return f.inventory, nil
}

type fakeLock struct {
	acquired int
}

func (f *fakeLock) Acquire(_ context.Context, _ uuid.UUID, _ string) (func(), error) {
	f.acquired++
	return func() {}, nil
}

type fakeTranscriber struct {
	result transcription.Result
	calls  int
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ tenant.Credentials, _, _, _ string) transcription.Result {
	f.calls++
	return f.result
}

type fakeDispatcher struct {
	sent []string
}

func (f *fakeDispatcher) Dispatch(_ context.Context, _ tenant.Tenant, _, body string) (delivery.SendResult, error) {
	f.sent = append(f.sent, body)
	return delivery.SendResult{ProviderMessageID: uuid.New().String(), Provider: "gateway"}, nil
}

type fakeNotifier struct {
	calls int
}

func (f *fakeNotifier) NotifyHandoff(_ context.Context, _ tenant.Tenant, _ conversation.Lead, _ string) error {
	f.calls++
	return nil
}

type fakeNudges struct {
	scheduled []scheduler.FollowUpNudgePayload
}

func (f *fakeNudges) ScheduleFollowUpNudge(_ context.Context, payload scheduler.FollowUpNudgePayload, _ time.Time) error {
	f.scheduled = append(f.scheduled, payload)
	return nil
}

type funnelConfig struct{}

func (funnelConfig) GetPresentationPause() time.Duration { return 0 }
func (funnelConfig) GetFollowUpDelay() time.Duration     { return 6 * time.Hour }
func (funnelConfig) GetOutboundRatePerMinute() int       { return 60 }

type harness struct {
	orchestrator *Orchestrator
	tenants      *fakeTenantStore
	convs        *fakeConvStore
	msgs         *fakeMessageStore
	props        *fakePropertyStore
	lock         *fakeLock
	transcriber  *fakeTranscriber
	dispatcher   *fakeDispatcher
	notifier     *fakeNotifier
	nudges       *fakeNudges
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := logger.New("test")

	h := &harness{
		tenants: &fakeTenantStore{tenant: tenant.Tenant{
			ID:            uuid.New(),
			Name:          "Imobiliária Horizonte",
			AssistantName: "Clara",
			InboxNumber:   "+5531999990000",
			NotifyEmail:   "equipe@horizonte.example",
			Credentials:   tenant.Credentials{GatewayAccountSID: "AC1", GatewayAuthToken: "tok", GatewayFrom: "+5531999990000"},
		}},
		convs:       newFakeConvStore(),
		msgs:        &fakeMessageStore{},
		props:       &fakePropertyStore{},
		lock:        &fakeLock{},
		transcriber: &fakeTranscriber{},
		dispatcher:  &fakeDispatcher{},
		notifier:    &fakeNotifier{},
		nudges:      &fakeNudges{},
	}

	h.orchestrator = NewOrchestrator(Deps{
		Tenants:       h.tenants,
		Conversations: h.convs,
		Leads:         h.convs,
		Messages:      h.msgs,
		Properties:    h.props,
		Lock:          h.lock,
		Classifier:    funnel.NewClassifier(funnel.DefaultKeywords()),
		Engine:        matching.NewEngine(),
		Transcriber:   h.transcriber,
		Generator:     reply.NewGenerator(nil, log),
		Dispatcher:    h.dispatcher,
		Notifier:      h.notifier,
		Nudges:        h.nudges,
		DefaultCreds:  config.Credentials{},
		Funnel:        funnelConfig{},
		Logger:        log,
	})
	return h
}

func textEvent(text string) webhook.InboundEvent {
	return webhook.InboundEvent{
		Provider:   webhook.ProviderGateway,
		From:       "+5531988887777",
		To:         "+5531999990000",
		Text:       text,
		ExternalID: "SM" + uuid.New().String()[:8],
		SenderName: "João Silva",
		Kind:       webhook.KindText,
	}
}

func TestNewContactGetsWelcomeAndExtraction(t *testing.T) {
	h := newHarness(t)

	err := h.orchestrator.HandleInbound(context.Background(),
		textEvent("Olá, quero um apartamento de 2 quartos até 500 mil"))
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	if h.lock.acquired != 1 {
		t.Fatalf("expected one lock acquisition, got %d", h.lock.acquired)
	}

	// Inbound persisted first, then the single welcome reply.
	if len(h.msgs.messages) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(h.msgs.messages))
	}
	if h.msgs.messages[0].Direction != conversation.DirectionInbound {
		t.Fatal("inbound message must be persisted before the reply")
	}

	if len(h.dispatcher.sent) != 1 {
		t.Fatalf("expected one outbound message, got %d", len(h.dispatcher.sent))
	}
	welcome := h.dispatcher.sent[0]
	if !strings.Contains(welcome, "Clara") || !strings.Contains(welcome, "Imobiliária Horizonte") {
		t.Fatalf("welcome script missing names: %q", welcome)
	}

	conv := h.convs.conversations[convKey{h.tenants.tenant.ID, "+5531988887777"}]
	if conv.Stage != funnel.StageDataCollection {
		t.Fatalf("expected data_collection stage, got %s", conv.Stage)
	}

	lead := h.convs.leads[conv.LeadID]
	if lead.BedroomCount != 2 {
		t.Fatalf("bedroom count not extracted: %d", lead.BedroomCount)
	}
	if lead.BudgetMax != 500_000 {
		t.Fatalf("budget not extracted: %d", lead.BudgetMax)
	}

	if len(h.nudges.scheduled) != 1 {
		t.Fatalf("expected a follow-up nudge scheduled, got %d", len(h.nudges.scheduled))
	}
}

func TestReadyLeadGetsPropertyPresentation(t *testing.T) {
	h := newHarness(t)
	tenantID := h.tenants.tenant.ID

	lead := conversation.Lead{
		ID: uuid.New(), TenantID: tenantID, Name: "João Silva", Phone: "+5531988887777",
		BudgetMin: 800_000, BudgetMax: 1_000_000, Neighborhood: "Savassi",
	}
	h.convs.seed(conversation.Conversation{
		ID: uuid.New(), TenantID: tenantID, Phone: "+5531988887777",
		Stage: funnel.StageDataCollection, LeadID: lead.ID, LastActivityAt: time.Now(),
	}, lead)

	h.props.inventory = []properties.Property{
		{ID: uuid.New(), TenantID: tenantID, Title: "Apartamento Savassi", Price: 950_000, BedroomCount: 3, Neighborhood: "Savassi", City: "Belo Horizonte", UpdatedAt: time.Now()},
		{ID: uuid.New(), TenantID: tenantID, Title: "Apartamento Lourdes", Price: 880_000, BedroomCount: 2, Neighborhood: "Lourdes", City: "Belo Horizonte", UpdatedAt: time.Now()},
	}

	if err := h.orchestrator.HandleInbound(context.Background(), textEvent("pode me mostrar as opções?")); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	conv := h.convs.conversations[convKey{tenantID, "+5531988887777"}]
	if conv.Stage != funnel.StagePresentation {
		t.Fatalf("expected presentation stage, got %s", conv.Stage)
	}

	// Intro, two property cards, closing question.
	if len(h.dispatcher.sent) != 4 {
		t.Fatalf("expected 4 outbound messages, got %d", len(h.dispatcher.sent))
	}
	if !strings.Contains(h.dispatcher.sent[1], "Apartamento Savassi") {
		t.Fatalf("best match should come first: %q", h.dispatcher.sent[1])
	}

	if len(h.nudges.scheduled) != 0 {
		t.Fatal("presentation stage should not schedule a nudge")
	}
}

func TestPresentationStageRanksAgainOnFollowUpTurn(t *testing.T) {
	h := newHarness(t)
	tenantID := h.tenants.tenant.ID

	lead := conversation.Lead{
		ID: uuid.New(), TenantID: tenantID, Name: "João Silva", Phone: "+5531988887777",
		BudgetMin: 800_000, BudgetMax: 1_000_000, Neighborhood: "Savassi",
	}
	h.convs.seed(conversation.Conversation{
		ID: uuid.New(), TenantID: tenantID, Phone: "+5531988887777",
		Stage: funnel.StagePresentation, LeadID: lead.ID, LastActivityAt: time.Now(),
	}, lead)

	h.props.inventory = []properties.Property{
		{ID: uuid.New(), TenantID: tenantID, Title: "Apartamento Savassi", Price: 950_000, BedroomCount: 3, Neighborhood: "Savassi", City: "Belo Horizonte", UpdatedAt: time.Now()},
	}

	if err := h.orchestrator.HandleInbound(context.Background(), textEvent("e o primeiro da lista?")); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	conv := h.convs.conversations[convKey{tenantID, "+5531988887777"}]
	if conv.Stage != funnel.StagePresentation {
		t.Fatalf("expected presentation stage, got %s", conv.Stage)
	}

	// Intro, one property card, closing question. Never the no-match script
	// while eligible inventory exists.
	if len(h.dispatcher.sent) != 3 {
		t.Fatalf("expected 3 outbound messages, got %d", len(h.dispatcher.sent))
	}
	if !strings.Contains(h.dispatcher.sent[1], "Apartamento Savassi") {
		t.Fatalf("expected the listing to be presented again: %q", h.dispatcher.sent[1])
	}
}

func TestReadyLeadWithEmptyInventoryHitsNoMatch(t *testing.T) {
	h := newHarness(t)
	tenantID := h.tenants.tenant.ID

	lead := conversation.Lead{
		ID: uuid.New(), TenantID: tenantID, Phone: "+5531988887777",
		BudgetMax: 300_000, BedroomCount: 4,
	}
	h.convs.seed(conversation.Conversation{
		ID: uuid.New(), TenantID: tenantID, Phone: "+5531988887777",
		Stage: funnel.StageAwaitingInfo, LeadID: lead.ID, LastActivityAt: time.Now(),
	}, lead)

	if err := h.orchestrator.HandleInbound(context.Background(), textEvent("e aí, achou algo?")); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	conv := h.convs.conversations[convKey{tenantID, "+5531988887777"}]
	if conv.Stage != funnel.StageNoMatch {
		t.Fatalf("expected no_match stage, got %s", conv.Stage)
	}
	if len(h.dispatcher.sent) != 1 {
		t.Fatalf("expected one no-match message, got %d", len(h.dispatcher.sent))
	}
}

func TestAudioFailureStillRunsPipeline(t *testing.T) {
	h := newHarness(t)
	h.transcriber.result = transcription.Result{OK: false, Text: transcription.Placeholder}

	ev := textEvent("")
	ev.Kind = webhook.KindAudio
	ev.MediaURL = "https://api.gateway.example/media/SM1"
	ev.MediaContentType = "audio/ogg"

	if err := h.orchestrator.HandleInbound(context.Background(), ev); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	if h.transcriber.calls != 1 {
		t.Fatalf("expected one transcription attempt, got %d", h.transcriber.calls)
	}

	if len(h.msgs.messages) == 0 {
		t.Fatal("inbound audio message must be persisted")
	}
	// The placeholder stands in for the audio everywhere: content, transcript
	// and the text the rest of the pipeline runs over.
	if h.msgs.messages[0].Content != transcription.Placeholder {
		t.Fatalf("expected placeholder content, got %q", h.msgs.messages[0].Content)
	}
	if h.msgs.messages[0].Transcript != transcription.Placeholder {
		t.Fatalf("expected placeholder transcript, got %q", h.msgs.messages[0].Transcript)
	}

	// New contact still gets the welcome.
	if len(h.dispatcher.sent) != 1 {
		t.Fatalf("expected welcome despite failed transcription, got %d messages", len(h.dispatcher.sent))
	}

	conv := h.convs.conversations[convKey{h.tenants.tenant.ID, "+5531988887777"}]
	if conv.Stage != funnel.StageDataCollection {
		t.Fatalf("classification must run over the placeholder, got stage %s", conv.Stage)
	}
}

func TestSuccessfulTranscriptFeedsExtraction(t *testing.T) {
	h := newHarness(t)
	h.transcriber.result = transcription.Result{OK: true, Text: "procuro 3 quartos no bairro Savassi até 900 mil"}

	lead := conversation.Lead{ID: uuid.New(), TenantID: h.tenants.tenant.ID, Phone: "+5531988887777"}
	h.convs.seed(conversation.Conversation{
		ID: uuid.New(), TenantID: h.tenants.tenant.ID, Phone: "+5531988887777",
		Stage: funnel.StageDataCollection, LeadID: lead.ID, LastActivityAt: time.Now(),
	}, lead)

	ev := textEvent("")
	ev.Kind = webhook.KindAudio
	ev.MediaURL = "https://api.gateway.example/media/SM2"
	ev.MediaContentType = "audio/ogg"

	if err := h.orchestrator.HandleInbound(context.Background(), ev); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	updated := h.convs.leads[lead.ID]
	if updated.BedroomCount != 3 || updated.Neighborhood != "Savassi" || updated.BudgetMax != 900_000 {
		t.Fatalf("transcript not extracted into lead: %+v", updated)
	}
}

func TestHandoffRequestStopsAutoReplies(t *testing.T) {
	h := newHarness(t)

	if err := h.orchestrator.HandleInbound(context.Background(), textEvent("quero falar com um corretor de verdade")); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	if len(h.dispatcher.sent) != 0 {
		t.Fatalf("no auto reply expected after handoff, got %d", len(h.dispatcher.sent))
	}
	if h.notifier.calls != 1 {
		t.Fatalf("expected one handoff notification, got %d", h.notifier.calls)
	}

	conv := h.convs.conversations[convKey{h.tenants.tenant.ID, "+5531988887777"}]
	if conv.Stage != funnel.StageHumanHandoff {
		t.Fatalf("expected human_handoff stage, got %s", conv.Stage)
	}
}

func TestTerminalStageOnlyRecords(t *testing.T) {
	h := newHarness(t)
	tenantID := h.tenants.tenant.ID

	lead := conversation.Lead{ID: uuid.New(), TenantID: tenantID, Phone: "+5531988887777"}
	h.convs.seed(conversation.Conversation{
		ID: uuid.New(), TenantID: tenantID, Phone: "+5531988887777",
		Stage: funnel.StageHumanHandoff, LeadID: lead.ID, LastActivityAt: time.Now(),
	}, lead)

	if err := h.orchestrator.HandleInbound(context.Background(), textEvent("e agora?")); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	if len(h.msgs.messages) != 1 {
		t.Fatalf("inbound should still be persisted, got %d messages", len(h.msgs.messages))
	}
	if len(h.dispatcher.sent) != 0 {
		t.Fatal("no replies after handoff")
	}
	if h.notifier.calls != 0 {
		t.Fatal("handoff alert must fire only on the transition")
	}
}

func TestSamePhoneResolvesSameConversation(t *testing.T) {
	h := newHarness(t)

	if err := h.orchestrator.HandleInbound(context.Background(), textEvent("oi")); err != nil {
		t.Fatalf("first message failed: %v", err)
	}
	if err := h.orchestrator.HandleInbound(context.Background(), textEvent("tem apartamento em Lourdes?")); err != nil {
		t.Fatalf("second message failed: %v", err)
	}

	ids := make(map[uuid.UUID]struct{})
	for _, msg := range h.msgs.messages {
		ids[msg.ConversationID] = struct{}{}
	}
	if len(ids) != 1 {
		t.Fatalf("expected one conversation for repeated contact, got %d", len(ids))
	}
}

func TestExtractionNeverOverwritesKnownFields(t *testing.T) {
	h := newHarness(t)
	tenantID := h.tenants.tenant.ID

	lead := conversation.Lead{
		ID: uuid.New(), TenantID: tenantID, Phone: "+5531988887777",
		BudgetMax: 500_000, Neighborhood: "Savassi",
	}
	h.convs.seed(conversation.Conversation{
		ID: uuid.New(), TenantID: tenantID, Phone: "+5531988887777",
		Stage: funnel.StageDataCollection, LeadID: lead.ID, LastActivityAt: time.Now(),
	}, lead)

	if err := h.orchestrator.HandleInbound(context.Background(), textEvent("pensando melhor, bairro Lourdes até 700 mil")); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	updated := h.convs.leads[lead.ID]
	if updated.BudgetMax != 500_000 || updated.Neighborhood != "Savassi" {
		t.Fatalf("known fields must not be overwritten: %+v", updated)
	}
}

func TestFollowUpNudgeSkippedWhenLeadAnswered(t *testing.T) {
	h := newHarness(t)
	tenantID := h.tenants.tenant.ID

	scheduledAt := time.Now().Add(-6 * time.Hour)
	lead := conversation.Lead{ID: uuid.New(), TenantID: tenantID, Name: "João", Phone: "+5531988887777"}
	conv := conversation.Conversation{
		ID: uuid.New(), TenantID: tenantID, Phone: "+5531988887777",
		Stage: funnel.StageDataCollection, LeadID: lead.ID,
		LastActivityAt: time.Now(), // answered after the nudge was scheduled
	}
	h.convs.seed(conv, lead)

	if err := h.orchestrator.SendFollowUpNudge(context.Background(), conv.ID, scheduledAt.Unix()); err != nil {
		t.Fatalf("nudge failed: %v", err)
	}
	if len(h.dispatcher.sent) != 0 {
		t.Fatal("nudge must be skipped when the lead answered meanwhile")
	}
}

func TestFollowUpNudgeSentWhenStillIdle(t *testing.T) {
	h := newHarness(t)
	tenantID := h.tenants.tenant.ID

	idleSince := time.Now().Add(-7 * time.Hour)
	lead := conversation.Lead{ID: uuid.New(), TenantID: tenantID, Name: "João Silva", Phone: "+5531988887777"}
	conv := conversation.Conversation{
		ID: uuid.New(), TenantID: tenantID, Phone: "+5531988887777",
		Stage: funnel.StageAwaitingInfo, LeadID: lead.ID,
		LastActivityAt: idleSince,
	}
	h.convs.seed(conv, lead)

	if err := h.orchestrator.SendFollowUpNudge(context.Background(), conv.ID, idleSince.Unix()); err != nil {
		t.Fatalf("nudge failed: %v", err)
	}

	if len(h.dispatcher.sent) != 1 {
		t.Fatalf("expected one nudge message, got %d", len(h.dispatcher.sent))
	}
	if !strings.Contains(h.dispatcher.sent[0], "João") {
		t.Fatalf("nudge should address the lead: %q", h.dispatcher.sent[0])
	}
}

func TestFollowUpNudgeSkippedPastCollection(t *testing.T) {
	h := newHarness(t)
	tenantID := h.tenants.tenant.ID

	idleSince := time.Now().Add(-7 * time.Hour)
	lead := conversation.Lead{ID: uuid.New(), TenantID: tenantID, Phone: "+5531988887777"}
	conv := conversation.Conversation{
		ID: uuid.New(), TenantID: tenantID, Phone: "+5531988887777",
		Stage: funnel.StagePresentation, LeadID: lead.ID,
		LastActivityAt: idleSince,
	}
	h.convs.seed(conv, lead)

	if err := h.orchestrator.SendFollowUpNudge(context.Background(), conv.ID, idleSince.Unix()); err != nil {
		t.Fatalf("nudge failed: %v", err)
	}
	if len(h.dispatcher.sent) != 0 {
		t.Fatal("nudge only applies to collection stages")
	}
}
