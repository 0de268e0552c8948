package services

import (
	"context"
	"sync"

	"github.com/activmedica/backend/internal/domain/entities"
	"github.com/activmedica/backend/internal/domain/providers"
	"github.com/activmedica/backend/internal/infrastructure/observability"
	apperrors "github.com/activmedica/backend/pkg/errors"
)

// analysisInstruction is appended to the extracted report text to form the
// one-time seeding prompt.
const analysisInstruction = "\nYou should act as doctor and give full medical report on the findings with full details"

// ReportResult is returned after a report submission.
type ReportResult struct {
	Filename string   `json:"filename"`
	URL      string   `json:"url"`
	Content  []byte   `json:"-"`
	Warnings []string `json:"warnings,omitempty"`
}

// ChatUpdate is returned when the chat surface is entered.
type ChatUpdate struct {
	Seeded      bool                   `json:"seeded"`
	NewMessages []entities.ChatMessage `json:"new_messages,omitempty"`
	History     []entities.ChatMessage `json:"history"`
}

// AnalysisOrchestrator drives the report pipeline and the chat session state
// machine. A session moves from no report, to holding an unanalyzed report,
// to analyzed; automatic analysis fires at most once per generated report.
type AnalysisOrchestrator struct {
	sessions  providers.SessionStore
	captions  *CaptionService
	composer  *ReportComposer
	archiver  *ReportArchiver
	extractor providers.TextExtractor
	chatModel providers.ChatModel
	metrics   *observability.Metrics

	// Per-session serialization: no two pipeline or analysis attempts may be
	// in flight concurrently for the same session.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
	convs map[string]providers.Conversation
}

// NewAnalysisOrchestrator creates a new orchestrator.
func NewAnalysisOrchestrator(
	sessions providers.SessionStore,
	captions *CaptionService,
	composer *ReportComposer,
	archiver *ReportArchiver,
	extractor providers.TextExtractor,
	chatModel providers.ChatModel,
	metrics *observability.Metrics,
) *AnalysisOrchestrator {
	return &AnalysisOrchestrator{
		sessions:  sessions,
		captions:  captions,
		composer:  composer,
		archiver:  archiver,
		extractor: extractor,
		chatModel: chatModel,
		metrics:   metrics,
		locks:     make(map[string]*sync.Mutex),
		convs:     make(map[string]providers.Conversation),
	}
}

// OnReportSubmitted runs the full pipeline for a submitted form: caption,
// compose, archive, extract. On success the session holds the new document
// and its text with the analyzed flag reset, so the next chat surface visit
// seeds automatic analysis.
func (o *AnalysisOrchestrator) OnReportSubmitted(ctx context.Context, sessionID string, form *entities.PatientForm) (*ReportResult, error) {
	lock := o.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	state, ok := o.sessions.Get(sessionID)
	if !ok {
		return nil, apperrors.NewNotFoundError("session not found")
	}

	// The form survives in session state even if a later step fails, so a
	// partial fill is not lost on resubmission.
	form.Gender = entities.NormalizeGender(string(form.Gender))
	state.Form = form
	o.sessions.Save(sessionID, state)

	caption := o.captions.Generate(ctx, form.ImageBytes)

	doc, err := o.composer.Compose(ctx, form, caption)
	if err != nil {
		return nil, err
	}

	url, archiveErr := o.archiver.Archive(ctx, doc, form.Name, state.UserID)
	if archiveErr != nil && !apperrors.IsType(archiveErr, apperrors.ErrorTypeRecordWrite) {
		return nil, archiveErr
	}
	doc.URL = url

	result := &ReportResult{
		Filename: doc.Filename,
		URL:      url,
		Content:  doc.Content,
	}
	if archiveErr != nil {
		// Record write failed after a successful upload. The blob stays and
		// the pipeline continues; the degraded state is reported to the caller.
		observability.LoggerFromContext(ctx).Error().Err(archiveErr).Str("filename", doc.Filename).Msg("report record append failed")
		result.Warnings = append(result.Warnings, "report was stored but its history record could not be written")
	}

	state.Document = doc

	text, extractErr := o.extractor.Extract(doc.Content)
	if extractErr != nil {
		// Extraction failure does not un-archive the report; it only means
		// there is nothing to seed analysis from.
		state.ExtractedText = ""
		state.Analyzed = false
		o.sessions.Save(sessionID, state)
		observability.LoggerFromContext(ctx).Error().Err(extractErr).Str("filename", doc.Filename).Msg("report text extraction failed")
		result.Warnings = append(result.Warnings, "report was archived but its text could not be extracted for analysis")
		return result, nil
	}

	state.ExtractedText = text
	state.Analyzed = false
	o.sessions.Save(sessionID, state)

	if o.metrics != nil {
		o.metrics.ReportGeneratedCount.Add(ctx, 1)
	}
	return result, nil
}

// OnChatSurfaceEntered seeds automatic analysis for a fresh report. It is
// idempotent per report: once the seeding reply has been recorded, further
// visits return the transcript without calling the model. With no report in
// the session it is a plain transcript read.
func (o *AnalysisOrchestrator) OnChatSurfaceEntered(ctx context.Context, sessionID string) (*ChatUpdate, error) {
	lock := o.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	state, ok := o.sessions.Get(sessionID)
	if !ok {
		return nil, apperrors.NewNotFoundError("session not found")
	}

	if !state.HasReport() || state.Analyzed {
		return &ChatUpdate{History: copyHistory(state.History)}, nil
	}

	conv := o.conversation(sessionID, state)
	prompt := state.ExtractedText + analysisInstruction

	reply, err := conv.Send(ctx, prompt)
	if err != nil {
		// The flag is not advanced, so the next visit retries the seeding.
		return nil, apperrors.NewChatCallError("report analysis failed", err)
	}

	turns := []entities.ChatMessage{
		{Role: entities.ChatRoleUser, Text: prompt},
		{Role: entities.ChatRoleAssistant, Text: reply},
	}
	state.History = append(state.History, turns...)
	state.Analyzed = true
	o.sessions.Save(sessionID, state)

	if o.metrics != nil {
		o.metrics.AnalysisSeededCount.Add(ctx, 1)
	}
	return &ChatUpdate{
		Seeded:      true,
		NewMessages: turns,
		History:     copyHistory(state.History),
	}, nil
}

// OnUserQuery appends one user turn and the model's reply. The full
// accumulated history is the model context. A failed call records nothing.
func (o *AnalysisOrchestrator) OnUserQuery(ctx context.Context, sessionID, query string) (string, error) {
	lock := o.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	state, ok := o.sessions.Get(sessionID)
	if !ok {
		return "", apperrors.NewNotFoundError("session not found")
	}

	conv := o.conversation(sessionID, state)

	reply, err := conv.Send(ctx, query)
	if err != nil {
		return "", apperrors.NewChatCallError("chat query failed", err)
	}

	state.History = append(state.History,
		entities.ChatMessage{Role: entities.ChatRoleUser, Text: query},
		entities.ChatMessage{Role: entities.ChatRoleAssistant, Text: reply},
	)
	o.sessions.Save(sessionID, state)

	if o.metrics != nil {
		o.metrics.ChatTurnCount.Add(ctx, 1)
	}
	return reply, nil
}

// History returns the session's transcript.
func (o *AnalysisOrchestrator) History(sessionID string) ([]entities.ChatMessage, error) {
	lock := o.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	state, ok := o.sessions.Get(sessionID)
	if !ok {
		return nil, apperrors.NewNotFoundError("session not found")
	}
	return copyHistory(state.History), nil
}

// ForgetSession drops the session's conversation handle and lock. Called on
// logout, after the session store entry has been deleted.
func (o *AnalysisOrchestrator) ForgetSession(sessionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.convs, sessionID)
	delete(o.locks, sessionID)
}

// conversation returns the session's stateful chat handle, opening one
// seeded with the stored history on first use. A new report does not reset
// the conversation: the seeding prompt joins the existing exchange.
func (o *AnalysisOrchestrator) conversation(sessionID string, state *entities.SessionState) providers.Conversation {
	o.mu.Lock()
	defer o.mu.Unlock()

	conv, ok := o.convs[sessionID]
	if !ok {
		conv = o.chatModel.StartSession(state.History)
		o.convs[sessionID] = conv
	}
	return conv
}

func (o *AnalysisOrchestrator) sessionLock(sessionID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()

	lock, ok := o.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[sessionID] = lock
	}
	return lock
}

func copyHistory(history []entities.ChatMessage) []entities.ChatMessage {
	out := make([]entities.ChatMessage, len(history))
	copy(out, history)
	return out
}
