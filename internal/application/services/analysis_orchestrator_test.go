package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/activmedica/backend/internal/adapters/session"
	"github.com/activmedica/backend/internal/application/services"
	"github.com/activmedica/backend/internal/domain/entities"
	"github.com/activmedica/backend/internal/domain/providers"
	apperrors "github.com/activmedica/backend/pkg/errors"
)

// Mocks

type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(templateID string, context map[string]string) ([]byte, error) {
	args := m.Called(templateID, context)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockRenderer) ToPDF(ctx context.Context, markup []byte, opts providers.ConvertOptions) ([]byte, error) {
	args := m.Called(ctx, markup, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type MockTextExtractor struct {
	mock.Mock
}

func (m *MockTextExtractor) Extract(pdfBytes []byte) (string, error) {
	args := m.Called(pdfBytes)
	return args.String(0), args.Error(1)
}

type MockConversation struct {
	mock.Mock
}

func (m *MockConversation) Send(ctx context.Context, message string) (string, error) {
	args := m.Called(ctx, message)
	return args.String(0), args.Error(1)
}

// fakeChatModel hands out a fixed conversation and remembers the history it
// was opened with.
type fakeChatModel struct {
	conv        providers.Conversation
	openedWith  []entities.ChatMessage
	sessionOpen bool
}

func (f *fakeChatModel) StartSession(history []entities.ChatMessage) providers.Conversation {
	f.openedWith = history
	f.sessionOpen = true
	return f.conv
}

// Fixture

type orchestratorFixture struct {
	sessions     providers.SessionStore
	captioner    *MockCaptioner
	renderer     *MockRenderer
	blobs        *MockBlobStore
	records      *MockRecordStore
	extractor    *MockTextExtractor
	conversation *MockConversation
	chatModel    *fakeChatModel
	orchestrator *services.AnalysisOrchestrator
	sessionID    string
}

func newOrchestratorFixture() *orchestratorFixture {
	f := &orchestratorFixture{
		sessions:     session.NewMemoryStore(),
		captioner:    new(MockCaptioner),
		renderer:     new(MockRenderer),
		blobs:        new(MockBlobStore),
		records:      new(MockRecordStore),
		extractor:    new(MockTextExtractor),
		conversation: new(MockConversation),
	}
	f.chatModel = &fakeChatModel{conv: f.conversation}
	f.orchestrator = services.NewAnalysisOrchestrator(
		f.sessions,
		services.NewCaptionService(f.captioner),
		services.NewReportComposer(f.renderer, "report.html", providers.ConvertOptions{AllowLocalFileAccess: true}),
		services.NewReportArchiver(f.blobs, f.records, testRetryConfig()),
		f.extractor,
		f.chatModel,
		nil,
	)
	f.sessionID = f.sessions.Create("user-1", "jane@example.com")
	return f
}

// expectPipeline wires the happy path for one report generation.
func (f *orchestratorFixture) expectPipeline(extracted string) {
	f.renderer.On("Render", "report.html", mock.Anything).Return([]byte("<html></html>"), nil)
	f.renderer.On("ToPDF", mock.Anything, mock.Anything, mock.Anything).Return([]byte("%PDF-1.4"), nil)
	f.blobs.On("Put", mock.Anything, mock.Anything, mock.Anything, "application/pdf").Return(nil)
	f.blobs.On("GetURL", mock.Anything, mock.Anything).Return("https://blobs/report.pdf", nil)
	f.records.On("Append", mock.Anything, mock.Anything).Return(nil)
	f.extractor.On("Extract", []byte("%PDF-1.4")).Return(extracted, nil)
}

func testForm() *entities.PatientForm {
	return &entities.PatientForm{
		Name:         "Jane Roe",
		Gender:       entities.GenderFemale,
		FilenameStem: "jane_roe",
	}
}

const seedSuffix = "\nYou should act as doctor and give full medical report on the findings with full details"

// Tests

func TestAnalysisOrchestrator_OnReportSubmitted(t *testing.T) {
	t.Run("runs the full pipeline and arms analysis", func(t *testing.T) {
		// Arrange
		f := newOrchestratorFixture()
		f.expectPipeline("Findings: unremarkable study.")

		// Act
		result, err := f.orchestrator.OnReportSubmitted(context.Background(), f.sessionID, testForm())

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, "https://blobs/report.pdf", result.URL)
		assert.Contains(t, result.Filename, "jane_roe_")
		assert.Empty(t, result.Warnings)

		state, _ := f.sessions.Get(f.sessionID)
		assert.Equal(t, "Findings: unremarkable study.", state.ExtractedText)
		assert.False(t, state.Analyzed)
		assert.NotNil(t, state.Document)
		f.captioner.AssertNotCalled(t, "Caption", mock.Anything, mock.Anything)
	})

	t.Run("defaults an unrecognized gender", func(t *testing.T) {
		// Arrange
		f := newOrchestratorFixture()
		f.expectPipeline("text")
		form := testForm()
		form.Gender = ""

		// Act
		_, err := f.orchestrator.OnReportSubmitted(context.Background(), f.sessionID, form)

		// Assert
		assert.NoError(t, err)
		state, _ := f.sessions.Get(f.sessionID)
		assert.Equal(t, entities.GenderMale, state.Form.Gender)
	})

	t.Run("rejects an unknown session", func(t *testing.T) {
		// Arrange
		f := newOrchestratorFixture()

		// Act
		_, err := f.orchestrator.OnReportSubmitted(context.Background(), "no-such-session", testForm())

		// Assert
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})

	t.Run("continues past a failed record write with a warning", func(t *testing.T) {
		// Arrange
		f := newOrchestratorFixture()
		f.renderer.On("Render", "report.html", mock.Anything).Return([]byte("<html></html>"), nil)
		f.renderer.On("ToPDF", mock.Anything, mock.Anything, mock.Anything).Return([]byte("%PDF-1.4"), nil)
		f.blobs.On("Put", mock.Anything, mock.Anything, mock.Anything, "application/pdf").Return(nil)
		f.blobs.On("GetURL", mock.Anything, mock.Anything).Return("https://blobs/report.pdf", nil)
		f.records.On("Append", mock.Anything, mock.Anything).Return(errors.New("insert failed"))
		f.extractor.On("Extract", mock.Anything).Return("text", nil)

		// Act
		result, err := f.orchestrator.OnReportSubmitted(context.Background(), f.sessionID, testForm())

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, "https://blobs/report.pdf", result.URL)
		assert.Len(t, result.Warnings, 1)

		state, _ := f.sessions.Get(f.sessionID)
		assert.Equal(t, "text", state.ExtractedText)
	})

	t.Run("keeps the archived report when extraction fails", func(t *testing.T) {
		// Arrange
		f := newOrchestratorFixture()
		f.renderer.On("Render", "report.html", mock.Anything).Return([]byte("<html></html>"), nil)
		f.renderer.On("ToPDF", mock.Anything, mock.Anything, mock.Anything).Return([]byte("%PDF-1.4"), nil)
		f.blobs.On("Put", mock.Anything, mock.Anything, mock.Anything, "application/pdf").Return(nil)
		f.blobs.On("GetURL", mock.Anything, mock.Anything).Return("https://blobs/report.pdf", nil)
		f.records.On("Append", mock.Anything, mock.Anything).Return(nil)
		f.extractor.On("Extract", mock.Anything).Return("", errors.New("malformed xref"))

		// Act
		result, err := f.orchestrator.OnReportSubmitted(context.Background(), f.sessionID, testForm())

		// Assert: the document survives but nothing is armed for analysis
		assert.NoError(t, err)
		assert.Len(t, result.Warnings, 1)

		state, _ := f.sessions.Get(f.sessionID)
		assert.NotNil(t, state.Document)
		assert.Empty(t, state.ExtractedText)
		assert.False(t, state.Analyzed)
	})

	t.Run("aborts when the upload fails for good", func(t *testing.T) {
		// Arrange
		f := newOrchestratorFixture()
		f.renderer.On("Render", "report.html", mock.Anything).Return([]byte("<html></html>"), nil)
		f.renderer.On("ToPDF", mock.Anything, mock.Anything, mock.Anything).Return([]byte("%PDF-1.4"), nil)
		f.blobs.On("Put", mock.Anything, mock.Anything, mock.Anything, "application/pdf").Return(errors.New("bucket unavailable"))

		// Act
		result, err := f.orchestrator.OnReportSubmitted(context.Background(), f.sessionID, testForm())

		// Assert
		assert.Nil(t, result)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUpload))
		f.records.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})
}

func TestAnalysisOrchestrator_OnChatSurfaceEntered(t *testing.T) {
	t.Run("seeds analysis exactly once per report", func(t *testing.T) {
		// Arrange
		f := newOrchestratorFixture()
		f.expectPipeline("Findings: small lesion.")
		_, err := f.orchestrator.OnReportSubmitted(context.Background(), f.sessionID, testForm())
		assert.NoError(t, err)

		f.conversation.On("Send", mock.Anything, "Findings: small lesion."+seedSuffix).Return("The lesion suggests...", nil).Once()

		// Act
		first, err1 := f.orchestrator.OnChatSurfaceEntered(context.Background(), f.sessionID)
		second, err2 := f.orchestrator.OnChatSurfaceEntered(context.Background(), f.sessionID)

		// Assert
		assert.NoError(t, err1)
		assert.NoError(t, err2)
		assert.True(t, first.Seeded)
		assert.False(t, second.Seeded)
		assert.Len(t, first.History, 2)
		assert.Equal(t, first.History, second.History)
		assert.Equal(t, entities.ChatRoleUser, first.History[0].Role)
		assert.Equal(t, "The lesion suggests...", first.History[1].Text)
		f.conversation.AssertNumberOfCalls(t, "Send", 1)
	})

	t.Run("is a plain transcript read with no report", func(t *testing.T) {
		// Arrange
		f := newOrchestratorFixture()

		// Act
		update, err := f.orchestrator.OnChatSurfaceEntered(context.Background(), f.sessionID)

		// Assert
		assert.NoError(t, err)
		assert.False(t, update.Seeded)
		assert.Empty(t, update.History)
		assert.False(t, f.chatModel.sessionOpen)
	})

	t.Run("retries seeding after a failed model call", func(t *testing.T) {
		// Arrange
		f := newOrchestratorFixture()
		f.expectPipeline("Findings: small lesion.")
		_, _ = f.orchestrator.OnReportSubmitted(context.Background(), f.sessionID, testForm())

		f.conversation.On("Send", mock.Anything, mock.Anything).Return("", errors.New("model unavailable")).Once()
		f.conversation.On("Send", mock.Anything, mock.Anything).Return("Analysis complete.", nil).Once()

		// Act
		_, firstErr := f.orchestrator.OnChatSurfaceEntered(context.Background(), f.sessionID)
		update, secondErr := f.orchestrator.OnChatSurfaceEntered(context.Background(), f.sessionID)

		// Assert: the failure left nothing behind, the retry seeded
		assert.True(t, apperrors.IsType(firstErr, apperrors.ErrorTypeChatCall))
		assert.NoError(t, secondErr)
		assert.True(t, update.Seeded)
		assert.Len(t, update.History, 2)

		state, _ := f.sessions.Get(f.sessionID)
		assert.True(t, state.Analyzed)
	})

	t.Run("re-seeds for a new report without clearing the transcript", func(t *testing.T) {
		// Arrange
		f := newOrchestratorFixture()
		f.expectPipeline("First findings.")
		_, _ = f.orchestrator.OnReportSubmitted(context.Background(), f.sessionID, testForm())

		f.conversation.On("Send", mock.Anything, "First findings."+seedSuffix).Return("First analysis.", nil).Once()
		_, err := f.orchestrator.OnChatSurfaceEntered(context.Background(), f.sessionID)
		assert.NoError(t, err)

		f.extractor.ExpectedCalls = nil
		f.extractor.On("Extract", mock.Anything).Return("Second findings.", nil)
		_, _ = f.orchestrator.OnReportSubmitted(context.Background(), f.sessionID, testForm())

		f.conversation.On("Send", mock.Anything, "Second findings."+seedSuffix).Return("Second analysis.", nil).Once()

		// Act
		update, err := f.orchestrator.OnChatSurfaceEntered(context.Background(), f.sessionID)

		// Assert: four turns, both analyses in one continuous transcript
		assert.NoError(t, err)
		assert.True(t, update.Seeded)
		assert.Len(t, update.History, 4)
		assert.Equal(t, "First analysis.", update.History[1].Text)
		assert.Equal(t, "Second analysis.", update.History[3].Text)
	})
}

func TestAnalysisOrchestrator_OnUserQuery(t *testing.T) {
	t.Run("appends the exchange on success", func(t *testing.T) {
		// Arrange
		f := newOrchestratorFixture()
		f.conversation.On("Send", mock.Anything, "What does it mean?").Return("It means...", nil)

		// Act
		reply, err := f.orchestrator.OnUserQuery(context.Background(), f.sessionID, "What does it mean?")

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, "It means...", reply)

		history, _ := f.orchestrator.History(f.sessionID)
		assert.Len(t, history, 2)
		assert.Equal(t, "What does it mean?", history[0].Text)
		assert.Equal(t, "It means...", history[1].Text)
	})

	t.Run("records nothing when the model call fails", func(t *testing.T) {
		// Arrange
		f := newOrchestratorFixture()
		f.conversation.On("Send", mock.Anything, mock.Anything).Return("", errors.New("quota exhausted"))

		// Act
		_, err := f.orchestrator.OnUserQuery(context.Background(), f.sessionID, "What does it mean?")

		// Assert
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeChatCall))
		history, _ := f.orchestrator.History(f.sessionID)
		assert.Empty(t, history)
	})

	t.Run("opens the conversation with the stored transcript", func(t *testing.T) {
		// Arrange
		f := newOrchestratorFixture()
		state, _ := f.sessions.Get(f.sessionID)
		state.History = []entities.ChatMessage{
			{Role: entities.ChatRoleUser, Text: "earlier question"},
			{Role: entities.ChatRoleAssistant, Text: "earlier answer"},
		}
		f.sessions.Save(f.sessionID, state)
		f.conversation.On("Send", mock.Anything, mock.Anything).Return("continuing", nil)

		// Act
		_, err := f.orchestrator.OnUserQuery(context.Background(), f.sessionID, "and now?")

		// Assert
		assert.NoError(t, err)
		assert.Len(t, f.chatModel.openedWith, 2)
	})
}

func TestAnalysisOrchestrator_History(t *testing.T) {
	t.Run("returns not found for an unknown session", func(t *testing.T) {
		// Arrange
		f := newOrchestratorFixture()

		// Act
		_, err := f.orchestrator.History("no-such-session")

		// Assert
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})
}
