package assistant

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CHULJU-KIM/Excelly/internal/classifier"
	"github.com/CHULJU-KIM/Excelly/internal/config"
	"github.com/CHULJU-KIM/Excelly/internal/conversation"
	apperrors "github.com/CHULJU-KIM/Excelly/internal/errors"
	"github.com/CHULJU-KIM/Excelly/internal/prompt"
	"github.com/CHULJU-KIM/Excelly/internal/provider"
	"github.com/CHULJU-KIM/Excelly/internal/router"
	"github.com/CHULJU-KIM/Excelly/internal/session"
	"github.com/CHULJU-KIM/Excelly/internal/sheet"
)

type stubProvider struct {
	name    string
	tier    provider.Tier
	text    string
	err     error
	calls   int
	prompts []string
}

func (s *stubProvider) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	s.calls++
	s.prompts = append(s.prompts, req.Prompt)
	if s.err != nil {
		return nil, s.err
	}
	return &provider.Response{Text: s.text, Model: s.name, DurationMs: 1}, nil
}

func (s *stubProvider) Name() string        { return s.name }
func (s *stubProvider) Tier() provider.Tier { return s.tier }
func (s *stubProvider) Available() bool     { return true }
func (s *stubProvider) Status() *provider.Status {
	return &provider.Status{Name: s.name, Tier: s.tier.String(), Available: true}
}

type fixture struct {
	a     *Assistant
	store *session.Store
	cfg   *config.Config
	fleet map[provider.Tier]*stubProvider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := config.Default()
	cfg.Session.DBPath = filepath.Join(t.TempDir(), "test.db")

	store, err := session.Open(cfg.Session.DBPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	fleet := map[provider.Tier]*stubProvider{
		provider.TierFast:     {name: "fast", tier: provider.TierFast, text: "빠른 답변"},
		provider.TierStandard: {name: "standard", tier: provider.TierStandard, text: "표준 답변"},
		provider.TierPrecise:  {name: "precise", tier: provider.TierPrecise, text: "정밀 답변"},
		provider.TierMax:      {name: "max", tier: provider.TierMax, text: "최대 답변"},
	}
	reg := provider.NewRegistry(
		fleet[provider.TierFast], fleet[provider.TierStandard],
		fleet[provider.TierPrecise], fleet[provider.TierMax])

	reader := sheet.NewReader(cfg.Upload.MaxFileBytes, cfg.Upload.AllowedTypes)
	gen, err := sheet.NewGenerator(filepath.Join(t.TempDir(), "generated"), reader)
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cls := classifier.New(nil)
	a := New(cfg, store, reader, gen, cls,
		conversation.NewMachine(cls, cfg.Conversation.MaxClarifications),
		prompt.NewAssembler(cfg.Conversation.HistoryBudget),
		router.New(reg, time.Second, cfg.Routing.MaxTokens, log),
		reg, log)

	return &fixture{a: a, store: store, cfg: cfg, fleet: fleet}
}

func (f *fixture) contextOf(t *testing.T, id string) *conversation.Context {
	t.Helper()
	sess, err := f.store.Get(id)
	require.NoError(t, err)
	ctx, err := conversation.Unmarshal(sess.ContextBlob)
	require.NoError(t, err)
	return ctx
}

func TestAskPersistsTurn(t *testing.T) {
	f := newFixture(t)

	resp, err := f.a.Ask(context.Background(), &AskRequest{
		Question: "VLOOKUP으로 A열에서 값을 찾고 싶어요",
	})
	require.NoError(t, err)

	assert.Equal(t, "빠른 답변", resp.Answer)
	assert.Equal(t, "completed", resp.State)

	msgs, err := f.store.Messages(resp.SessionID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "assistant", msgs[1].Role)
	assert.Contains(t, string(msgs[1].Metadata), "fast")

	assert.Equal(t, conversation.StateCompleted, f.contextOf(t, resp.SessionID).State)
}

func TestAskClarificationRoundTrip(t *testing.T) {
	f := newFixture(t)

	first, err := f.a.Ask(context.Background(), &AskRequest{Question: "엑셀 작업을 도와주세요"})
	require.NoError(t, err)
	require.Equal(t, "clarify", first.Action)
	assert.Equal(t, 1, first.ClarifyCount)

	// No provider call happens on a clarify turn.
	for _, p := range f.fleet {
		assert.Zero(t, p.calls)
	}

	// State survives the process boundary through the store.
	assert.Equal(t, conversation.StateClarifying, f.contextOf(t, first.SessionID).State)

	second, err := f.a.Ask(context.Background(), &AskRequest{
		SessionID: first.SessionID,
		Question:  "VLOOKUP으로 A열에서 찾으면 돼요",
	})
	require.NoError(t, err)
	assert.Equal(t, "execute", second.Action)
	assert.NotEmpty(t, second.Answer)
}

func TestAskFeedbackRoutesPrecise(t *testing.T) {
	f := newFixture(t)

	resp, err := f.a.Ask(context.Background(), &AskRequest{
		Question:   "알려주신 수식이 안돼요",
		IsFeedback: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "정밀 답변", resp.Answer)
	assert.Equal(t, "debugging", resp.Category)
	require.Len(t, resp.Calls, 1)
	assert.Equal(t, "precise", resp.Calls[0].Provider)
}

func TestAskFeedbackAfterClarifiedThreadKeepsOwnText(t *testing.T) {
	f := newFixture(t)

	first, err := f.a.Ask(context.Background(), &AskRequest{Question: "엑셀 작업을 도와주세요"})
	require.NoError(t, err)
	require.Equal(t, "clarify", first.Action)

	second, err := f.a.Ask(context.Background(), &AskRequest{
		SessionID: first.SessionID,
		Question:  "VLOOKUP으로 A열에서 찾으면 돼요",
	})
	require.NoError(t, err)
	require.Equal(t, "execute", second.Action)

	// The turn that closed the clarifying run answers the thread's
	// original question.
	answering := f.fleet[providerTier(t, f, second)]
	require.NotEmpty(t, answering.prompts)
	assert.Contains(t, answering.prompts[len(answering.prompts)-1], "엑셀 작업을 도와주세요")

	feedback := "알려주신 수식이 안돼요"
	third, err := f.a.Ask(context.Background(), &AskRequest{
		SessionID:  first.SessionID,
		Question:   feedback,
		IsFeedback: true,
	})
	require.NoError(t, err)
	require.Len(t, third.Calls, 1)

	precise := f.fleet[provider.TierPrecise]
	require.NotEmpty(t, precise.prompts)
	got := precise.prompts[len(precise.prompts)-1]
	assert.Contains(t, got, feedback, "feedback text must reach the provider")
	assert.NotContains(t, got, "--- 질문 ---\n엑셀 작업을 도와주세요",
		"feedback turn must not re-ask the thread's original question")
}

// providerTier resolves which tier served a turn from its call records.
func providerTier(t *testing.T, f *fixture, resp *AskResponse) provider.Tier {
	t.Helper()
	require.NotEmpty(t, resp.Calls)
	for tier, p := range f.fleet {
		if p.name == resp.Calls[len(resp.Calls)-1].Provider {
			return tier
		}
	}
	t.Fatalf("unknown provider %q", resp.Calls[len(resp.Calls)-1].Provider)
	return 0
}

func TestAskComplexOverLargeFileRunsHybrid(t *testing.T) {
	f := newFixture(t)
	f.cfg.Routing.HybridFileBytes = 8 // everything counts as large

	id, _, err := f.a.AnalyzeSheets("", "sales.csv", []byte("날짜,금액\n2026-01-01,1000\n"))
	require.NoError(t, err)

	resp, err := f.a.Ask(context.Background(), &AskRequest{
		SessionID: id,
		Question:  "모든 시트를 하나로 합치는 매크로 만들어줘",
	})
	require.NoError(t, err)

	require.Len(t, resp.Calls, 2, "summarize then generate")
	assert.Equal(t, "standard", resp.Calls[0].Provider)
	assert.Equal(t, "precise", resp.Calls[1].Provider)
	assert.Equal(t, "정밀 답변", resp.Answer)
}

func TestAskEmptyQuestionFailsValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.a.Ask(context.Background(), &AskRequest{Question: "   "})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeClassificationInputInvalid))
}

func TestAskKeepsContextOnProviderFailure(t *testing.T) {
	f := newFixture(t)
	for _, p := range f.fleet {
		p.err = errors.New("backend down")
	}

	_, err := f.a.Ask(context.Background(), &AskRequest{
		Question: "VLOOKUP으로 A열에서 값을 찾고 싶어요",
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeProviderUnavailable))
}

func TestAnalyzeSheetsCachesFile(t *testing.T) {
	f := newFixture(t)

	id, analysis, err := f.a.AnalyzeSheets("", "scores.csv", []byte("name,score\nkim,90\n"))
	require.NoError(t, err)
	require.Len(t, analysis.Sheets, 1)

	sess, err := f.store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "scores.csv", sess.Filename)
	assert.NotEmpty(t, sess.FileContent)
}

func TestGenerateFileFromCachedUpload(t *testing.T) {
	f := newFixture(t)

	id, _, err := f.a.AnalyzeSheets("", "sales.csv", []byte("날짜,금액\n2026-01-01,1000\n"))
	require.NoError(t, err)

	gen, err := f.a.GenerateFile(id, "합계 수식을 추가했습니다")
	require.NoError(t, err)

	assert.Len(t, gen.FileID, 8)
	assert.Equal(t, "/api/chat/download/"+gen.FileID, gen.DownloadURL)
	assert.Equal(t, "요청하신 작업이 완료된 파일이 생성되었습니다.", gen.Message)

	path, err := f.a.DownloadPath(gen.FileID)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestGenerateFileWithoutUpload(t *testing.T) {
	f := newFixture(t)

	id, err := f.store.Create("")
	require.NoError(t, err)

	_, err = f.a.GenerateFile(id, "")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeFileNotFound))
}

func TestStatus(t *testing.T) {
	f := newFixture(t)

	_, err := f.a.Ask(context.Background(), &AskRequest{Question: "VLOOKUP으로 A열에서 값을 찾고 싶어요"})
	require.NoError(t, err)

	st, err := f.a.Status()
	require.NoError(t, err)
	assert.Len(t, st.Providers, 4)
	assert.Equal(t, 1, st.Sessions)
	assert.Equal(t, 2, st.Messages)
}
