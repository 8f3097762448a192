// Package assistant orchestrates one chat turn end to end: load session,
// advance the conversation state machine, assemble the prompt, route it
// to a provider and persist the result.
package assistant

import (
	"context"
	"log/slog"
	"strings"

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

// AskRequest is one inbound chat turn.
type AskRequest struct {
	SessionID     string
	Question      string
	SelectedSheet string
	IsFeedback    bool
	Image         []byte
	ImageMIME     string
}

// AskResponse is the assistant's reply for one turn.
type AskResponse struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
	Action    string `json:"action"`
	Answer    string `json:"answer"`

	// Clarification fields, set when Action is "clarify".
	ClarifyType       string `json:"clarify_type,omitempty"`
	ClarifyContext    string `json:"clarify_context,omitempty"`
	ClarifyCount      int    `json:"clarify_count,omitempty"`
	MaxClarifications int    `json:"max_clarifications,omitempty"`

	Category   string              `json:"category"`
	Forced     bool                `json:"forced,omitempty"`
	TopicReset bool                `json:"topic_reset,omitempty"`
	Calls      []router.CallRecord `json:"calls,omitempty"`
}

// Status reports service health for the status endpoint.
type Status struct {
	Providers []*provider.Status `json:"providers"`
	Sessions  int                `json:"sessions"`
	Messages  int                `json:"messages"`
}

// Assistant wires the pipeline together.
type Assistant struct {
	cfg       *config.Config
	store     *session.Store
	reader    *sheet.Reader
	gen       *sheet.Generator
	cls       *classifier.Classifier
	machine   *conversation.Machine
	assembler *prompt.Assembler
	rt        *router.Router
	reg       *provider.Registry
	log       *slog.Logger
}

// New builds an assistant over its collaborators.
func New(cfg *config.Config, store *session.Store, reader *sheet.Reader,
	gen *sheet.Generator, cls *classifier.Classifier, machine *conversation.Machine,
	assembler *prompt.Assembler, rt *router.Router, reg *provider.Registry,
	log *slog.Logger) *Assistant {
	if log == nil {
		log = slog.Default()
	}
	return &Assistant{
		cfg: cfg, store: store, reader: reader, gen: gen,
		cls: cls, machine: machine, assembler: assembler,
		rt: rt, reg: reg, log: log,
	}
}

// Ask processes one chat turn.
func (a *Assistant) Ask(ctx context.Context, req *AskRequest) (*AskResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, apperrors.User(apperrors.CodeClassificationInputInvalid, "질문을 입력해주세요")
	}

	id, err := a.store.Create(req.SessionID)
	if err != nil {
		return nil, err
	}
	sess, err := a.store.Get(id)
	if err != nil {
		return nil, err
	}

	if req.SelectedSheet != "" && req.SelectedSheet != sess.SelectedSheet {
		if err := a.store.SelectSheet(id, req.SelectedSheet); err != nil {
			return nil, err
		}
		sess.SelectedSheet = req.SelectedSheet
	}

	convCtx, err := conversation.Unmarshal(sess.ContextBlob)
	if err != nil {
		a.log.Warn("corrupt context blob, starting fresh", "session", id, "error", err)
		convCtx = conversation.NewContext()
	}
	wasClarifying := convCtx.State == conversation.StateClarifying

	known, fileSummary := a.describeFile(sess)

	in := classifier.Input{
		Question:   question,
		HasFile:    len(sess.FileContent) > 0,
		HasImage:   len(req.Image) > 0,
		IsFeedback: req.IsFeedback,
	}

	decision := a.machine.Advance(convCtx, in, known)

	if err := a.store.AppendMessage(id, "user", question, map[string]any{
		"is_feedback": req.IsFeedback,
		"has_image":   in.HasImage,
	}); err != nil {
		return nil, err
	}

	resp := &AskResponse{
		SessionID:  id,
		State:      string(convCtx.State),
		Action:     decision.Action.String(),
		Category:   string(decision.Result.Category),
		Forced:     decision.Forced,
		TopicReset: decision.TopicReset,
	}

	if decision.Action == conversation.ActionClarify {
		q := decision.Question
		resp.Answer = q.Question
		resp.ClarifyType = string(q.Type)
		resp.ClarifyContext = q.Context
		resp.ClarifyCount = convCtx.Count
		resp.MaxClarifications = a.machine.MaxClarifications()

		if err := a.store.AppendMessage(id, "assistant", q.Question, map[string]any{
			"type":         "clarification",
			"clarify_type": string(q.Type),
		}); err != nil {
			return nil, err
		}
		return resp, a.saveContext(id, convCtx)
	}

	// Only the turn that closes a clarifying run answers the thread's
	// original question; a feedback short-circuit keeps its own text.
	closedClarifying := wasClarifying && !req.IsFeedback

	out, plan, err := a.generate(ctx, id, question, closedClarifying, convCtx, decision, sess, fileSummary, req)
	if err != nil {
		// The turn's context changes are kept so a retry resumes from
		// the same state instead of re-asking clarifications.
		if saveErr := a.saveContext(id, convCtx); saveErr != nil {
			a.log.Error("context save after provider failure", "session", id, "error", saveErr)
		}
		return nil, err
	}

	a.machine.Complete(convCtx)
	resp.State = string(convCtx.State)
	resp.Answer = out.Text
	resp.Calls = out.Records

	if err := a.store.AppendMessage(id, "assistant", out.Text, map[string]any{
		"type":  "answer",
		"tier":  plan.Tier.String(),
		"calls": out.Records,
	}); err != nil {
		return nil, err
	}
	return resp, a.saveContext(id, convCtx)
}

// generate runs the provider pipeline for a plan/execute decision.
func (a *Assistant) generate(ctx context.Context, id, question string, closedClarifying bool,
	convCtx *conversation.Context, decision conversation.Decision,
	sess *session.Session, fileSummary string, req *AskRequest) (*router.Outcome, *router.Plan, error) {

	largeFile := len(sess.FileContent) > a.cfg.Routing.HybridFileBytes

	plan := a.rt.Route(router.RouteInput{
		Category:  decision.Result.Category,
		Skill:     decision.Result.Skill,
		State:     convCtx.State,
		HasFile:   len(sess.FileContent) > 0,
		HasImage:  len(req.Image) > 0,
		LargeFile: largeFile,
	})
	a.log.Info("routed turn",
		"session", id,
		"category", decision.Result.Category,
		"tier", plan.Tier,
		"reason", plan.Reason,
	)

	// The turn that closes a clarifying run answers the thread's original
	// question; the collected answers ride along in their own section.
	// Every other turn answers the message the user just sent.
	genQuestion := question
	if closedClarifying && convCtx.OriginalQuestion != "" {
		genQuestion = convCtx.OriginalQuestion
	}

	history, err := a.history(id)
	if err != nil {
		return nil, nil, err
	}

	payload := a.assembler.Build(prompt.Input{
		State:       convCtx.State,
		Category:    decision.Result.Category,
		Question:    genQuestion,
		History:     history,
		Answers:     convCtx.Answers,
		FileSummary: fileSummary,
		Forced:      decision.Forced,
	})

	execReq := &router.ExecRequest{Payload: payload}
	if plan.Hybrid {
		execReq.Summarize = a.assembler.SummarizePayload(genQuestion, fileSummary)
	}
	if plan.ImageFirst {
		execReq.ImageProbe = a.assembler.ImagePayload()
		execReq.Image = req.Image
		execReq.ImageMIME = req.ImageMIME
	}

	out, err := a.rt.Execute(ctx, plan, execReq)
	if err != nil {
		return nil, nil, err
	}
	return out, plan, nil
}

// AnalyzeSheets ingests an uploaded file into a session and returns its
// structural summary for sheet selection.
func (a *Assistant) AnalyzeSheets(sessionID, filename string, content []byte) (string, *sheet.Analysis, error) {
	analysis, err := a.reader.Analyze(filename, content)
	if err != nil {
		return "", nil, err
	}

	id, err := a.store.Create(sessionID)
	if err != nil {
		return "", nil, err
	}
	if err := a.store.SaveFile(id, filename, content); err != nil {
		return "", nil, err
	}
	return id, analysis, nil
}

// GeneratedFile describes a workbook produced for download.
type GeneratedFile struct {
	FileID      string `json:"file_id"`
	DownloadURL string `json:"download_url"`
	Message     string `json:"message"`
}

// GenerateFile builds a downloadable workbook from the session's cached
// upload, annotated with the assistant's analysis.
func (a *Assistant) GenerateFile(sessionID, aiResponse string) (*GeneratedFile, error) {
	sess, err := a.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if len(sess.FileContent) == 0 {
		return nil, apperrors.User(apperrors.CodeFileNotFound, "원본 파일 데이터를 찾을 수 없습니다")
	}

	note := strings.TrimSpace(aiResponse)
	if note == "" {
		note = "파일 생성 요청으로 인한 분석 결과 파일입니다."
	}

	id, err := a.gen.Generate(sess.Filename, sess.FileContent, sess.SelectedSheet, note)
	if err != nil {
		return nil, err
	}
	a.log.Info("generated file", "session", sessionID, "file_id", id)

	return &GeneratedFile{
		FileID:      id,
		DownloadURL: "/api/chat/download/" + id,
		Message:     "요청하신 작업이 완료된 파일이 생성되었습니다.",
	}, nil
}

// DownloadPath resolves a generated file id to its on-disk path.
func (a *Assistant) DownloadPath(fileID string) (string, error) {
	return a.gen.Path(fileID)
}

// Sessions lists stored sessions, most recent first.
func (a *Assistant) Sessions() ([]session.Info, error) {
	return a.store.List()
}

// History returns a session's message log.
func (a *Assistant) History(id string) ([]session.Message, error) {
	return a.store.Messages(id)
}

// DeleteSession removes one session.
func (a *Assistant) DeleteSession(id string) error {
	return a.store.Delete(id)
}

// DeleteAllSessions removes every session.
func (a *Assistant) DeleteAllSessions() error {
	return a.store.DeleteAll()
}

// ClearMessages wipes a session's log and conversation state.
func (a *Assistant) ClearMessages(id string) error {
	return a.store.ClearMessages(id)
}

// Status reports provider availability and store counts.
func (a *Assistant) Status() (*Status, error) {
	sessions, messages, err := a.store.Stats()
	if err != nil {
		return nil, err
	}
	return &Status{
		Providers: a.reg.Statuses(),
		Sessions:  sessions,
		Messages:  messages,
	}, nil
}

// Cleanup removes sessions idle past the configured timeout.
func (a *Assistant) Cleanup() (int, error) {
	return a.store.Cleanup(a.cfg.SessionTimeout())
}

// describeFile summarizes the session's cached upload, if any.
func (a *Assistant) describeFile(sess *session.Session) (*conversation.KnownFile, string) {
	if len(sess.FileContent) == 0 {
		return nil, ""
	}
	analysis, err := a.reader.Analyze(sess.Filename, sess.FileContent)
	if err != nil {
		a.log.Warn("cached file unreadable", "session", sess.ID, "error", err)
		return nil, ""
	}

	known := &conversation.KnownFile{
		Filename:   sess.Filename,
		SheetNames: analysis.SheetNames(),
	}
	if info := analysis.Sheet(sess.SelectedSheet); info != nil {
		known.Columns = info.Headers
	}
	return known, sheet.Summary(analysis, sess.SelectedSheet)
}

// history converts the stored message log into prompt turns, excluding
// the turn currently being processed.
func (a *Assistant) history(id string) ([]prompt.Turn, error) {
	msgs, err := a.store.Messages(id)
	if err != nil {
		return nil, err
	}
	if n := len(msgs); n > 0 {
		msgs = msgs[:n-1] // current user turn was just appended
	}
	turns := make([]prompt.Turn, 0, len(msgs))
	for _, m := range msgs {
		turns = append(turns, prompt.Turn{Role: m.Role, Content: m.Content})
	}
	return turns, nil
}

func (a *Assistant) saveContext(id string, c *conversation.Context) error {
	blob, err := c.Marshal()
	if err != nil {
		return err
	}
	return a.store.SaveContext(id, blob)
}
