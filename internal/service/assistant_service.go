package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/desa-connect/aspirasi-api/internal/models"
	appErrors "github.com/desa-connect/aspirasi-api/pkg/errors"
)

type promptClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type assistantReportRepository interface {
	GetByID(ctx context.Context, id string) (*models.Report, error)
}

// mindesSystemPrompt pins the assistant to portal topics and Bahasa Indonesia.
const mindesSystemPrompt = `Kamu adalah Mindes, asisten virtual portal Aspirasi Desa.
Jawab hanya pertanyaan seputar cara menggunakan portal: membuat laporan,
memantau status laporan, kategori laporan, dan artikel berita desa.
Jika pertanyaan di luar topik itu, tolak dengan sopan dan arahkan kembali
ke topik portal. Jawab singkat dalam Bahasa Indonesia.`

// AssistantService answers portal questions and summarizes reports through
// an external generative text API.
type AssistantService struct {
	client  promptClient
	reports assistantReportRepository
	logger  *zap.Logger
}

func NewAssistantService(client promptClient, reports assistantReportRepository, logger *zap.Logger) *AssistantService {
	return &AssistantService{client: client, reports: reports, logger: logger}
}

// ChatRequest carries one user question to the assistant.
type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

// ChatResponse carries the assistant's reply.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// Chat answers a single user question within the portal's scope.
func (s *AssistantService) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if s.client == nil {
		return nil, appErrors.ErrAssistantDisabled
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "message must not be empty")
	}

	prompt := fmt.Sprintf("%s\n\nPertanyaan warga: %s", mindesSystemPrompt, message)
	reply, err := s.client.Generate(ctx, prompt)
	if err != nil {
		s.logger.Error("assistant chat failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "assistant is currently unavailable")
	}
	return &ChatResponse{Reply: strings.TrimSpace(reply)}, nil
}

// SummarizeReport produces a short admin-facing summary of one report,
// including its recorded timeline.
func (s *AssistantService) SummarizeReport(ctx context.Context, actor *models.JWTClaims, reportID string) (*ChatResponse, error) {
	if actor == nil || actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators may summarize reports")
	}
	if s.client == nil {
		return nil, appErrors.ErrAssistantDisabled
	}

	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load report")
	}

	var timeline strings.Builder
	for _, entry := range report.Timeline {
		fmt.Fprintf(&timeline, "- %s: %s", entry.CreatedAt.Format("2006-01-02"), entry.Action)
		if entry.Message != "" {
			fmt.Fprintf(&timeline, " (%s)", entry.Message)
		}
		timeline.WriteString("\n")
	}

	prompt := fmt.Sprintf(`Ringkas laporan warga berikut dalam dua kalimat Bahasa Indonesia
untuk admin desa. Sebutkan kategori, prioritas, dan status terakhir.

Judul: %s
Kategori: %s
Prioritas: %s
Status: %s
Deskripsi: %s
Riwayat:
%s`, report.Title, report.Category, report.Priority, report.Status, report.Description, timeline.String())

	summary, err := s.client.Generate(ctx, prompt)
	if err != nil {
		s.logger.Error("report summary failed", zap.String("report_id", reportID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "assistant is currently unavailable")
	}
	return &ChatResponse{Reply: strings.TrimSpace(summary)}, nil
}
