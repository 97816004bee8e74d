package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"bimbel_asn_backend/internal/model"
	"bimbel_asn_backend/internal/util"

	"github.com/jung-kurt/gofpdf"
)

// ExportService renders a completed session's result sheet as a PDF and
// stores it through the configured file storage.
type ExportService struct {
	Sessions *SessionService
	Storage  FileStorage
}

func NewExportService(sessions *SessionService, storage FileStorage) *ExportService {
	return &ExportService{Sessions: sessions, Storage: storage}
}

// ExportSessionPDF builds the result sheet and returns the stored location.
func (s *ExportService) ExportSessionPDF(ctx context.Context, userID uint, sessionID string, tier model.Tier) (string, error) {
	results, err := s.Sessions.GetSessionResults(userID, sessionID, tier)
	if err != nil {
		return "", err
	}

	data, err := renderResultsPDF(results)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("results/%d/%s.pdf", userID, sessionID)
	return s.Storage.Save(ctx, name, data, "application/pdf")
}

func renderResultsPDF(results *SessionResults) ([]byte, error) {
	sess := results.Session

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Hasil Latihan", false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, "Hasil Sesi Latihan")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Kategori: %s    Mata Uji: %s", sess.TestCategory, sess.Subject))
	pdf.Ln(7)
	if sess.CompletedAt != nil {
		pdf.Cell(0, 7, fmt.Sprintf("Selesai: %s", sess.CompletedAt.Format(util.TimeFormat)))
		pdf.Ln(7)
	}

	score := 0.0
	if sess.Score != nil {
		score = *sess.Score
	}
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Skor: %.1f    Benar: %d    Salah: %d    Kosong: %d",
		score, sess.CorrectCount, sess.IncorrectCount, sess.UnansweredCount))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(12, 7, "No", "1", 0, "C", false, 0, "")
	pdf.CellFormat(118, 7, "Soal", "1", 0, "L", false, 0, "")
	pdf.CellFormat(20, 7, "Jawaban", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 7, "Kunci", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 7, "Nilai", "1", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, r := range results.Questions {
		text := r.QuestionText
		if len(text) > 90 {
			text = text[:87] + "..."
		}
		answer := r.UserAnswer
		if answer == "" {
			answer = "-"
		}
		key := r.CorrectAnswer
		if key == "" {
			key = "-"
		}
		pdf.CellFormat(12, 7, fmt.Sprintf("%d", r.Seq), "1", 0, "C", false, 0, "")
		pdf.CellFormat(118, 7, text, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 7, answer, "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 7, key, "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 7, fmt.Sprintf("%.1f", r.Awarded), "1", 1, "C", false, 0, "")
	}

	pdf.Ln(6)
	pdf.SetFont("Arial", "I", 8)
	pdf.Cell(0, 5, fmt.Sprintf("Dibuat %s", time.Now().Format(util.TimeFormat)))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
