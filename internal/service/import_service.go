package service

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"bimbel_asn_backend/internal/model"
	"bimbel_asn_backend/internal/util"
	"bimbel_asn_backend/pkg/logger"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Expected spreadsheet layout, first row is the header:
// category | subject | subtype | difficulty | passage | question |
// option_a..option_e | correct_answer | answer_scores | explanation

// ImportService bulk-loads master questions from admin-uploaded Excel files.
// Each row goes through the same validation and dedupe as a single create;
// a bad row is reported and skipped, never aborts the file.
type ImportService struct {
	Questions *QuestionService
}

func NewImportService(questions *QuestionService) *ImportService {
	return &ImportService{Questions: questions}
}

// ImportReport summarizes one file import.
type ImportReport struct {
	Rows       int      `json:"rows"`
	Imported   int      `json:"imported"`
	Duplicates int      `json:"duplicates"`
	Failed     int      `json:"failed"`
	RowErrors  []string `json:"rowErrors,omitempty"`
}

// ImportExcel reads the first sheet of an .xlsx stream and creates one
// question per data row.
func (s *ImportService) ImportExcel(r io.Reader) (*ImportReport, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("spreadsheet has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, errors.New("spreadsheet has no data rows")
	}

	report := &ImportReport{}
	for i, row := range rows[1:] {
		rowNum := i + 2
		report.Rows++

		in, err := parseImportRow(row)
		if err != nil {
			report.Failed++
			report.RowErrors = append(report.RowErrors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}

		_, err = s.Questions.Create(*in)
		if errors.Is(err, util.ErrDuplicateQuestion) {
			report.Duplicates++
			continue
		}
		if err != nil {
			report.Failed++
			report.RowErrors = append(report.RowErrors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		report.Imported++
	}

	logger.Log.Info("question import finished",
		zap.Int("rows", report.Rows),
		zap.Int("imported", report.Imported),
		zap.Int("duplicates", report.Duplicates),
		zap.Int("failed", report.Failed))
	return report, nil
}

func parseImportRow(row []string) (*CreateQuestionInput, error) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	in := &CreateQuestionInput{
		TestCategory:   model.TestCategory(strings.ToLower(cell(0))),
		Subject:        strings.ToLower(cell(1)),
		Subtype:        strings.ToLower(cell(2)),
		Difficulty:     model.Difficulty(strings.ToLower(cell(3))),
		ReadingPassage: cell(4),
		QuestionText:   cell(5),
		Options: model.OptionMap{
			"A": cell(6), "B": cell(7), "C": cell(8), "D": cell(9), "E": cell(10),
		},
		CorrectAnswer: strings.ToUpper(cell(11)),
		Explanation:   cell(13),
	}

	if raw := cell(12); raw != "" {
		scores, err := parseScoreCell(raw)
		if err != nil {
			return nil, err
		}
		in.AnswerScores = scores
		in.CorrectAnswer = ""
	}
	return in, nil
}

// parseScoreCell parses "A=5,B=4,C=3,D=2,E=1" into a score map.
func parseScoreCell(raw string) (model.ScoreMap, error) {
	scores := model.ScoreMap{}
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed score entry %q", pair)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("malformed score value %q", parts[1])
		}
		scores[strings.ToUpper(strings.TrimSpace(parts[0]))] = v
	}
	return scores, nil
}
