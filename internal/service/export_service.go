package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/questionnaire-api/internal/dto"
	"github.com/noah-isme/questionnaire-api/internal/models"
	"github.com/noah-isme/questionnaire-api/internal/repository"
)

const (
	exportSheetName   = "Responses"
	exportTimeLayout  = "2006-01-02 15:04:05"
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	multiAnswerJoiner = ", "
)

// ExportFile is a generated download.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ExportService renders survey responses as spreadsheets.
type ExportService interface {
	ExportResponses(ctx context.Context, identity dto.Identity, surveyID uint) (ExportFile, error)
}

type exportService struct {
	surveys     repository.SurveyRepository
	submissions repository.SubmissionRepository
	logger      zerolog.Logger
}

// NewExportService constructs the export service.
func NewExportService(surveys repository.SurveyRepository, submissions repository.SubmissionRepository, logger zerolog.Logger) ExportService {
	return &exportService{
		surveys:     surveys,
		submissions: submissions,
		logger:      logger.With().Str("component", "export_service").Logger(),
	}
}

func (s *exportService) ExportResponses(ctx context.Context, identity dto.Identity, surveyID uint) (ExportFile, error) {
	survey, err := loadOwnedSurvey(ctx, s.surveys, identity, surveyID, true)
	if err != nil {
		return ExportFile{}, err
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{
		SurveyID:    &survey.ID,
		WithAnswers: true,
		OldestFirst: true,
	})
	if err != nil {
		return ExportFile{}, err
	}

	content, err := renderResponsesWorkbook(survey, submissions)
	if err != nil {
		s.logger.Error().Err(err).Uint("survey_id", survey.ID).Msg("failed to render export workbook")
		return ExportFile{}, err
	}

	s.logger.Info().Uint("survey_id", survey.ID).Int("rows", len(submissions)).Msg("survey responses exported")

	return ExportFile{
		Filename:    exportFilename(survey.Title),
		ContentType: xlsxContentType,
		Content:     content,
	}, nil
}

// renderResponsesWorkbook writes the title in row 1, headers in row 2 and one
// row per submission below.
func renderResponsesWorkbook(survey models.Survey, submissions []models.Submission) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheetName); err != nil {
		return nil, err
	}

	if err := f.SetCellValue(exportSheetName, "A1", survey.Title); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(exportSheetName, "A1", "A1", bold); err != nil {
		return nil, err
	}

	headers := []interface{}{"Submitted At", "Student", "Student Number"}
	for _, question := range survey.Questions {
		headers = append(headers, question.Text)
	}
	if err := f.SetSheetRow(exportSheetName, "A2", &headers); err != nil {
		return nil, err
	}

	optionText := make(map[uint]string)
	for _, question := range survey.Questions {
		for _, option := range question.Options {
			optionText[option.ID] = option.Text
		}
	}

	for index, submission := range submissions {
		values := make(map[uint][]string, len(survey.Questions))
		for _, answer := range submission.Answers {
			switch {
			case answer.OptionID != nil:
				values[answer.QuestionID] = append(values[answer.QuestionID], optionText[*answer.OptionID])
			case answer.TextAnswer != nil:
				values[answer.QuestionID] = append(values[answer.QuestionID], *answer.TextAnswer)
			}
		}

		studentNumber := ""
		if submission.Student.StudentNumber != nil {
			studentNumber = *submission.Student.StudentNumber
		}

		row := []interface{}{
			submission.SubmittedAt.In(time.UTC).Format(exportTimeLayout),
			submission.Student.Username,
			studentNumber,
		}
		for _, question := range survey.Questions {
			row = append(row, strings.Join(values[question.ID], multiAnswerJoiner))
		}

		cell, err := excelize.CoordinatesToCellName(1, index+3)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(exportSheetName, cell, &row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exportFilename(title string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '\n', '\r', '\t':
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
	if cleaned == "" {
		cleaned = "survey"
	}
	return fmt.Sprintf("%s-responses.xlsx", cleaned)
}
