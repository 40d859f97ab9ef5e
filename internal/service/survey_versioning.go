package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/noah-isme/questionnaire-api/internal/dto"
	"github.com/noah-isme/questionnaire-api/internal/models"
)

const (
	surveyCodeLength   = 8
	surveyCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	versionSeparator   = " - "
)

// surveyContent is the normalized, comparable form of authored survey content.
type surveyContent struct {
	Title     string
	Questions []questionContent
}

type questionContent struct {
	Text    string
	Type    string
	Options []string
}

// normalizeSurveyContent trims the payload, drops blank questions and options,
// and rejects content that cannot be stored.
func normalizeSurveyContent(payload dto.SurveyContentRequest, sanitize func(string) string) (surveyContent, error) {
	if sanitize == nil {
		sanitize = func(value string) string { return value }
	}

	content := surveyContent{Title: strings.TrimSpace(sanitize(payload.Title))}
	if content.Title == "" {
		return surveyContent{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	for index, input := range payload.Questions {
		text := strings.TrimSpace(sanitize(input.Text))
		if text == "" {
			continue
		}

		questionType := strings.ToLower(strings.TrimSpace(input.Type))
		if !models.IsValidQuestionType(questionType) {
			return surveyContent{}, fmt.Errorf("%w: question %d has unsupported type %q", ErrInvalidInput, index+1, input.Type)
		}

		question := questionContent{Text: text, Type: questionType}
		if questionType != models.QuestionTypeText {
			for _, option := range input.Options {
				if trimmed := strings.TrimSpace(sanitize(option)); trimmed != "" {
					question.Options = append(question.Options, trimmed)
				}
			}
			if len(question.Options) == 0 {
				return surveyContent{}, fmt.Errorf("%w: question %d needs at least one option", ErrInvalidInput, index+1)
			}
		}

		content.Questions = append(content.Questions, question)
	}

	if len(content.Questions) == 0 {
		return surveyContent{}, fmt.Errorf("%w: at least one question is required", ErrInvalidInput)
	}

	return content, nil
}

// contentFromSurvey projects a stored survey, with questions and options loaded
// in position order, onto its comparable form.
func contentFromSurvey(survey models.Survey) surveyContent {
	content := surveyContent{Title: survey.Title}
	for _, question := range survey.Questions {
		item := questionContent{Text: question.Text, Type: question.Type}
		for _, option := range question.Options {
			item.Options = append(item.Options, option.Text)
		}
		content.Questions = append(content.Questions, item)
	}
	return content
}

// isStructuralChange reports whether next differs from current in anything
// other than the active flag. The first mismatch wins.
func isStructuralChange(current, next surveyContent) bool {
	if current.Title != next.Title {
		return true
	}
	if len(current.Questions) != len(next.Questions) {
		return true
	}

	for i := range current.Questions {
		before, after := current.Questions[i], next.Questions[i]
		if before.Text != after.Text || before.Type != after.Type {
			return true
		}
		if after.Type == models.QuestionTypeText {
			continue
		}
		if len(before.Options) != len(after.Options) {
			return true
		}
		for j := range before.Options {
			if before.Options[j] != after.Options[j] {
				return true
			}
		}
	}

	return false
}

// baseTitle strips any version suffix by cutting at the first separator.
func baseTitle(title string) string {
	if idx := strings.Index(title, versionSeparator); idx >= 0 {
		return strings.TrimSpace(title[:idx])
	}
	return strings.TrimSpace(title)
}

func versionedTitle(base string, version int) string {
	return fmt.Sprintf("%s%sv%d", base, versionSeparator, version)
}

// buildQuestions materializes normalized content as unsaved question rows.
func (c surveyContent) buildQuestions() []models.Question {
	questions := make([]models.Question, 0, len(c.Questions))
	for i, item := range c.Questions {
		question := models.Question{Text: item.Text, Type: item.Type, Position: i + 1}
		for j, option := range item.Options {
			question.Options = append(question.Options, models.Option{Text: option, Position: j + 1})
		}
		questions = append(questions, question)
	}
	return questions
}

func randomSurveyCode() (string, error) {
	alphabet := big.NewInt(int64(len(surveyCodeAlphabet)))
	buf := make([]byte, surveyCodeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabet)
		if err != nil {
			return "", err
		}
		buf[i] = surveyCodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
