package dto

import "time"

// OptionStatistics reports how often an option was selected.
type OptionStatistics struct {
	OptionID   uint    `json:"option_id"`
	Text       string  `json:"text"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// TextAnswerStatistics is one free-text answer and who gave it.
type TextAnswerStatistics struct {
	Answer        string  `json:"answer"`
	Student       string  `json:"student"`
	StudentNumber *string `json:"student_number"`
}

// QuestionStatistics summarises the answers to one question.
type QuestionStatistics struct {
	QuestionID     uint                   `json:"question_id"`
	Text           string                 `json:"text"`
	Type           string                 `json:"type"`
	Position       int                    `json:"position"`
	TotalResponses int64                  `json:"total_responses"`
	Denominator    int64                  `json:"denominator"`
	Options        []OptionStatistics     `json:"options"`
	TextAnswers    []TextAnswerStatistics `json:"text_answers,omitempty"`
}

// SurveyStatisticsResponse is the aggregated statistics payload of a survey.
type SurveyStatisticsResponse struct {
	SurveyID       uint                 `json:"survey_id"`
	Title          string               `json:"title"`
	TotalResponses int64                `json:"total_responses"`
	Questions      []QuestionStatistics `json:"questions"`
	GeneratedAt    time.Time            `json:"generated_at"`
	CacheHit       bool                 `json:"cache_hit"`
}
