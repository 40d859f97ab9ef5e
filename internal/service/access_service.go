package service

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/questionnaire-api/internal/dto"
	"github.com/noah-isme/questionnaire-api/internal/repository"
	"github.com/noah-isme/questionnaire-api/pkg/linkcode"
)

// AccessService resolves public survey links and renders their scannable codes.
type AccessService interface {
	Resolve(ctx context.Context, code string) (dto.SurveyResponse, error)
	LinkCode(ctx context.Context, identity dto.Identity, surveyID uint) (dto.LinkCodeResponse, error)
}

type accessService struct {
	surveys repository.SurveyRepository
	encoder linkcode.Encoder
	linkFor func(code string) string
	logger  zerolog.Logger
}

// NewAccessService constructs the access service. linkFor builds the public URL of a survey code.
func NewAccessService(surveys repository.SurveyRepository, encoder linkcode.Encoder, linkFor func(code string) string, logger zerolog.Logger) AccessService {
	if encoder == nil {
		encoder = linkcode.NewEncoder(linkcode.DefaultSize)
	}

	return &accessService{
		surveys: surveys,
		encoder: encoder,
		linkFor: linkFor,
		logger:  logger.With().Str("component", "access_service").Logger(),
	}
}

// Resolve returns the survey behind code if it still accepts responses.
func (s *accessService) Resolve(ctx context.Context, code string) (dto.SurveyResponse, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return dto.SurveyResponse{}, ErrSurveyNotFound
	}

	survey, err := s.surveys.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SurveyResponse{}, ErrSurveyNotFound
		}
		return dto.SurveyResponse{}, err
	}
	if !survey.IsActive {
		return dto.SurveyResponse{}, ErrSurveyClosed
	}

	return dto.NewSurveyResponse(survey), nil
}

func (s *accessService) LinkCode(ctx context.Context, identity dto.Identity, surveyID uint) (dto.LinkCodeResponse, error) {
	survey, err := loadOwnedSurvey(ctx, s.surveys, identity, surveyID, false)
	if err != nil {
		return dto.LinkCodeResponse{}, err
	}

	url := "/s/" + survey.Code
	if s.linkFor != nil {
		url = s.linkFor(survey.Code)
	}

	image, err := s.encoder.PNG(url)
	if err != nil {
		s.logger.Error().Err(err).Uint("survey_id", survey.ID).Msg("failed to encode link code")
		return dto.LinkCodeResponse{}, err
	}

	return dto.LinkCodeResponse{
		Code:        survey.Code,
		URL:         url,
		ImageBase64: base64.StdEncoding.EncodeToString(image),
		Image:       image,
	}, nil
}
