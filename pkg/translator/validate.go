package translator

import (
	"context"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/pario-ai/glossa/pkg/apperr"
	"github.com/pario-ai/glossa/pkg/models"
)

var languagePattern = regexp.MustCompile(`^[A-Za-z]{2,3}(-[A-Za-z0-9]{2,8})*$`)

func validateOptions(ctx context.Context, opts *models.TranslateOptions) error {
	if opts == nil {
		return nil
	}
	err := validation.ValidateStructWithContext(ctx, opts,
		validation.Field(&opts.SourceLanguage, validation.Match(languagePattern)),
		validation.Field(&opts.TargetLanguage, validation.Match(languagePattern)),
	)
	if err != nil {
		return &apperr.ValidationError{Msg: "options", Err: err}
	}
	return nil
}

func validateTranslateRequest(ctx context.Context, req models.TranslateRequest) error {
	err := validation.ValidateStructWithContext(ctx, &req,
		validation.Field(&req.Content, validation.Required),
		validation.Field(&req.Path, validation.Required),
	)
	if err != nil {
		return &apperr.ValidationError{Msg: "translate request", Err: err}
	}
	return validateOptions(ctx, req.Options)
}

func validateBatchRequest(ctx context.Context, req models.BatchTranslateRequest) error {
	err := validation.ValidateStructWithContext(ctx, &req,
		validation.Field(&req.Files, validation.NotNil),
	)
	if err != nil {
		return &apperr.ValidationError{Msg: "batch request", Err: err}
	}
	return validateOptions(ctx, req.Options)
}
