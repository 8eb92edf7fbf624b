package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	formdomain "github.com/quillform/quillform/internal/form/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FormTranslation is the JSON payload sent to and received from the model.
type FormTranslation struct {
	Form   formdomain.Form        `json:"form"`
	Fields []formdomain.FormField `json:"fields"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	provider Provider
	forms    formdomain.Repository
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Provider Provider
	Forms    formdomain.Repository
}

func New(p Params) *Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("translation.service"),
		provider: p.Provider,
		forms:    p.Forms,
	}
}

// Translate renders one free-text snippet in the target language.
func (s *Service) Translate(ctx context.Context, text string, language Language) (string, error) {
	prompt := fmt.Sprintf(
		"Translate this text into %s, do not comment and be straightforward.\n%q",
		language, text)
	return s.provider.Ask(ctx, prompt)
}

// TranslateForm translates a form's labels, descriptions and possible
// answers while keeping the JSON shape intact.
func (s *Service) TranslateForm(ctx context.Context, formID snowflake.ID, language Language) (*FormTranslation, error) {
	form, err := s.forms.FindFormByID(ctx, s.db, formID)
	if err != nil {
		return nil, err
	}
	fields, err := s.forms.ListFields(ctx, s.db, form.ID)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(FormTranslation{Form: *form, Fields: fields})
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(
		"Translate this json into %s in the same json format. "+
			"Only translate titles, labels, descriptions and possible answers. "+
			"You are a translator. ONLY return raw JSON. "+
			"Do NOT use markdown formatting or code blocks. "+
			"Do not comment and be straightforward.\n%s",
		language, payload)

	answer, err := s.provider.Ask(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var translated FormTranslation
	if err := json.Unmarshal([]byte(stripFences(answer)), &translated); err != nil {
		s.log.Warn("model returned malformed translation", zap.Error(err))
		return nil, ErrUnavailable
	}
	return &translated, nil
}

// stripFences tolerates models that wrap JSON in a markdown code block
// despite the prompt.
func stripFences(answer string) string {
	trimmed := strings.TrimSpace(answer)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

var Module = fx.Module("translation",
	fx.Provide(
		fx.Annotate(NewGemini, fx.As(new(Provider))),
	),
	fx.Provide(New),
)
