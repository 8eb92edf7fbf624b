package translation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	formdomain "github.com/quillform/quillform/internal/form/domain"
	formrepository "github.com/quillform/quillform/internal/form/repository"
	identitydomain "github.com/quillform/quillform/internal/identity/domain"
	"github.com/quillform/quillform/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubProvider struct {
	answer string
	err    error
	asked  string
}

func (s *stubProvider) Ask(ctx context.Context, message string) (string, error) {
	s.asked = message
	return s.answer, s.err
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(
		&identitydomain.User{},
		&formdomain.Form{},
		&formdomain.FormField{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return dbConn
}

func TestLanguageValid(t *testing.T) {
	if !LanguageFrench.Valid() {
		t.Fatal("expected French to be supported")
	}
	if Language("Klingon").Valid() {
		t.Fatal("expected Klingon to be unsupported")
	}
}

func TestTranslateForm(t *testing.T) {
	dbConn := testDB(t)
	forms := formrepository.Provide()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create node: %v", err)
	}

	form := &formdomain.Form{ID: node.Generate(), UserID: node.Generate(), Label: "Survey", Open: true}
	if err := forms.InsertForm(context.Background(), dbConn, form); err != nil {
		t.Fatalf("failed to insert form: %v", err)
	}
	field := &formdomain.FormField{ID: node.Generate(), FormID: form.ID, Label: "Name", FieldType: formdomain.FieldText}
	if err := forms.InsertField(context.Background(), dbConn, field); err != nil {
		t.Fatalf("failed to insert field: %v", err)
	}

	translatedForm := *form
	translatedForm.Label = "Sondage"
	translatedField := *field
	translatedField.Label = "Nom"
	answer, err := json.Marshal(FormTranslation{Form: translatedForm, Fields: []formdomain.FormField{translatedField}})
	if err != nil {
		t.Fatalf("failed to marshal stub answer: %v", err)
	}

	stub := &stubProvider{answer: "```json\n" + string(answer) + "\n```"}
	svc := New(Params{DB: dbConn, Log: zap.NewNop(), Provider: stub, Forms: forms})

	got, err := svc.TranslateForm(context.Background(), form.ID, LanguageFrench)
	if err != nil {
		t.Fatalf("failed to translate: %v", err)
	}
	if got.Form.Label != "Sondage" {
		t.Fatalf("unexpected form label %q", got.Form.Label)
	}
	if len(got.Fields) != 1 || got.Fields[0].Label != "Nom" {
		t.Fatalf("unexpected fields %+v", got.Fields)
	}
}

func TestTranslateFormMalformedAnswer(t *testing.T) {
	dbConn := testDB(t)
	forms := formrepository.Provide()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create node: %v", err)
	}
	form := &formdomain.Form{ID: node.Generate(), UserID: node.Generate(), Label: "Survey", Open: true}
	if err := forms.InsertForm(context.Background(), dbConn, form); err != nil {
		t.Fatalf("failed to insert form: %v", err)
	}

	stub := &stubProvider{answer: "sorry, I cannot help with that"}
	svc := New(Params{DB: dbConn, Log: zap.NewNop(), Provider: stub, Forms: forms})

	if _, err := svc.TranslateForm(context.Background(), form.ID, LanguageGerman); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestGeminiProviderParsesCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key in query")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Bonjour"}],"role":"model"},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	p := &GeminiProvider{
		log:     zap.NewNop(),
		client:  srv.Client(),
		baseURL: srv.URL,
		apiKey:  "test-key",
		model:   "gemini-2.0-flash",
	}
	got, err := p.Ask(context.Background(), "Translate hello")
	if err != nil {
		t.Fatalf("failed to ask: %v", err)
	}
	if got != "Bonjour" {
		t.Fatalf("unexpected answer %q", got)
	}
}

func TestGeminiProviderWithoutKey(t *testing.T) {
	p := &GeminiProvider{log: zap.NewNop(), client: http.DefaultClient, baseURL: geminiBaseURL, model: "gemini-2.0-flash"}
	if _, err := p.Ask(context.Background(), "hi"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
