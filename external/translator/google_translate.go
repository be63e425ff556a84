package translator

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"

	"cloud.google.com/go/auth/credentials"
	"github.com/foxseedlab/interviewfeed/internal/translator"
	"google.golang.org/api/option"
	translate "google.golang.org/api/translate/v2"
)

type GoogleTranslateConfig struct {
	CredentialsJSON string
	// ClientOptions replace credential detection when set.
	ClientOptions []option.ClientOption
}

type GoogleTranslator struct {
	service *translate.Service
}

func NewGoogleTranslator(ctx context.Context, cfg GoogleTranslateConfig) (*GoogleTranslator, error) {
	opts := cfg.ClientOptions
	if len(opts) == 0 {
		creds, err := credentials.DetectDefault(&credentials.DetectOptions{
			CredentialsJSON: []byte(cfg.CredentialsJSON),
			Scopes:          []string{"https://www.googleapis.com/auth/cloud-translation"},
		})
		if err != nil {
			return nil, fmt.Errorf("detect credentials: %w", err)
		}
		opts = []option.ClientOption{option.WithAuthCredentials(creds)}
	}
	svc, err := translate.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create translate service: %w", err)
	}
	slog.Info("google translate client initialized")
	return &GoogleTranslator{service: svc}, nil
}

func (g *GoogleTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (translator.Result, error) {
	target := translator.PrimarySubtag(targetLang)
	if target == "" {
		return translator.Result{}, errors.New("target language is empty")
	}
	call := g.service.Translations.List([]string{text}, target).Format("text")
	if source := translator.PrimarySubtag(sourceLang); source != "" {
		call = call.Source(source)
	}
	resp, err := call.Context(ctx).Do()
	if err != nil {
		return translator.Result{}, fmt.Errorf("google translate: %w", err)
	}
	if len(resp.Translations) == 0 {
		return translator.Result{}, errors.New("google translate returned no translations")
	}
	tr := resp.Translations[0]
	detected := translator.PrimarySubtag(tr.DetectedSourceLanguage)
	if detected == "" {
		detected = translator.PrimarySubtag(sourceLang)
	}
	return translator.Result{
		Text:                   html.UnescapeString(tr.TranslatedText),
		DetectedSourceLanguage: detected,
	}, nil
}
