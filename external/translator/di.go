package translator

import (
	"context"

	"github.com/foxseedlab/interviewfeed/internal/config"
	"github.com/foxseedlab/interviewfeed/internal/translator"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (translator.Translator, error) {
		c := do.MustInvoke[*config.Config](i)
		switch c.TranslatorProvider {
		case config.TranslatorProviderOpenAI:
			return NewOpenAITranslator(OpenAIConfig{
				APIKey:  c.OpenAIAPIKey,
				BaseURL: c.OpenAIBaseURL,
				Model:   c.OpenAIModel,
			}), nil
		case config.TranslatorProviderNone:
			return translator.Noop{}, nil
		default:
			return NewGoogleTranslator(context.Background(), GoogleTranslateConfig{
				CredentialsJSON: c.GoogleCloudCredentialsJSON,
			})
		}
	})
}
