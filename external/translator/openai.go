package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/foxseedlab/interviewfeed/internal/translator"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const openAISystemPromptFormat = "You are an interpreter in a formal interview. Translate the user's message into the language with code %q. " +
	"If the message is already in that language, repeat it unchanged. Reply with the translation only."

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// RequestOptions are appended after the options derived from the fields above.
	RequestOptions []option.RequestOption
}

type OpenAITranslator struct {
	client openai.Client
	model  string
}

func NewOpenAITranslator(cfg OpenAIConfig) *OpenAITranslator {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, cfg.RequestOptions...)
	return &OpenAITranslator{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}
}

// Translate cannot report the detected source language; callers only learn
// it when sourceLang is given.
func (o *OpenAITranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (translator.Result, error) {
	target := translator.PrimarySubtag(targetLang)
	if target == "" {
		return translator.Result{}, errors.New("target language is empty")
	}
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(fmt.Sprintf(openAISystemPromptFormat, target)),
			openai.UserMessage(text),
		},
	})
	if err != nil {
		return translator.Result{}, fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return translator.Result{}, errors.New("openai returned no choices")
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return translator.Result{}, errors.New("openai returned an empty translation")
	}
	return translator.Result{
		Text:                   out,
		DetectedSourceLanguage: translator.PrimarySubtag(sourceLang),
	}, nil
}
