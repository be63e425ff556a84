package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/interviewfeed/internal/config"
)

type envConfig struct {
	Env                         string   `env:"ENV" envDefault:"production"`
	HTTPAddr                    string   `env:"HTTP_ADDR" envDefault:":8080"`
	StoreBackend                string   `env:"STORE_BACKEND" envDefault:"memory"`
	DatabaseURL                 string   `env:"DATABASE_URL"`
	GoogleCloudProjectID        string   `env:"GOOGLE_CLOUD_PROJECT_ID,required"`
	GoogleCloudCredentialsJSON  string   `env:"GOOGLE_CLOUD_CREDENTIALS_JSON,required"`
	GoogleCloudSpeechLocation   string   `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"us"`
	GoogleCloudSpeechModel      string   `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"chirp_3"`
	SpeechMaxSpeakerCount       int      `env:"SPEECH_MAX_SPEAKER_COUNT" envDefault:"4"`
	TranslatorProvider          string   `env:"TRANSLATOR_PROVIDER" envDefault:"google"`
	OpenAIAPIKey                string   `env:"OPENAI_API_KEY"`
	OpenAIBaseURL               string   `env:"OPENAI_BASE_URL"`
	OpenAIModel                 string   `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	DefaultInvestigatorLanguage string   `env:"DEFAULT_INVESTIGATOR_LANGUAGE" envDefault:"en-US"`
	DefaultParticipantLanguage  string   `env:"DEFAULT_PARTICIPANT_LANGUAGE,required"`
	DefaultParticipantRole      string   `env:"DEFAULT_PARTICIPANT_ROLE" envDefault:"Witness"`
	TranslationTimeoutSec       int      `env:"TRANSLATION_TIMEOUT_SEC" envDefault:"10"`
	ErrorDisplayTimeoutSec      int      `env:"ERROR_DISPLAY_TIMEOUT_SEC" envDefault:"5"`
	FeedPollIntervalMs          int      `env:"FEED_POLL_INTERVAL_MS" envDefault:"1500"`
	KafkaEnabled                bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers                []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopicTurns             string   `env:"KAFKA_TOPIC_TURNS" envDefault:"interview.turns"`
	TranscriptTimezone          string   `env:"TRANSCRIPT_TIMEZONE" envDefault:"UTC"`
	TranscriptWebhookURL        string   `env:"TRANSCRIPT_WEBHOOK_URL"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                         raw.Env,
		HTTPAddr:                    raw.HTTPAddr,
		StoreBackend:                raw.StoreBackend,
		DatabaseURL:                 raw.DatabaseURL,
		GoogleCloudProjectID:        raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON:  raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:   raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:      raw.GoogleCloudSpeechModel,
		SpeechMaxSpeakerCount:       raw.SpeechMaxSpeakerCount,
		TranslatorProvider:          raw.TranslatorProvider,
		OpenAIAPIKey:                raw.OpenAIAPIKey,
		OpenAIBaseURL:               raw.OpenAIBaseURL,
		OpenAIModel:                 raw.OpenAIModel,
		DefaultInvestigatorLanguage: raw.DefaultInvestigatorLanguage,
		DefaultParticipantLanguage:  raw.DefaultParticipantLanguage,
		DefaultParticipantRole:      raw.DefaultParticipantRole,
		TranslationTimeoutSec:       raw.TranslationTimeoutSec,
		ErrorDisplayTimeoutSec:      raw.ErrorDisplayTimeoutSec,
		FeedPollIntervalMs:          raw.FeedPollIntervalMs,
		KafkaEnabled:                raw.KafkaEnabled,
		KafkaBrokers:                raw.KafkaBrokers,
		KafkaTopicTurns:             raw.KafkaTopicTurns,
		TranscriptTimezone:          raw.TranscriptTimezone,
		TranscriptWebhookURL:        raw.TranscriptWebhookURL,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
