package config

import (
	"fmt"
	"time"

	"github.com/foxseedlab/interviewfeed/internal/speaker"
)

const (
	StoreBackendMemory   = "memory"
	StoreBackendPostgres = "postgres"

	TranslatorProviderGoogle = "google"
	TranslatorProviderOpenAI = "openai"
	TranslatorProviderNone   = "none"
)

type Config struct {
	Env                         string
	HTTPAddr                    string
	StoreBackend                string
	DatabaseURL                 string
	GoogleCloudProjectID        string
	GoogleCloudCredentialsJSON  string
	GoogleCloudSpeechLocation   string
	GoogleCloudSpeechModel      string
	SpeechMaxSpeakerCount       int
	TranslatorProvider          string
	OpenAIAPIKey                string
	OpenAIBaseURL               string
	OpenAIModel                 string
	DefaultInvestigatorLanguage string
	DefaultParticipantLanguage  string
	DefaultParticipantRole      string
	TranslationTimeoutSec       int
	ErrorDisplayTimeoutSec      int
	FeedPollIntervalMs          int
	KafkaEnabled                bool
	KafkaBrokers                []string
	KafkaTopicTurns             string
	TranscriptTimezone          string
	TranscriptWebhookURL        string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	switch c.StoreBackend {
	case StoreBackendMemory:
	case StoreBackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=%s", StoreBackendPostgres)
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreBackendMemory, StoreBackendPostgres, c.StoreBackend)
	}
	switch c.TranslatorProvider {
	case TranslatorProviderGoogle, TranslatorProviderNone:
	case TranslatorProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when TRANSLATOR_PROVIDER=%s", TranslatorProviderOpenAI)
		}
	default:
		return fmt.Errorf("TRANSLATOR_PROVIDER must be one of google, openai, none, got %q", c.TranslatorProvider)
	}
	if c.TranslationTimeoutSec <= 0 {
		return fmt.Errorf("TRANSLATION_TIMEOUT_SEC must be positive, got %d", c.TranslationTimeoutSec)
	}
	if c.ErrorDisplayTimeoutSec <= 0 {
		return fmt.Errorf("ERROR_DISPLAY_TIMEOUT_SEC must be positive, got %d", c.ErrorDisplayTimeoutSec)
	}
	if c.FeedPollIntervalMs <= 0 {
		return fmt.Errorf("FEED_POLL_INTERVAL_MS must be positive, got %d", c.FeedPollIntervalMs)
	}
	if c.SpeechMaxSpeakerCount < 2 {
		return fmt.Errorf("SPEECH_MAX_SPEAKER_COUNT must be at least 2, got %d", c.SpeechMaxSpeakerCount)
	}
	if c.KafkaEnabled && (len(c.KafkaBrokers) == 0 || c.KafkaTopicTurns == "") {
		return fmt.Errorf("KAFKA_BROKERS and KAFKA_TOPIC_TURNS are required when KAFKA_ENABLED=true")
	}
	if _, err := time.LoadLocation(c.TranscriptTimezone); err != nil {
		return fmt.Errorf("TRANSCRIPT_TIMEZONE is invalid: %w", err)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "HTTP_ADDR", value: c.HTTPAddr},
		{name: "GOOGLE_CLOUD_PROJECT_ID", value: c.GoogleCloudProjectID},
		{name: "GOOGLE_CLOUD_CREDENTIALS_JSON", value: c.GoogleCloudCredentialsJSON},
		{name: "DEFAULT_INVESTIGATOR_LANGUAGE", value: c.DefaultInvestigatorLanguage},
		{name: "DEFAULT_PARTICIPANT_LANGUAGE", value: c.DefaultParticipantLanguage},
		{name: "TRANSCRIPT_TIMEZONE", value: c.TranscriptTimezone},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ParticipantRole is the role assigned to speakers whose label does not name one.
// An unknown or investigator value falls back to Witness.
func (c *Config) ParticipantRole() speaker.Role {
	role, ok := speaker.ParseRole(c.DefaultParticipantRole)
	if !ok || role == speaker.Investigator {
		return speaker.Witness
	}
	return role
}

func (c *Config) TranslationTimeout() time.Duration {
	return time.Duration(c.TranslationTimeoutSec) * time.Second
}

func (c *Config) ErrorDisplayTimeout() time.Duration {
	return time.Duration(c.ErrorDisplayTimeoutSec) * time.Second
}

func (c *Config) FeedPollInterval() time.Duration {
	return time.Duration(c.FeedPollIntervalMs) * time.Millisecond
}
