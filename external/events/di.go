package events

import (
	"github.com/foxseedlab/interviewfeed/internal/config"
	"github.com/foxseedlab/interviewfeed/internal/events"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (events.Publisher, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewKafkaPublisher(KafkaConfig{
			Brokers: c.KafkaBrokers,
			Topic:   c.KafkaTopicTurns,
			Enabled: c.KafkaEnabled,
		}), nil
	})
}
