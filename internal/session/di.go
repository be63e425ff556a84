package session

import (
	"github.com/foxseedlab/interviewfeed/internal/audio"
	"github.com/foxseedlab/interviewfeed/internal/config"
	"github.com/foxseedlab/interviewfeed/internal/events"
	"github.com/foxseedlab/interviewfeed/internal/repository"
	"github.com/foxseedlab/interviewfeed/internal/transcriber"
	"github.com/foxseedlab/interviewfeed/internal/translator"
	"github.com/foxseedlab/interviewfeed/internal/webhook"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Manager, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		stt := do.MustInvoke[transcriber.Transcriber](i)
		tr := do.MustInvoke[translator.Translator](i)
		wh := do.MustInvoke[webhook.Sender](i)
		pub := do.MustInvoke[events.Publisher](i)
		newMixer := do.MustInvoke[audio.MixerFactory](i)
		return NewManager(cfg, repo, stt, tr, wh, pub, newMixer), nil
	})
}
