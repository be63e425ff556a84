package httpapi

import (
	"github.com/foxseedlab/interviewfeed/internal/config"
	"github.com/foxseedlab/interviewfeed/internal/session"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		manager := do.MustInvoke[*session.Manager](i)
		return NewServer(cfg.HTTPAddr, NewRouter(NewHandler(manager, cfg.FeedPollInterval()))), nil
	})
}
