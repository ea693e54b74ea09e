package session

import (
	"github.com/foxseedlab/livescribe/internal/audio"
	"github.com/foxseedlab/livescribe/internal/config"
	"github.com/foxseedlab/livescribe/internal/console"
	"github.com/foxseedlab/livescribe/internal/discord"
	"github.com/foxseedlab/livescribe/internal/repository"
	"github.com/foxseedlab/livescribe/internal/transcriber"
	"github.com/foxseedlab/livescribe/internal/webhook"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Manager, error) {
		cfg := do.MustInvoke[*config.Config](i)
		negotiator := do.MustInvoke[transcriber.Negotiator](i)
		dialer := do.MustInvoke[transcriber.Dialer](i)
		source := do.MustInvoke[audio.Source](i)
		stores := do.MustInvoke[repository.StoreFactory](i)
		journal := do.MustInvoke[repository.Journal](i)
		relay := do.MustInvoke[discord.Relay](i)
		wh := do.MustInvoke[webhook.Sender](i)
		printer := do.MustInvoke[console.Printer](i)
		return NewManager(cfg, negotiator, dialer, source, stores, journal, relay, wh, printer), nil
	})
}
