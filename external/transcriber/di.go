package transcriber

import (
	"github.com/foxseedlab/livescribe/internal/config"
	"github.com/foxseedlab/livescribe/internal/transcriber"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (transcriber.Negotiator, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewGladiaNegotiator(GladiaConfig{
			APIURL:          c.GladiaAPIURL,
			APIKey:          c.GladiaAPIKey,
			SpeechThreshold: c.SpeechThreshold,
		}), nil
	})
	do.Provide(injector, func(i do.Injector) (transcriber.Dialer, error) {
		return NewWebsocketDialer(), nil
	})
}
