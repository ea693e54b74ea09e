package discord

import (
	"github.com/foxseedlab/livescribe/internal/config"
	discordpkg "github.com/foxseedlab/livescribe/internal/discord"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (discordpkg.Relay, error) {
		c := do.MustInvoke[*config.Config](i)
		if !c.DiscordRelayEnabled() {
			return discordpkg.NopRelay{}, nil
		}
		client, err := NewClient(c.DiscordToken)
		if err != nil {
			return nil, err
		}
		return NewCaptionRelay(client, c.DiscordChannelID), nil
	})
}
