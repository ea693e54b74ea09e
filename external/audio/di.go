package audio

import (
	"github.com/foxseedlab/livescribe/internal/audio"
	"github.com/foxseedlab/livescribe/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (audio.Source, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewPipelineSource(c.YtDlpPath, c.FFmpegPath), nil
	})
}
