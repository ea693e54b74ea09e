package console

import (
	"os"

	"github.com/foxseedlab/livescribe/internal/console"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (console.Printer, error) {
		return NewLipglossPrinter(os.Stdout), nil
	})
}
