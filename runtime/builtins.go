package runtime

import (
	"fmt"
	"io"
	"time"

	"github.com/wudi/microphp/values"
)

// Writer is the host collaborator print() writes through; os.Stdout on a
// hosted build, a UART driver on a microcontroller build.
type Writer io.Writer

func printBuiltin(out Writer) Builtin {
	return func(args []values.Value) (values.Value, error) {
		for _, a := range args {
			if _, err := io.WriteString(out, a.Stringify()); err != nil {
				return values.Null(), err
			}
		}
		if _, err := io.WriteString(out, "\n"); err != nil {
			return values.Null(), err
		}
		return values.Null(), nil
	}
}

func sleepBuiltin(clock Clock) Builtin {
	return func(args []values.Value) (values.Value, error) {
		if len(args) != 1 {
			return values.Null(), fmt.Errorf("sleep_ms expects 1 argument, got %d", len(args))
		}
		n, err := values.ToNumber(args[0])
		if err != nil {
			return values.Null(), fmt.Errorf("sleep_ms: %w", err)
		}
		clock.Sleep(time.Duration(values.CastInt(n).AsInt()) * time.Millisecond)
		return values.Null(), nil
	}
}

func millisBuiltin(clock Clock) Builtin {
	return func(args []values.Value) (values.Value, error) {
		if len(args) != 0 {
			return values.Null(), fmt.Errorf("millis expects 0 arguments, got %d", len(args))
		}
		return values.Int(clock.MillisSinceEpoch()), nil
	}
}
