package handlers

import (
	"io"
	"os"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/mattn/go-isatty"
)

// healthSampleRate logs one of every N health probes
const healthSampleRate = 10

// SamplingLogger creates an access log middleware. Health probes are noisy
// so only every healthSampleRate-th one is logged.
func SamplingLogger() fiber.Handler {
	return samplingLogger(healthSampleRate, logger.ConfigDefault.Output)
}

func samplingLogger(rate uint64, out io.Writer) fiber.Handler {
	var probes atomic.Uint64
	return logger.New(logger.Config{
		Next: func(c *fiber.Ctx) bool {
			if c.Path() != "/health" {
				return false
			}
			return probes.Add(1)%rate != 0
		},
		Format:        "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${error}\n",
		TimeFormat:    "15:04:05",
		Output:        out,
		DisableColors: !isatty.IsTerminal(os.Stdout.Fd()) || os.Getenv("NO_COLOR") == "1" || os.Getenv("TERM") == "dumb",
	})
}
