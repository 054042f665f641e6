package main

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/swfrench/ewt"
	"github.com/swfrench/ewt/internal/config"
	"github.com/swfrench/ewt/internal/logging"
	"github.com/urfave/cli/v2"
	"golang.org/x/exp/slog"
)

const (
	exitRejected = 1
	exitUsage    = 2
)

// runner carries state established in Before for use by the commands.
type runner struct {
	cfg *config.Config
	log *slog.Logger
}

func newApp() *cli.App {
	r := new(runner)
	return &cli.App{
		Name:  "ewt",
		Usage: "encode, decode and inspect encrypted web tokens",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
			},
			&cli.StringFlag{
				Name:  "secret",
				Usage: "shared secret (also EWT_SECRET)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "text or json",
			},
		},
		Before: r.setup,
		Commands: []*cli.Command{
			{
				Name:      "encode",
				Usage:     "encode a payload (argument, or stdin if absent or \"-\")",
				ArgsUsage: "[PAYLOAD|-]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "mac", Usage: "MAC algorithm: " + strings.Join(ewt.MACs(), ", ")},
					&cli.StringFlag{Name: "cipher", Usage: "cipher: " + strings.Join(ewt.Ciphers(), ", ")},
					&cli.StringFlag{Name: "iv-hex", Usage: "fixed IV in hex (testing only)"},
				},
				Action: r.encode,
			},
			{
				Name:      "decode",
				Usage:     "verify a token and print its payload",
				ArgsUsage: "[TOKEN|-]",
				Action:    r.decode,
			},
			{
				Name:      "inspect",
				Usage:     "print the unauthenticated header of a token",
				ArgsUsage: "[TOKEN|-]",
				Action:    r.inspect,
			},
			{
				Name:  "keygen",
				Usage: "print a random secret",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "bytes", Value: 32, Usage: "number of random bytes"},
				},
				Action: r.keygen,
			},
		},
		// Exit codes are handled by main, so that tests can run the app.
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

func (r *runner) setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"), map[string]string{
		"secret":     c.String("secret"),
		"log.level":  c.String("log-level"),
		"log.format": c.String("log-format"),
	})
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	l, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: c.App.ErrWriter,
	})
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	r.cfg, r.log = cfg, l
	return nil
}

func (r *runner) secret() (string, error) {
	if r.cfg.Secret == "" {
		return "", cli.Exit("no secret configured (use --secret, EWT_SECRET or the config file)", exitUsage)
	}
	return r.cfg.Secret, nil
}

// input returns the first argument, or stdin if it is absent or "-".
func input(c *cli.Context) ([]byte, error) {
	if arg := c.Args().First(); arg != "" && arg != "-" {
		return []byte(arg), nil
	}
	b, err := io.ReadAll(c.App.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return b, nil
}

func tokenInput(c *cli.Context) (string, error) {
	b, err := input(c)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func (r *runner) encode(c *cli.Context) error {
	secret, err := r.secret()
	if err != nil {
		return err
	}
	payload, err := input(c)
	if err != nil {
		return err
	}
	opts := &ewt.Options{MAC: r.cfg.MAC, Cipher: r.cfg.Cipher}
	if m := c.String("mac"); m != "" {
		opts.MAC = m
	}
	if ci := c.String("cipher"); ci != "" {
		opts.Cipher = ci
	}
	if ivHex := c.String("iv-hex"); ivHex != "" {
		if opts.IV, err = hex.DecodeString(ivHex); err != nil {
			return cli.Exit(fmt.Sprintf("invalid --iv-hex: %v", err), exitUsage)
		}
		r.log.Warn("Encoding with a fixed IV; never reuse an IV under the same secret")
	}
	tok, err := ewt.Encode(payload, secret, opts)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	r.log.Debug("Encoded token", "mac", opts.MAC, "cipher", opts.Cipher, "length", len(tok))
	fmt.Fprintln(c.App.Writer, tok)
	return nil
}

func (r *runner) decode(c *cli.Context) error {
	secret, err := r.secret()
	if err != nil {
		return err
	}
	tok, err := tokenInput(c)
	if err != nil {
		return err
	}
	payload, err := ewt.Decode(tok, secret)
	if err != nil {
		// The reason stays out of the exit message.
		r.log.Debug("Rejected token", "error", err)
		return cli.Exit(ewt.ErrRejected.Error(), exitRejected)
	}
	if _, err := c.App.Writer.Write(payload); err != nil {
		return err
	}
	return nil
}

func (r *runner) inspect(c *cli.Context) error {
	tok, err := tokenInput(c)
	if err != nil {
		return err
	}
	h, err := ewt.Inspect(tok)
	if err != nil {
		return cli.Exit(err.Error(), exitRejected)
	}
	fmt.Fprintf(c.App.Writer, "cipher: %s\nmac: %s\niv: %d bytes\nciphertext: %d bytes\n(unauthenticated)\n",
		h.Cipher, h.MAC, h.IVLen, h.CiphertextLen)
	return nil
}

func (r *runner) keygen(c *cli.Context) error {
	n := c.Int("bytes")
	if n < 16 {
		return cli.Exit("--bytes must be at least 16", exitUsage)
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, base64.RawURLEncoding.EncodeToString(b))
	return nil
}
