package main

import (
	"bytes"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/swfrench/ewt"
	"github.com/urfave/cli/v2"
)

const testSecret = "correct-secret"

type result struct {
	stdout string
	stderr string
	err    error
}

func runApp(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Reader = strings.NewReader(stdin)
	app.Writer = &stdout
	app.ErrWriter = &stderr
	err := app.Run(append([]string{"ewt"}, args...))
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func exitCode(err error) int {
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return -1
}

func TestEncodeDecode(t *testing.T) {
	enc := runApp(t, "", "--secret", testSecret, "encode", "--cipher", "aes-256-gcm", "hello-world")
	if enc.err != nil {
		t.Fatalf("encode returned unexpected error: %v", enc.err)
	}
	tok := strings.TrimSpace(enc.stdout)
	payload, err := ewt.Decode(tok, testSecret)
	if err != nil {
		t.Fatalf("Decode() of CLI token returned unexpected error: %v", err)
	}
	if got, want := string(payload), "hello-world"; got != want {
		t.Errorf("Decode() returned incorrect payload - got: %q want: %q", got, want)
	}

	dec := runApp(t, tok+"\n", "--secret", testSecret, "decode", "-")
	if dec.err != nil {
		t.Fatalf("decode returned unexpected error: %v", dec.err)
	}
	if got, want := dec.stdout, "hello-world"; got != want {
		t.Errorf("decode printed incorrect payload - got: %q want: %q", got, want)
	}
}

func TestEncodeFromStdin(t *testing.T) {
	enc := runApp(t, "line one\nline two\n", "--secret", testSecret, "encode")
	if enc.err != nil {
		t.Fatalf("encode returned unexpected error: %v", enc.err)
	}
	payload, err := ewt.Decode(strings.TrimSpace(enc.stdout), testSecret)
	if err != nil {
		t.Fatalf("Decode() of CLI token returned unexpected error: %v", err)
	}
	if got, want := string(payload), "line one\nline two\n"; got != want {
		t.Errorf("Decode() returned incorrect payload - got: %q want: %q", got, want)
	}
}

func TestEncodeFixedIV(t *testing.T) {
	args := []string{"--secret", testSecret, "encode", "--iv-hex", "000102030405060708090a0b0c0d0e0f", "hello"}
	a := runApp(t, "", args...)
	b := runApp(t, "", args...)
	if a.err != nil || b.err != nil {
		t.Fatalf("encode returned unexpected errors: %v, %v", a.err, b.err)
	}
	if a.stdout != b.stdout {
		t.Errorf("encode with a fixed IV returned distinct tokens: %q and %q", a.stdout, b.stdout)
	}
}

func TestEncodeErrors(t *testing.T) {
	testCases := []struct {
		name string
		args []string
	}{
		{
			name: "no secret",
			args: []string{"encode", "hello"},
		},
		{
			name: "unsupported cipher",
			args: []string{"--secret", testSecret, "encode", "--cipher", "none", "hello"},
		},
		{
			name: "bad iv hex",
			args: []string{"--secret", testSecret, "encode", "--iv-hex", "zz", "hello"},
		},
		{
			name: "wrong iv length",
			args: []string{"--secret", testSecret, "encode", "--iv-hex", "0001", "hello"},
		},
		{
			name: "bad log level",
			args: []string{"--secret", testSecret, "--log-level", "loud", "encode", "hello"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("EWT_SECRET", "")
			res := runApp(t, "", tc.args...)
			if got, want := exitCode(res.err), exitUsage; got != want {
				t.Errorf("encode returned incorrect exit code - got: %d want: %d (error: %v)", got, want, res.err)
			}
		})
	}
}

func TestDecodeRejected(t *testing.T) {
	tok, err := ewt.Encode([]byte("hello-world"), "other-secret", nil)
	if err != nil {
		t.Fatalf("Encode() returned unexpected error: %v", err)
	}
	res := runApp(t, "", "--secret", testSecret, "--log-level", "debug", "decode", tok)
	if got, want := exitCode(res.err), exitRejected; got != want {
		t.Fatalf("decode returned incorrect exit code - got: %d want: %d (error: %v)", got, want, res.err)
	}
	if got, want := res.err.Error(), "token rejected"; got != want {
		t.Errorf("decode returned incorrect message - got: %q want: %q", got, want)
	}
	if res.stdout != "" {
		t.Errorf("decode printed output for a rejected token: %q", res.stdout)
	}
	// The detailed reason is only available in debug logs.
	if !strings.Contains(res.stderr, "authentication failed") {
		t.Errorf("Debug log does not include the rejection reason: %q", res.stderr)
	}
	if strings.Contains(res.stderr, testSecret) {
		t.Errorf("Debug log includes the secret: %q", res.stderr)
	}
}

func TestSecretFromConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ewt.yaml")
	if err := os.WriteFile(path, []byte("secret: from-file\ncipher: chacha20-poly1305\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() returned unexpected error: %v", err)
	}
	enc := runApp(t, "", "--config", path, "encode", "hello")
	if enc.err != nil {
		t.Fatalf("encode returned unexpected error: %v", enc.err)
	}
	tok := strings.TrimSpace(enc.stdout)
	if _, err := ewt.Decode(tok, "from-file"); err != nil {
		t.Errorf("Decode() of CLI token under the configured secret returned unexpected error: %v", err)
	}
	h, err := ewt.Inspect(tok)
	if err != nil {
		t.Fatalf("Inspect() returned unexpected error: %v", err)
	}
	if got, want := h.Cipher, "chacha20-poly1305"; got != want {
		t.Errorf("encode used incorrect cipher - got: %q want: %q", got, want)
	}
}

func TestInspect(t *testing.T) {
	tok, err := ewt.Encode([]byte("hello"), testSecret, &ewt.Options{Cipher: "xchacha20-poly1305", MAC: "sha384"})
	if err != nil {
		t.Fatalf("Encode() returned unexpected error: %v", err)
	}
	// No secret needed.
	res := runApp(t, "", "inspect", tok)
	if res.err != nil {
		t.Fatalf("inspect returned unexpected error: %v", res.err)
	}
	for _, want := range []string{"cipher: xchacha20-poly1305", "mac: sha384", "iv: 24 bytes", "ciphertext: 21 bytes"} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("inspect output missing %q: %q", want, res.stdout)
		}
	}

	res = runApp(t, "", "inspect", "@@@")
	if got, want := exitCode(res.err), exitRejected; got != want {
		t.Errorf("inspect of a malformed token returned incorrect exit code - got: %d want: %d", got, want)
	}
}

func TestKeygen(t *testing.T) {
	res := runApp(t, "", "keygen", "--bytes", "48")
	if res.err != nil {
		t.Fatalf("keygen returned unexpected error: %v", res.err)
	}
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(res.stdout))
	if err != nil {
		t.Fatalf("keygen printed a secret that is not base64url: %v", err)
	}
	if got, want := len(b), 48; got != want {
		t.Errorf("keygen returned incorrect secret length - got: %d want: %d", got, want)
	}

	res = runApp(t, "", "keygen", "--bytes", "8")
	if got, want := exitCode(res.err), exitUsage; got != want {
		t.Errorf("keygen with too few bytes returned incorrect exit code - got: %d want: %d", got, want)
	}
}
