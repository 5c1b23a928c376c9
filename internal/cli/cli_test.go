package cli

import (
	"bytes"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/mesh-intelligence/staybook/pkg/types"
)

// env is an isolated config and data directory pair.
type env struct {
	configDir string
	dataDir   string
}

func newEnv(t *testing.T) env {
	t.Helper()
	root := t.TempDir()
	t.Setenv("STAYBOOK_SUBMIT_URL", "")
	t.Setenv("STAYBOOK_BACKEND", "")
	t.Setenv("STAYBOOK_TIMEOUT", "")
	return env{configDir: filepath.Join(root, "config"), dataDir: filepath.Join(root, "data")}
}

// exec runs staybook with the environment's directories and returns
// stdout, stderr and the exit code.
func (e env) exec(args ...string) (string, string, int) {
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	full := append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...)
	code := run(root, full, &errOut)
	return out.String(), errOut.String(), code
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitSuccess, exitCode(nil))
	assert.Equal(t, exitUserError, exitCode(userError("bad")))
	assert.Equal(t, exitSysError, exitCode(sysError("disk")))
	assert.Equal(t, exitUserError, exitCode(errors.New("unknown flag")))
}

func TestVersion(t *testing.T) {
	e := newEnv(t)
	out, _, code := e.exec("version")
	assert.Equal(t, exitSuccess, code)
	assert.Contains(t, out, "staybook v")
	assert.Contains(t, out, "github.com/mesh-intelligence/staybook")
	assert.Contains(t, out, "backend:     sqlite")
	assert.Contains(t, out, "data:        "+e.dataDir)
	assert.Contains(t, out, "submit_url:  (not set)")
	assert.Contains(t, out, "auto_submit: true")

	_, err := os.Stat(e.configDir)
	assert.True(t, os.IsNotExist(err), "version must not create the config directory")
}

func TestVersion_JSON(t *testing.T) {
	e := newEnv(t)
	t.Setenv("STAYBOOK_SUBMIT_URL", "https://booking.example.com")

	out, errOut, code := e.exec("--json", "version")
	require.Equal(t, exitSuccess, code, errOut)

	var v struct {
		Version string       `json:"version"`
		Config  types.Config `json:"config"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, "0.1.0", v.Version)
	assert.Equal(t, "https://booking.example.com", v.Config.SubmitURL)
	assert.Equal(t, types.BackendSQLite, v.Config.Backend)
	assert.Equal(t, types.DefaultTimeout, v.Config.Timeout)
}

func TestVersion_InvalidConfig(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.MkdirAll(e.configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(e.configDir, "config.yaml"), []byte("backend: postgres\n"), 0o644))

	out, _, code := e.exec("version")
	assert.Equal(t, exitSuccess, code)
	assert.Contains(t, out, "staybook v")
	assert.Contains(t, out, "config: invalid configuration")
}

func TestInit(t *testing.T) {
	e := newEnv(t)

	out, errOut, code := e.exec("init")
	require.Equal(t, exitSuccess, code, errOut)
	assert.Contains(t, out, "Staybook initialized successfully")

	cfg, exists, err := readConfigFile(filepath.Join(e.configDir, "config.yaml"))
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, types.BackendSQLite, cfg.Backend)
	assert.Equal(t, e.dataDir, cfg.DataDir)
	assert.True(t, cfg.AutoSubmit)
	assert.FileExists(t, filepath.Join(e.dataDir, "availability.jsonl"))

	t.Run("idempotent", func(t *testing.T) {
		before, err := os.ReadFile(filepath.Join(e.configDir, "config.yaml"))
		require.NoError(t, err)
		_, _, code := e.exec("init")
		assert.Equal(t, exitSuccess, code)
		after, err := os.ReadFile(filepath.Join(e.configDir, "config.yaml"))
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})
}

func TestInit_InvalidConfig(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.MkdirAll(e.configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(e.configDir, "config.yaml"), []byte("backend: postgres\n"), 0o644))

	_, errOut, code := e.exec("init")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, errOut, "unknown backend")
}

func writeDays(t *testing.T, days string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "days.json")
	require.NoError(t, os.WriteFile(path, []byte(days), 0o644))
	return path
}

const juneDays = `[
	{"date":"2099-06-10","available":true,"code":7,"changeover":true},
	{"date":"2099-06-11","available":true,"code":7},
	{"date":"2099-06-12","available":false,"code":"B"}
]`

func TestAvail(t *testing.T) {
	e := newEnv(t)
	file := writeDays(t, juneDays)

	out, errOut, code := e.exec("avail", "import", "P1", file)
	require.Equal(t, exitSuccess, code, errOut)
	assert.Contains(t, out, "imported 3 days for P1")

	out, _, code = e.exec("--json", "avail", "list")
	require.Equal(t, exitSuccess, code)
	var props []string
	require.NoError(t, json.Unmarshal([]byte(out), &props))
	assert.Equal(t, []string{"P1"}, props)

	out, errOut, code = e.exec("--json", "avail", "show", "P1", "2099-06", "--from", "2099-06-10", "--to", "2099-06-11")
	require.Equal(t, exitSuccess, code, errOut)
	var days []struct {
		Date    string `json:"date"`
		Enabled bool   `json:"enabled"`
		Classes string `json:"classes"`
		Tooltip string `json:"tooltip"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &days))
	require.Len(t, days, 30)

	byDate := map[string]int{}
	for i, d := range days {
		byDate[d.Date] = i
	}
	assert.Equal(t, "selected code-7 changeover", days[byDate["2099-06-10"]].Classes)
	assert.Equal(t, "selected code-7 ", days[byDate["2099-06-11"]].Classes)
	assert.False(t, days[byDate["2099-06-12"]].Enabled)
	assert.Equal(t, "code-B ", days[byDate["2099-06-12"]].Classes)
	assert.Equal(t, "", days[byDate["2099-06-13"]].Classes)
	assert.False(t, days[byDate["2099-06-13"]].Enabled)
}

func TestAvail_Errors(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"missing file", []string{"avail", "import", "P1", filepath.Join(e.dataDir, "nope.json")}, exitUserError},
		{"malformed file", []string{"avail", "import", "P1", writeDays(t, `{"date":`)}, exitUserError},
		{"bad month", []string{"avail", "show", "P1", "June"}, exitUserError},
		{"missing args", []string{"avail", "show", "P1"}, exitUserError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, code := e.exec(tt.args...)
			assert.Equal(t, tt.code, code)
		})
	}
}

// serveBackend starts a fasthttp backend on a loopback port and points
// STAYBOOK_SUBMIT_URL at it.
func serveBackend(t *testing.T, h fasthttp.RequestHandler) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &fasthttp.Server{Handler: h}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown() })
	t.Setenv("STAYBOOK_SUBMIT_URL", "http://"+ln.Addr().String())
}

type enquiryResult struct {
	Enquiry map[string]any      `json:"enquiry"`
	Errors  map[string][]string `json:"errors"`
}

func TestEnquire(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantCode   int
		wantStatus string
		wantError  string
	}{
		{
			name:       "accepted",
			status:     fasthttp.StatusOK,
			body:       `{"status":"ok","quote":"1200.00"}`,
			wantCode:   exitSuccess,
			wantStatus: "ok",
		},
		{
			name:       "rejected",
			status:     fasthttp.StatusUnprocessableEntity,
			body:       `{"status":"error","message":"Those dates are taken"}`,
			wantCode:   exitUserError,
			wantStatus: "error",
			wantError:  "Those dates are taken",
		},
		{
			name:       "backend failure",
			status:     fasthttp.StatusBadGateway,
			body:       `<html>bad gateway</html>`,
			wantCode:   exitSysError,
			wantStatus: "error",
			wantError:  types.MsgFatalError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			posted := make(chan map[string]any, 1)
			serveBackend(t, func(ctx *fasthttp.RequestCtx) {
				var body map[string]any
				_ = json.Unmarshal(ctx.PostBody(), &body)
				posted <- body
				ctx.SetStatusCode(tt.status)
				ctx.SetBodyString(tt.body)
			})

			out, errOut, code := e.exec("--json", "enquire", "--prop", "P1",
				"--from", "2099-06-10", "--to", "2099-06-14", "--adults", "2", "--pets", "1")
			assert.Equal(t, tt.wantCode, code, errOut)

			var sent map[string]any
			select {
			case sent = <-posted:
			default:
				t.Fatal("enquiry was not submitted")
			}
			assert.Equal(t, "2099-06-10", sent["fromDate"])
			assert.Equal(t, float64(2), sent["adults"])
			assert.Equal(t, float64(1), sent["pets"])
			assert.NotContains(t, sent, "children")

			var res enquiryResult
			require.NoError(t, json.Unmarshal([]byte(out), &res))
			assert.Equal(t, tt.wantStatus, res.Enquiry["status"])
			if tt.wantError != "" {
				assert.Equal(t, []string{tt.wantError}, res.Errors["status"])
			} else {
				assert.Empty(t, res.Errors)
				assert.Equal(t, "1200.00", res.Enquiry["quote"])
			}
		})
	}
}

func TestEnquire_DryRun(t *testing.T) {
	e := newEnv(t)

	out, _, code := e.exec("enquire", "--dry-run", "--prop", "P1", "--from", "2099-06-14", "--to", "2099-06-10")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, out, types.MsgStartAfterEnd)
	assert.Contains(t, out, types.MsgEndBeforeStart)

	out, _, code = e.exec("enquire", "--dry-run", "--prop", "P1", "--from", "2099-06-10", "--to", "2099-06-14")
	assert.Equal(t, exitSuccess, code)
	assert.Contains(t, out, "valid (not submitted)")
}

func TestEnquire_NoSubmitURL(t *testing.T) {
	e := newEnv(t)
	_, errOut, code := e.exec("enquire", "--prop", "P1", "--from", "2099-06-10", "--to", "2099-06-14")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, errOut, "submit_url is not configured")
}

func TestParty(t *testing.T) {
	e := newEnv(t)

	out, errOut, code := e.exec("--json", "party", "adult=2,child=2", "adult=2", "adult=2,child=1,pet=1")
	require.Equal(t, exitSuccess, code, errOut)

	var res struct {
		Counts     map[string]int `json:"counts"`
		Travellers []struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		} `json:"travellers"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, map[string]int{"adult": 2, "child": 1, "pet": 1}, res.Counts)
	require.Len(t, res.Travellers, 4)
	assert.Equal(t, []string{"adult", "adult", "child", "pet"},
		[]string{res.Travellers[0].Type, res.Travellers[1].Type, res.Travellers[2].Type, res.Travellers[3].Type})

	t.Run("flags", func(t *testing.T) {
		out, _, code := e.exec("party", "--adult", "1", "--infant", "1", "--type", "carer=1")
		require.Equal(t, exitSuccess, code)
		assert.Contains(t, out, "adult (1)")
		assert.Contains(t, out, "infant (1)")
		assert.Contains(t, out, "carer (1)")
	})

	t.Run("negative count", func(t *testing.T) {
		_, errOut, code := e.exec("party", "adult=-1")
		assert.Equal(t, exitUserError, code)
		assert.Contains(t, errOut, "must not be negative")
	})

	t.Run("malformed step", func(t *testing.T) {
		_, _, code := e.exec("party", "adult")
		assert.Equal(t, exitUserError, code)
	})
}

func TestParseSteps(t *testing.T) {
	steps, err := parseSteps([]string{"adult=2, child=1", "", "pet=0"})
	require.NoError(t, err)
	assert.Equal(t, []map[string]int{{"adult": 2, "child": 1}, {}, {"pet": 0}}, steps)

	_, err = parseSteps([]string{"adult=two"})
	assert.Error(t, err)
}
