package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/zalando/go-keyring"

	"github.com/stacklok/spatial-anchors/internal/assets/loaders"
	"github.com/stacklok/spatial-anchors/internal/assets/presign"
	"github.com/stacklok/spatial-anchors/internal/config"
	"github.com/stacklok/spatial-anchors/internal/versions"
)

// newAssetsAPI serves the pre-signed URL API and the objects it points to
func newAssetsAPI(t *testing.T, objects map[string]string) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/assets", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		key := r.URL.Query().Get("assetKey")
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("all") == "true" {
			_ = json.NewEncoder(w).Encode(map[string][]string{
				"ps_urls": {srv.URL + "/objects/" + key + "/0", srv.URL + "/objects/" + key + "/1"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"ps_url": srv.URL + "/objects/" + key})
	})
	mux.HandleFunc("/objects/", func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/objects/")
		switch r.Method {
		case http.MethodPut:
			w.WriteHeader(http.StatusOK)
		default:
			body, ok := objects[key]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte(body))
		}
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeIDToken(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "tester",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id-token")
	require.NoError(t, os.WriteFile(path, []byte(token+"\n"), 0600))
	return path
}

func TestBuildAssetEnv_Validation(t *testing.T) {
	t.Parallel()

	_, err := buildAssetEnv(t.Context(), config.Default(), "", "token")
	assert.ErrorContains(t, err, "no asset endpoint configured")

	_, err = buildAssetEnv(t.Context(), config.Default(), "not a url", "token")
	assert.ErrorContains(t, err, "failed to create URL resolver")
}

func TestBuildAssetEnv_FallsBackToConfig(t *testing.T) {
	t.Parallel()

	srv := newAssetsAPI(t, map[string]string{"scene": `{"name":"lobby"}`})
	cfg := config.Default()
	cfg.Assets.Endpoint = srv.URL + "/"
	cfg.Assets.TokenFile = writeIDToken(t)

	env, err := buildAssetEnv(t.Context(), cfg, "", "")
	require.NoError(t, err)
	defer env.close()

	v, err := env.loader.Fetch(t.Context(), loaders.TypeJSON, "scene")
	require.NoError(t, err)
	assert.Equal(t, "lobby", v.(gjson.Result).Get("name").String())
}

func TestDescribeAsset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		asset any
		want  string
	}{
		{name: "bytes", asset: []byte("abc"), want: "3 bytes"},
		{name: "json", asset: gjson.Parse(`{"a":1}`), want: "JSON JSON, 7 bytes"},
		{
			name:  "model",
			asset: &loaders.Model{Version: "2.0", Generator: "blender", Scenes: 1, Nodes: 2, Meshes: 3},
			want:  `glTF 2.0 by "blender": 1 scene(s), 2 node(s), 3 mesh(es), 0 binary bytes`,
		},
		{name: "audio", asset: &loaders.AudioClip{Format: "ogg", Data: []byte{1, 2}}, want: "ogg audio, 2 bytes"},
		{name: "other", asset: 42, want: "int"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, describeAsset(tt.asset))
		})
	}
}

func TestReadUpload(t *testing.T) {
	t.Parallel()

	_, err := readUpload(strings.NewReader(""), "")
	assert.ErrorContains(t, err, "--file is required")

	body, err := readUpload(strings.NewReader("from stdin"), "-")
	require.NoError(t, err)
	assert.Equal(t, "from stdin", string(body))

	path := filepath.Join(t.TempDir(), "model.glb")
	require.NoError(t, os.WriteFile(path, []byte("glb"), 0600))
	body, err = readUpload(nil, path)
	require.NoError(t, err)
	assert.Equal(t, "glb", string(body))
}

// The commands below share viper state, so they run sequentially.

func TestAssetsCommands(t *testing.T) {
	srv := newAssetsAPI(t, map[string]string{"scene": `{"name":"lobby"}`})
	tokenFile := writeIDToken(t)

	run := func(args ...string) (string, error) {
		var out bytes.Buffer
		cmd := NewRootCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetIn(strings.NewReader("uploaded body"))
		cmd.SetArgs(append(args, "--endpoint", srv.URL+"/", "--token-file", tokenFile))
		err := cmd.Execute()
		return out.String(), err
	}

	out, err := run("assets", "fetch", "--type", "json", "--key", "scene")
	require.NoError(t, err)
	assert.Contains(t, out, "JSON JSON")
	assert.Contains(t, out, "Succeeded, 1 attempt(s)")

	out, err = run("assets", "upload", "--key", "notes", "--file", "-", "--content-type", "text/plain")
	require.NoError(t, err)
	assert.Contains(t, out, "uploaded 13 bytes to notes")

	out, err = run("assets", "list", "--key", "shared")
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/objects/shared/0", srv.URL + "/objects/shared/1"},
		strings.Fields(out))

	_, err = run("assets", "fetch", "--type", "json")
	assert.ErrorContains(t, err, "--key is required")

	_, err = run("assets", "fetch", "--key", "../scene")
	assert.ErrorContains(t, err, "is invalid")
}

func TestAssetsLogin_KeyringToken(t *testing.T) {
	keyring.MockInit()
	srv := newAssetsAPI(t, map[string]string{"scene": `{"name":"lobby"}`})

	execute := func(stdin string, args ...string) (string, error) {
		var out bytes.Buffer
		cmd := NewRootCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetArgs(args)
		err := cmd.Execute()
		return out.String(), err
	}

	_, err := execute("", "assets", "fetch", "--type", "json", "--key", "scene", "--endpoint", srv.URL+"/")
	require.Error(t, err, "no token stored yet")

	_, err = execute("garbage", "assets", "login")
	require.Error(t, err)

	token, err := os.ReadFile(writeIDToken(t))
	require.NoError(t, err)
	_, err = execute(string(token), "assets", "login")
	require.NoError(t, err)

	out, err := execute("", "assets", "fetch", "--type", "json", "--key", "scene", "--endpoint", srv.URL+"/")
	require.NoError(t, err)
	assert.Contains(t, out, "Succeeded")

	_, err = execute("", "assets", "logout")
	require.NoError(t, err)
	_, err = keyring.Get(presign.KeyringService, config.DefaultKeyringUser)
	assert.ErrorIs(t, err, keyring.ErrNotFound)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version", "--format", "json"})
	require.NoError(t, cmd.Execute())

	var info versions.VersionInfo
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.NotEmpty(t, info.GoVersion)
}
