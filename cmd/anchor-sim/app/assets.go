package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tidwall/gjson"
	"golang.org/x/term"

	"github.com/stacklok/spatial-anchors/internal/assets"
	"github.com/stacklok/spatial-anchors/internal/assets/loaders"
	"github.com/stacklok/spatial-anchors/internal/assets/presign"
	"github.com/stacklok/spatial-anchors/internal/config"
	"github.com/stacklok/spatial-anchors/internal/httpclient"
	"github.com/stacklok/spatial-anchors/internal/loop"
	"github.com/stacklok/spatial-anchors/internal/telemetry"
	"github.com/stacklok/spatial-anchors/internal/validators"
)

func newAssetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Load and store assets through pre-signed URLs",
	}
	cmd.PersistentFlags().String("endpoint", "", "Base URL of the pre-signed URL API (overrides assets.endpoint)")
	cmd.PersistentFlags().String("token-file", "", "File holding the ID token (overrides assets.tokenFile)")
	cmd.PersistentFlags().String("key", "", "Asset key")
	for _, name := range []string{"endpoint", "token-file"} {
		if err := viper.BindPFlag("assets."+name, cmd.PersistentFlags().Lookup(name)); err != nil {
			slog.Error("Error binding flag", "flag", name, "error", err)
		}
	}

	fetch := &cobra.Command{
		Use:   "fetch",
		Short: "Load and decode an asset, retrying transient failures",
		RunE:  runFetch,
	}
	fetch.Flags().String("type", loaders.TypeBytes, "Asset type (bytes, json, gltf, audio)")

	upload := &cobra.Command{
		Use:   "upload",
		Short: "Upload a file under an asset key",
		RunE:  runUpload,
	}
	upload.Flags().String("file", "", "File to upload, - for stdin")
	upload.Flags().String("content-type", "application/octet-stream", "Content type of the upload")

	list := &cobra.Command{
		Use:   "list",
		Short: "List read URLs for every object stored under a key",
		RunE:  runList,
	}

	login := &cobra.Command{
		Use:   "login",
		Short: "Store an ID token in the system keyring",
		Long: `Store an ID token in the system keyring. The token is read from the
terminal without echo, or from standard input when it is not a terminal.
It is used by the other asset commands when no token file is configured.`,
		RunE: runLogin,
	}
	logout := &cobra.Command{
		Use:   "logout",
		Short: "Remove the ID token from the system keyring",
		RunE:  runLogout,
	}
	for _, c := range []*cobra.Command{login, logout} {
		c.Flags().String("user", "", "Keyring entry (overrides assets.keyringUser)")
	}

	cmd.AddCommand(fetch, upload, list, login, logout)
	return cmd
}

type assetEnv struct {
	loop      *loop.Loop
	loader    *assets.RetryingLoader
	telemetry *telemetry.Telemetry
}

func (e *assetEnv) close() {
	ctx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()
	if err := e.telemetry.Shutdown(ctx); err != nil {
		slog.Error("Failed to shutdown telemetry", "error", err)
	}
}

func newAssetEnv(ctx context.Context) (*assetEnv, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return buildAssetEnv(ctx, cfg, viper.GetString("assets.endpoint"), viper.GetString("assets.token-file"))
}

func buildAssetEnv(ctx context.Context, cfg *config.Config, endpoint, tokenFile string) (*assetEnv, error) {
	if endpoint == "" {
		endpoint = cfg.Assets.Endpoint
	}
	if tokenFile == "" {
		tokenFile = cfg.Assets.TokenFile
	}
	if endpoint == "" {
		return nil, errors.New("no asset endpoint configured")
	}
	tokens := presign.NewKeyringTokenSource(cfg.Assets.GetKeyringUser())
	if tokenFile != "" {
		tokens = presign.NewFileTokenSource(tokenFile)
	}

	tel, err := telemetry.New(ctx, telemetry.WithTelemetryConfig(cfg.Telemetry))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	metrics, err := telemetry.NewAssetMetrics(tel.MeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create asset metrics: %w", err)
	}

	resolver, err := presign.NewClient(endpoint, tokens)
	if err != nil {
		return nil, fmt.Errorf("failed to create URL resolver: %w", err)
	}
	client := httpclient.NewDefaultClient(cfg.Assets.GetTimeout())

	l := loop.New()
	loader := assets.NewRetryingLoader(l, resolver, loaders.NewRegistry(client),
		assets.WithMaxRetries(cfg.Assets.GetMaxRetries()),
		assets.WithExponentialBackOff(
			cfg.Assets.GetInitialInterval(),
			cfg.Assets.GetMaxInterval(),
			cfg.Assets.GetMultiplier(),
		),
		assets.WithUploader(client),
		assets.WithMetrics(metrics),
		assets.WithTracer(tel.Tracer()),
	)
	return &assetEnv{loop: l, loader: loader, telemetry: tel}, nil
}

func requireKey(cmd *cobra.Command) (string, error) {
	key, _ := cmd.Flags().GetString("key")
	if key == "" {
		return "", errors.New("--key is required")
	}
	return validators.ValidateAssetKey(key)
}

func runFetch(cmd *cobra.Command, _ []string) error {
	key, err := requireKey(cmd)
	if err != nil {
		return err
	}
	assetType, _ := cmd.Flags().GetString("type")

	env, err := newAssetEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer env.close()

	var decoded any
	env.loader.LoadAsset(cmd.Context(), assetType, key, func(v any) { decoded = v })
	env.loop.Settle()

	status := env.loader.Status(assetType, key)
	if decoded == nil {
		return fmt.Errorf("failed to load %s asset %q: %s", assetType, key, status.Message)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %d attempt(s))\n", describeAsset(decoded), status.Phase, status.Attempt)
	return err
}

// describeAsset returns a one-line summary of a decoded asset
func describeAsset(v any) string {
	switch a := v.(type) {
	case []byte:
		return fmt.Sprintf("%d bytes", len(a))
	case gjson.Result:
		return fmt.Sprintf("JSON %s, %d bytes", a.Type, len(a.Raw))
	case *loaders.Model:
		return fmt.Sprintf("glTF %s by %q: %d scene(s), %d node(s), %d mesh(es), %d binary bytes",
			a.Version, a.Generator, a.Scenes, a.Nodes, a.Meshes, len(a.Binary))
	case *loaders.AudioClip:
		return fmt.Sprintf("%s audio, %d bytes", a.Format, len(a.Data))
	default:
		return fmt.Sprintf("%T", v)
	}
}

func runUpload(cmd *cobra.Command, _ []string) error {
	key, err := requireKey(cmd)
	if err != nil {
		return err
	}
	path, _ := cmd.Flags().GetString("file")
	contentType, _ := cmd.Flags().GetString("content-type")

	body, err := readUpload(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}

	env, err := newAssetEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer env.close()

	if err := env.loader.Upload(cmd.Context(), key, contentType, body); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "uploaded %d bytes to %s\n", len(body), key)
	return err
}

func readUpload(stdin io.Reader, path string) ([]byte, error) {
	switch path {
	case "":
		return nil, errors.New("--file is required")
	case "-":
		return io.ReadAll(stdin)
	}
	// #nosec G304 -- path is provided by the operator
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return body, nil
}

func runList(cmd *cobra.Command, _ []string) error {
	key, err := requireKey(cmd)
	if err != nil {
		return err
	}

	env, err := newAssetEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer env.close()

	urls, err := env.loader.ListURLs(cmd.Context(), key)
	if err != nil {
		return err
	}
	for _, u := range urls {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), u); err != nil {
			return err
		}
	}
	return nil
}

func keyringUser(cmd *cobra.Command) (string, error) {
	user, _ := cmd.Flags().GetString("user")
	if user != "" {
		return user, nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	return cfg.Assets.GetKeyringUser(), nil
}

func runLogin(cmd *cobra.Command, _ []string) error {
	user, err := keyringUser(cmd)
	if err != nil {
		return err
	}

	var raw []byte
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), "ID token: ")
		raw, err = term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(cmd.ErrOrStderr())
	} else {
		raw, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("failed to read ID token: %w", err)
	}

	if err := presign.StoreIDToken(user, string(raw)); err != nil {
		return err
	}
	slog.Info("ID token stored", "user", user)
	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	user, err := keyringUser(cmd)
	if err != nil {
		return err
	}
	if err := presign.DeleteIDToken(user); err != nil {
		return err
	}
	slog.Info("ID token removed", "user", user)
	return nil
}
