package cmd

import (
	"fmt"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"health-sync/feature/provider"
)

var authorizePort int

// oauthEndpoints describes one provider's authorization-code flow.
type oauthEndpoints struct {
	authURL   string
	tokenURL  string
	scopes    string
	tokenName string
}

// Providers with an OAuth application flow. The rest use static tokens or
// session logins and have nothing to authorize interactively.
var oauthProviders = map[string]oauthEndpoints{
	"oura": {
		authURL:   "https://cloud.ouraring.com/oauth/authorize",
		tokenURL:  "https://api.ouraring.com/oauth/token",
		scopes:    "daily personal email",
		tokenName: "oura.oauth",
	},
	"withings": {
		authURL:   "https://account.withings.com/oauth2_user/authorize2",
		tokenURL:  "https://wbsapi.withings.net/v2/oauth2",
		scopes:    "user.activity,user.metrics,user.sleepevents",
		tokenName: "withings.oauth",
	},
}

// authorizeCmd runs a local redirect-capture server for a provider's OAuth
// flow and saves the resulting tokens into the state directory.
var authorizeCmd = &cobra.Command{
	Use:   "authorize <provider>",
	Short: "Run the OAuth authorization flow for a provider",
	Long: `Start a local server, open its address in a browser, approve access,
and the captured tokens are saved under the state directory.

Example:
  health-sync authorize oura --port 8000`,
	Args: cobra.ExactArgs(1),
	RunE: runAuthorize,
}

func init() {
	authorizeCmd.Flags().IntVar(&authorizePort, "port", 8000, "Local port for the redirect capture server")
	RootCmd.AddCommand(authorizeCmd)
}

func runAuthorize(cmd *cobra.Command, args []string) error {
	cfg, l, err := setup()
	if err != nil {
		return err
	}

	name := args[0]
	endpoints, ok := oauthProviders[name]
	if !ok {
		return fmt.Errorf("provider %q has no OAuth flow", name)
	}

	settings, ok := cfg.Providers.For(name)
	if !ok || settings.ClientID == "" || settings.ClientSecret == "" {
		return fmt.Errorf("%s: client_id and client_secret must be configured", name)
	}

	tokens, err := provider.NewFileTokenStore(cfg.Providers.StateDir)
	if err != nil {
		return err
	}
	client := provider.NewHTTPClient(l, cfg.Providers.TimeoutSeconds, cfg.Providers.RetryOptions())

	redirectURI := fmt.Sprintf("http://localhost:%d/callback", authorizePort)
	state := uuid.NewString()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Get("/", func(c *fiber.Ctx) error {
		q := url.Values{}
		q.Set("response_type", "code")
		q.Set("client_id", settings.ClientID)
		q.Set("redirect_uri", redirectURI)
		q.Set("scope", endpoints.scopes)
		q.Set("state", state)
		return c.Redirect(endpoints.authURL + "?" + q.Encode())
	})

	app.Get("/callback", func(c *fiber.Ctx) error {
		if errMsg := c.Query("error"); errMsg != "" {
			return c.Status(fiber.StatusBadRequest).SendString("Error: " + errMsg)
		}
		if c.Query("state") != state {
			return c.Status(fiber.StatusBadRequest).SendString("State mismatch, restart the flow.")
		}
		code := c.Query("code")
		if code == "" {
			return c.Status(fiber.StatusBadRequest).SendString("Missing code parameter.")
		}

		form := url.Values{}
		form.Set("grant_type", "authorization_code")
		form.Set("code", code)
		form.Set("redirect_uri", redirectURI)
		form.Set("client_id", settings.ClientID)
		form.Set("client_secret", settings.ClientSecret)

		var resp map[string]any
		if err := client.PostForm(c.Context(), name+" token exchange", endpoints.tokenURL, nil, form, &resp); err != nil {
			l.Error("token exchange failed", zap.Error(err))
			return c.Status(fiber.StatusBadGateway).SendString("Token exchange failed: " + err.Error())
		}

		now := time.Now().Unix()
		resp["created_at"] = now
		if in, ok := resp["expires_in"].(float64); ok {
			resp["expires_at"] = now + int64(in)
		}

		if err := provider.SaveJSON(tokens, endpoints.tokenName, resp); err != nil {
			l.Error("saving tokens failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).SendString("Saving tokens failed: " + err.Error())
		}

		l.Info("tokens saved", zap.String("provider", name), zap.String("token", endpoints.tokenName))

		// Let the response flush, then stop the server so the command exits.
		go func() {
			time.Sleep(500 * time.Millisecond)
			_ = app.Shutdown()
		}()
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.SendString(fmt.Sprintf("<h3>%s access token saved.</h3><p>You can close this tab.</p>", name))
	})

	addr := fmt.Sprintf("localhost:%d", authorizePort)
	l.Info("open this address in a browser to authorize",
		zap.String("url", "http://"+addr),
		zap.String("provider", name),
	)

	return app.Listen(addr)
}
