package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/pendergraft/skillcert/pkg/client"
)

// Credentials is the on-disk key store, one entry per server URL.
type Credentials struct {
	Servers map[string]ServerCredential `yaml:"servers"`
}

// ServerCredential is the key saved for one server. KeyID is what the server
// reported from whoami, if anything.
type ServerCredential struct {
	APIKey string `yaml:"api_key"`
	KeyID  string `yaml:"key_id,omitempty"`
}

func createAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage saved API keys",
	}

	cmd.AddCommand(createAuthLoginCmd())
	cmd.AddCommand(createAuthLogoutCmd())
	cmd.AddCommand(createAuthStatusCmd())

	return cmd
}

func createAuthLoginCmd() *cobra.Command {
	var serverFlag string
	var apiKeyFlag string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save an API key for a server",
		Long: `Save API key credentials for a SkillCert server.

The key is checked against the server and stored in ~/.skillcert/credentials
with owner-only permissions.

EXAMPLES:
  # prompt for the key
  skillcert auth login

  # CI
  skillcert auth login --api-key $SKILLCERT_API_KEY
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogin(cmd.Context(), cmd.OutOrStdout(), serverFlag, apiKeyFlag)
		},
	}

	cmd.Flags().StringVar(&serverFlag, "server", "", "server URL (default: resolved server)")
	cmd.Flags().StringVar(&apiKeyFlag, "api-key", "", "API key (prompts if not provided)")

	return cmd
}

func createAuthLogoutCmd() *cobra.Command {
	var serverFlag string
	var allFlag bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget saved API keys",
		Long: `Remove saved credentials for a server.

EXAMPLES:
  skillcert auth logout
  skillcert auth logout --server https://skillcert.example.com
  skillcert auth logout --all
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogout(cmd.OutOrStdout(), serverFlag, allFlag)
		},
	}

	cmd.Flags().StringVar(&serverFlag, "server", "", "server URL (default from config)")
	cmd.Flags().BoolVar(&allFlag, "all", false, "forget every server")

	return cmd
}

func createAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List servers with a saved key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthStatus(cmd.OutOrStdout())
		},
	}
}

func runAuthLogin(ctx context.Context, out io.Writer, serverURL, apiKeyInput string) error {
	if serverURL == "" {
		serverURL = getServer()
	}

	key := apiKeyInput
	if key == "" {
		fmt.Fprintf(out, "Enter API key for %s: ", serverURL)

		var err error
		key, err = readSecret(os.Stdin)
		fmt.Fprintln(out)
		if err != nil {
			return fmt.Errorf("reading API key: %w", err)
		}
	}

	if key == "" {
		return errors.New("API key cannot be empty")
	}

	fmt.Fprintf(out, "Validating credentials with %s...\n", serverURL)
	keyID, valid, err := validateAPIKey(ctx, serverURL, key)
	if err != nil {
		return fmt.Errorf("checking key with %s: %w", serverURL, err)
	}
	if !valid {
		return errors.New("invalid API key")
	}

	if err := saveCredential(serverURL, ServerCredential{APIKey: key, KeyID: keyID}); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}

	fmt.Fprintf(out, "✅ Authenticated to %s (key: %s)\n", serverURL, maskAPIKey(key))
	fmt.Fprintf(out, "   Credentials saved to %s\n", credentialsFilePath())
	return nil
}

// readSecret reads a key without echo from a terminal, or a trimmed line
// from anything else.
func readSecret(f *os.File) (string, error) {
	fd := int(f.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func runAuthLogout(out io.Writer, serverURL string, all bool) error {
	if all {
		if err := os.Remove(credentialsFilePath()); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", credentialsFilePath(), err)
		}
		fmt.Fprintln(out, "✅ All credentials cleared")
		return nil
	}

	if serverURL == "" {
		serverURL = getServer()
	}

	creds, err := loadCredentials()
	if os.IsNotExist(err) {
		fmt.Fprintf(out, "No credentials found for %s\n", serverURL)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading credentials: %w", err)
	}

	if !creds.forget(serverURL) {
		fmt.Fprintf(out, "No credentials found for %s\n", serverURL)
		return nil
	}
	if err := writeCredentials(creds); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}

	fmt.Fprintf(out, "✅ Logged out from %s\n", serverURL)
	return nil
}

func runAuthStatus(out io.Writer) error {
	creds, err := loadCredentials()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading credentials: %w", err)
	}
	if err != nil || len(creds.Servers) == 0 {
		fmt.Fprintln(out, "Not authenticated to any servers")
		fmt.Fprintln(out, "\nRun 'skillcert auth login' to authenticate")
		return nil
	}

	fmt.Fprintln(out, "Authenticated servers:")
	for _, server := range creds.servers() {
		cred := creds.Servers[server]
		if cred.KeyID != "" {
			fmt.Fprintf(out, "  • %s (id: %s, key: %s)\n", server, cred.KeyID, maskAPIKey(cred.APIKey))
		} else {
			fmt.Fprintf(out, "  • %s (key: %s)\n", server, maskAPIKey(cred.APIKey))
		}
	}
	return nil
}

func credentialsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".skillcert"
	}
	return filepath.Join(home, ".skillcert")
}

func credentialsFilePath() string {
	return filepath.Join(credentialsDir(), "credentials")
}

func loadCredentials() (*Credentials, error) {
	data, err := os.ReadFile(credentialsFilePath())
	if err != nil {
		return nil, err
	}
	creds := &Credentials{}
	if err := yaml.Unmarshal(data, creds); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", credentialsFilePath(), err)
	}
	if creds.Servers == nil {
		creds.Servers = map[string]ServerCredential{}
	}
	return creds, nil
}

func writeCredentials(creds *Credentials) error {
	if err := os.MkdirAll(credentialsDir(), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(creds)
	if err != nil {
		return err
	}
	return os.WriteFile(credentialsFilePath(), data, 0600)
}

func saveCredential(serverURL string, cred ServerCredential) error {
	creds, err := loadCredentials()
	switch {
	case os.IsNotExist(err):
		creds = &Credentials{Servers: map[string]ServerCredential{}}
	case err != nil:
		return err
	}
	creds.Servers[serverURL] = cred
	return writeCredentials(creds)
}

func getCredential(serverURL string) string {
	creds, err := loadCredentials()
	if err != nil {
		return ""
	}
	return creds.Servers[serverURL].APIKey
}

func (c *Credentials) forget(serverURL string) bool {
	if _, ok := c.Servers[serverURL]; !ok {
		return false
	}
	delete(c.Servers, serverURL)
	return true
}

func (c *Credentials) servers() []string {
	out := make([]string, 0, len(c.Servers))
	for s := range c.Servers {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// validateAPIKey asks the server who the key belongs to. Only a 401 marks
// the key invalid; servers without the endpoint accept any key.
func validateAPIKey(ctx context.Context, serverURL, key string) (string, bool, error) {
	keyID, err := client.New(serverURL, key).Whoami(ctx)
	if err == nil {
		return keyID, true, nil
	}

	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return "", false, err
	}
	if apiErr.Status == http.StatusUnauthorized {
		return "", false, nil
	}
	return "", true, nil
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:8] + "..." + key[len(key)-4:]
}
