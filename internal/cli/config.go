package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// projectConfigFile is the project config looked up in the working directory
const projectConfigFile = "skillcert.toml"

// ProjectConfig is the project-level TOML configuration
type ProjectConfig struct {
	Server string `toml:"server"`
	Output string `toml:"output,omitempty"`
}

// ServerConfig is the global server configuration (stored in ~/.skillcert/config.yaml)
type ServerConfig struct {
	Server string `yaml:"server"`
}

func createConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}

	cmd.AddCommand(createConfigInitCmd())
	cmd.AddCommand(createConfigShowCmd())

	return cmd
}

func createConfigInitCmd() *cobra.Command {
	var serverURL string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create config file",
		Long: `Create a skillcert.toml configuration file in the current directory.

EXAMPLES:
  skillcert config init
  skillcert config init --server https://skillcert.example.com
  skillcert config init --force
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd.OutOrStdout(), serverURL, force)
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", defaultServer, "server URL")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config")

	return cmd
}

func createConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current config",
		Long: `Display every configuration source and the effective settings.

EXAMPLES:
  skillcert config show
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.OutOrStdout())
		},
	}
}

func runConfigInit(out io.Writer, serverURL string, force bool) error {
	path := projectConfigFile
	if cfgFile != "" {
		path = cfgFile
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	content := fmt.Sprintf(`# SkillCert project configuration

server = %q

# Output format for verify and status: "text" or "json"
output = "text"
`, serverURL)

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(out, "Created %s\n", path)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Server: %s\n", serverURL)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  1. Run 'skillcert auth login' to authenticate")
	fmt.Fprintln(out, "  2. Run 'skillcert submit --name ... --description ... --file cert.pdf'")

	return nil
}

func runConfigShow(out io.Writer) error {
	fmt.Fprintln(out, "Configuration sources (in order of precedence):")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "1. Command line flags")
	fmt.Fprintln(out, "   --server, --api-key, --config")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "2. Environment variables")
	if env := os.Getenv("SKILLCERT_SERVER"); env != "" {
		fmt.Fprintf(out, "   SKILLCERT_SERVER=%s\n", env)
	} else {
		fmt.Fprintln(out, "   SKILLCERT_SERVER=(not set)")
	}
	if env := os.Getenv("SKILLCERT_API_KEY"); env != "" {
		fmt.Fprintf(out, "   SKILLCERT_API_KEY=%s\n", maskAPIKey(env))
	} else {
		fmt.Fprintln(out, "   SKILLCERT_API_KEY=(not set)")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "3. Project config (skillcert.toml)")
	projectConfig, configPath, err := loadProjectConfig()
	switch {
	case os.IsNotExist(err):
		fmt.Fprintln(out, "   (not found)")
	case err != nil:
		fmt.Fprintf(out, "   Error: %v\n", err)
	default:
		fmt.Fprintf(out, "   Loaded from: %s\n", configPath)
		if projectConfig.Server != "" {
			fmt.Fprintf(out, "   server: %s\n", projectConfig.Server)
		}
		if projectConfig.Output != "" {
			fmt.Fprintf(out, "   output: %s\n", projectConfig.Output)
		}
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "4. Global config (~/.skillcert/config.yaml)")
	globalConfig, err := loadGlobalConfig()
	switch {
	case os.IsNotExist(err):
		fmt.Fprintln(out, "   (not found)")
	case err != nil:
		fmt.Fprintf(out, "   Error: %v\n", err)
	case globalConfig.Server != "":
		fmt.Fprintf(out, "   server: %s\n", globalConfig.Server)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "5. Credentials (~/.skillcert/credentials)")
	creds, err := loadCredentials()
	switch {
	case os.IsNotExist(err):
		fmt.Fprintln(out, "   (not found)")
	case err != nil:
		fmt.Fprintf(out, "   Error: %v\n", err)
	case len(creds.Servers) == 0:
		fmt.Fprintln(out, "   (no credentials stored)")
	default:
		for _, server := range creds.servers() {
			fmt.Fprintf(out, "   %s: %s\n", server, maskAPIKey(creds.Servers[server].APIKey))
		}
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Effective configuration:")
	fmt.Fprintf(out, "   Server:  %s\n", getServer())
	if key := getAPIKey(); key != "" {
		fmt.Fprintf(out, "   API Key: %s\n", maskAPIKey(key))
	} else {
		fmt.Fprintln(out, "   API Key: (not set)")
	}
	fmt.Fprintf(out, "   Output:  %s\n", outputFormat())

	return nil
}

// loadProjectConfig loads the --config file or skillcert.toml.
// Returns the config, the path it was loaded from, and an error.
func loadProjectConfig() (*ProjectConfig, string, error) {
	path := projectConfigFile
	if cfgFile != "" {
		path = cfgFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, err
	}

	var config ProjectConfig
	if _, err := toml.Decode(string(data), &config); err != nil {
		return nil, path, fmt.Errorf("parsing TOML: %w", err)
	}
	return &config, path, nil
}

// loadProjectConfigSilent returns nil when the file doesn't exist and warns
// on parse failures.
func loadProjectConfigSilent() *ProjectConfig {
	config, _, err := loadProjectConfig()
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load project config: %v\n", err)
		}
		return nil
	}
	return config
}

func loadGlobalConfig() (*ServerConfig, error) {
	data, err := os.ReadFile(filepath.Join(credentialsDir(), "config.yaml"))
	if err != nil {
		return nil, err
	}
	var config ServerConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	return &config, nil
}

// outputFormat returns "json" when the project config asks for it.
func outputFormat() string {
	if config := loadProjectConfigSilent(); config != nil && config.Output == "json" {
		return "json"
	}
	return "text"
}
