// Package cli implements the skillcert command line client.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pendergraft/skillcert/pkg/client"
)

var (
	cfgFile string
	server  string
	apiKey  string
)

// Execute runs the CLI
func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "skillcert",
		Short:   "Skill certificate registry CLI",
		Long:    `SkillCert is a CLI for submitting skill certificates and verifying them by IPFS hash.`,
		Version: version,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: skillcert.toml)")
	rootCmd.PersistentFlags().StringVar(&server, "server", "", "server URL (default from config)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for authentication")

	rootCmd.AddCommand(createSubmitCmd())
	rootCmd.AddCommand(createVerifyCmd())
	rootCmd.AddCommand(createStatusCmd(version))
	rootCmd.AddCommand(createAuthCmd())
	rootCmd.AddCommand(createConfigCmd())

	return rootCmd
}

const defaultServer = "http://localhost:8080"

// getServer resolves the server URL. First non-empty wins: --server,
// SKILLCERT_SERVER, skillcert.toml, ~/.skillcert/config.yaml.
func getServer() string {
	candidates := []func() string{
		func() string { return server },
		func() string { return os.Getenv("SKILLCERT_SERVER") },
		func() string {
			if pc := loadProjectConfigSilent(); pc != nil {
				return pc.Server
			}
			return ""
		},
		func() string {
			if gc, err := loadGlobalConfig(); err == nil {
				return gc.Server
			}
			return ""
		},
	}
	for _, c := range candidates {
		if v := c(); v != "" {
			return v
		}
	}
	return defaultServer
}

// getAPIKey resolves the key the same way, ending with the credential stored
// for the resolved server.
func getAPIKey() string {
	switch {
	case apiKey != "":
		return apiKey
	case os.Getenv("SKILLCERT_API_KEY") != "":
		return os.Getenv("SKILLCERT_API_KEY")
	}
	return getCredential(getServer())
}

func newClient() *client.Client {
	return client.New(getServer(), getAPIKey())
}
