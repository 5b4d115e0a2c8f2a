package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"

	"github.com/pendergraft/skillcert/pkg/client"
)

func createStatusCmd(version string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the server's wallet session",
		Long: `Show the server version, the wallet account it signs with and the
registry contract it is bound to.

EXAMPLES:
  skillcert status
  skillcert status --json
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), cmd.OutOrStdout(), newClient(), version, asJSON || outputFormat() == "json")
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON session")

	return cmd
}

func runStatus(ctx context.Context, out io.Writer, c *client.Client, cliVersion string, asJSON bool) error {
	serverVersion, err := c.ServerVersion(ctx)
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}

	sess, err := c.Session(ctx)
	if err != nil {
		return fmt.Errorf("fetching session: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sess)
	}

	fmt.Fprintf(out, "Server:   %s (%s)\n", getServer(), serverVersion)
	if warning := versionSkew(cliVersion, serverVersion); warning != "" {
		fmt.Fprintf(out, "          ⚠️  %s\n", warning)
	}
	fmt.Fprintf(out, "Account:  %s\n", orDash(sess.Account, "No wallet connected"))
	fmt.Fprintf(out, "Contract: %s\n", orDash(sess.ContractAddress, "-"))
	if sess.Ready {
		fmt.Fprintln(out, "Ready:    ✅ yes")
	} else {
		fmt.Fprintln(out, "Ready:    ❌ no")
	}
	if sess.Error != "" {
		fmt.Fprintf(out, "Error:    %s\n", sess.Error)
	}
	return nil
}

// versionSkew warns when both versions are release tags with different
// major versions. Development builds are never compared.
func versionSkew(cliVersion, serverVersion string) string {
	cv, sv := canonical(cliVersion), canonical(serverVersion)
	if cv == "" || sv == "" {
		return ""
	}
	if semver.Major(cv) != semver.Major(sv) {
		return fmt.Sprintf("client %s and server %s differ in major version", cv, sv)
	}
	return ""
}

func canonical(v string) string {
	if v == "" {
		return ""
	}
	if v[0] != 'v' {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return semver.Canonical(v)
}

func orDash(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
