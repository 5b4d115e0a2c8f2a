package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/spf13/cobra"

	"github.com/pendergraft/skillcert/pkg/client"
)

func createVerifyCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "verify <content-hash>",
		Short: "Check whether a certificate is registered",
		Long: `Look up an IPFS content hash in the on-chain registry.

A hash that is not registered is reported as "not found" and exits
successfully; failures to reach the chain are errors.

EXAMPLES:
  skillcert verify QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG
  skillcert verify --json QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.Context(), cmd.OutOrStdout(), newClient(), args[0], asJSON || outputFormat() == "json")
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON result")

	return cmd
}

func runVerify(ctx context.Context, out io.Writer, c *client.Client, hash string, asJSON bool) error {
	if strings.TrimSpace(hash) == "" {
		return errors.New("enter an IPFS hash")
	}

	v, err := c.Verify(ctx, hash)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	fmt.Fprintf(out, "🔍 %s\n", hash)
	if _, err := cid.Decode(hash); err != nil {
		fmt.Fprintln(out, "   (not a well-formed CID)")
	}
	fmt.Fprintln(out)

	if !v.Genuine() {
		fmt.Fprintln(out, "❌ Certificate Not Found (Fake or Not Registered)")
		return nil
	}

	fmt.Fprintln(out, "✅ Genuine Certificate Found")
	fmt.Fprintf(out, "   Skill:       %s\n", v.Name)
	fmt.Fprintf(out, "   Description: %s\n", v.Description)
	fmt.Fprintf(out, "   Owner:       %s\n", v.Owner)
	return nil
}
