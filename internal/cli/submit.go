package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pendergraft/skillcert/pkg/client"
)

func createSubmitCmd() *cobra.Command {
	var name, description, file string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Upload a certificate and register it on-chain",
		Long: `Upload a certificate file to IPFS through the server and register its
content hash with the skill name and description.

The server signs the transaction with its own wallet account, so the
command needs an API key.

EXAMPLES:
  skillcert submit --name React --description "Frontend development" --file react.pdf
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd.Context(), cmd.OutOrStdout(), newClient(), name, description, file)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "skill name (required)")
	cmd.Flags().StringVar(&description, "description", "", "skill description (required)")
	cmd.Flags().StringVar(&file, "file", "", "certificate file (required)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runSubmit(ctx context.Context, out io.Writer, c *client.Client, name, description, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening certificate: %w", err)
	}
	defer f.Close()

	fmt.Fprintf(out, "📤 Submitting %s (%s)\n", filepath.Base(path), name)

	result, err := c.Submit(ctx, client.Submission{
		Name:        name,
		Description: description,
		FileName:    filepath.Base(path),
		File:        f,
	})
	if err != nil {
		return fmt.Errorf("submission failed: %w", err)
	}

	fmt.Fprintln(out, "✅ Uploaded & stored on-chain!")
	fmt.Fprintf(out, "   CID:         %s\n", result.ContentHash)
	fmt.Fprintf(out, "   Transaction: %s\n", result.TxHash)
	fmt.Fprintf(out, "   Block:       %d\n", result.BlockNumber)
	fmt.Fprintf(out, "   Gas:         %d / %d\n", result.GasUsed, result.GasLimit)
	return nil
}
